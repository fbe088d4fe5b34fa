package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pulse-board/backend/internal/cache"
	"pulse-board/backend/internal/config"
	"pulse-board/backend/internal/handlers"
	"pulse-board/backend/internal/middleware"
	"pulse-board/backend/internal/monitoring"
	"pulse-board/backend/internal/services"
	"pulse-board/backend/internal/storage"
)

func setupRouter(
	cfg *config.Config,
	db *gorm.DB,
	redisCache *cache.RedisCache,
	taskService services.TaskService,
	objectStorage storage.ObjectStorage,
	health *monitoring.HealthChecker,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.Recovery())
	router.Use(monitoring.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstSize,
			cfg.RateLimit.CleanupInterval,
		)
		router.Use(limiter.Middleware())
	}

	authHandler := handlers.NewAuthHandler(db, services.NewAuthService())
	userHandler := handlers.NewUserHandler(db, services.NewUserService())
	taskHandler := handlers.NewTaskHandler(db, taskService)
	activityHandler := handlers.NewActivityHandler(db, services.NewActivityService())
	notificationHandler := handlers.NewNotificationHandler(db, services.NewNotificationService(), redisCache)
	attachmentHandler := handlers.NewAttachmentHandler(db, objectStorage)

	router.GET("/health", health.Handler)
	router.GET("/metrics", monitoring.MetricsHandler)

	auth := router.Group("/auth")
	{
		auth.POST("/token", authHandler.Token)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/sync", userHandler.SyncProfile)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/me", userHandler.Me)
		api.GET("/team", userHandler.Team)

		api.GET("/board", taskHandler.GetBoard)

		tasks := api.Group("/tasks")
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTaskByID)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", taskHandler.UpdateStatus)
			tasks.POST("/:id/complete", taskHandler.CompleteTask)
			tasks.PATCH("/:id/completed-at", taskHandler.UpdateCompletedAt)
			tasks.POST("/:id/derive", taskHandler.CreateDerivedTask)
			tasks.POST("/:id/critical", taskHandler.ToggleCritical)
			tasks.POST("/:id/blocker", taskHandler.AddBlocker)
			tasks.DELETE("/:id/blocker", taskHandler.RemoveBlocker)
			tasks.PATCH("/:id/progress", taskHandler.UpdateProgress)
			tasks.PATCH("/:id/due-date", taskHandler.UpdateDueDate)
			tasks.PATCH("/:id/assignee", taskHandler.AssignTask)
			tasks.GET("/:id/activity", activityHandler.ByTask)

			tasks.POST("/:id/attachments", attachmentHandler.Upload)
			tasks.GET("/:id/attachments", attachmentHandler.ListByTask)
		}

		api.GET("/attachments/:attachment_id", attachmentHandler.Download)
		api.DELETE("/attachments/:attachment_id", attachmentHandler.Delete)

		api.GET("/activity", activityHandler.Feed)

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		}
	}

	return router
}
