package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pulse-board/backend/internal/cache"
	"pulse-board/backend/internal/cleanup"
	"pulse-board/backend/internal/config"
	"pulse-board/backend/internal/database"
	"pulse-board/backend/internal/monitoring"
	"pulse-board/backend/internal/services"
	"pulse-board/backend/internal/storage"
	"pulse-board/backend/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	redisCache := cache.NewRedisCacheWithClient(redisClient)

	objectStorage, err := storage.NewFilesystemStorage(cfg.Storage.Root)
	if err != nil {
		log.Fatalf("failed to init attachment storage: %v", err)
	}

	outbox := worker.NewJobQueue(redisClient)
	taskService := services.NewCachedBoardService(services.NewTaskService(outbox), redisCache)

	outboxWorker := worker.NewWorker(worker.WorkerConfig{
		RedisClient: redisClient,
		Queues:      cfg.Worker.Queues,
	})
	outboxWorker.RegisterMailer(worker.LogMailer{})
	outboxWorker.Start(cfg.Worker.Concurrency)

	sweeper := cleanup.NewSweeper(db, objectStorage, cfg.Cleanup.Retention)
	if err := sweeper.Start(cfg.Cleanup.Schedule); err != nil {
		log.Fatalf("failed to schedule attachment sweep: %v", err)
	}

	health := monitoring.NewHealthChecker()
	health.Register("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	health.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	router := setupRouter(cfg, db, redisCache, taskService, objectStorage, health)

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("listening on %s", cfg.GetServerAddr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	sweeper.Stop()
	outboxWorker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	redisCache.Close()
}
