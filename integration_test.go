package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pulse-board/backend/internal/cache"
	"pulse-board/backend/internal/config"
	"pulse-board/backend/internal/database"
	"pulse-board/backend/internal/models"
	"pulse-board/backend/internal/monitoring"
	"pulse-board/backend/internal/services"
	"pulse-board/backend/internal/storage"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("JWT_SECRET", "integration_secret")
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	// Each pooled connection would otherwise get its own in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	redisCache := cache.NewRedisCacheWithClient(client)

	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.RateLimit.Enabled = false

	taskService := services.NewCachedBoardService(services.NewTaskService(nil), redisCache)
	health := monitoring.NewHealthChecker()

	router := setupRouter(cfg, db, redisCache, taskService, storage.NewMemoryStorage(), health)
	return &testServer{router: router, db: db}
}

// seedUser inserts a local-login user and returns an access token for it.
func (ts *testServer) seedUser(t *testing.T, email, area string) (uuid.UUID, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := models.User{
		ID:       uuid.Must(uuid.NewV4()),
		Username: email,
		Email:    email,
		Password: string(hashed),
		Name:     "Integration User",
		Area:     area,
		Role:     models.RoleMember,
	}
	if err := ts.db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	w := ts.do(t, "POST", "/auth/token", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Login failed with status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse login response: %v", err)
	}
	return user.ID, resp.AccessToken
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to parse envelope: %v (%s)", err, w.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("Expected success envelope, got %s", w.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("Failed to parse data: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/api/v1/board", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestTaskLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	_, token := ts.seedUser(t, "dev@example.com", "engineering")

	// Create.
	w := ts.do(t, "POST", "/api/v1/tasks", token, gin.H{"title": "Desplegar el servicio"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create failed with status %d: %s", w.Code, w.Body.String())
	}
	var task models.Task
	decodeData(t, w, &task)
	if task.Status != models.StatusBacklog {
		t.Errorf("Expected new task in backlog, got %s", task.Status)
	}

	// Move to in_progress.
	w = ts.do(t, "PATCH", fmt.Sprintf("/api/v1/tasks/%s/status", task.ID), token, gin.H{"status": "in_progress"})
	if w.Code != http.StatusOK {
		t.Fatalf("Status update failed: %s", w.Body.String())
	}
	decodeData(t, w, &task)
	if task.StartedAt == nil {
		t.Error("Expected started_at after moving to in_progress")
	}

	// Complete.
	w = ts.do(t, "POST", fmt.Sprintf("/api/v1/tasks/%s/complete", task.ID), token, gin.H{
		"notes": "desplegado en producción",
		"links": []string{"https://example.com/release/1"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Complete failed: %s", w.Body.String())
	}
	decodeData(t, w, &task)
	if task.Status != models.StatusDone || task.CompletedAt == nil {
		t.Errorf("Expected completed task, got status=%s completed_at=%v", task.Status, task.CompletedAt)
	}

	// Done tasks refuse further moves.
	w = ts.do(t, "PATCH", fmt.Sprintf("/api/v1/tasks/%s/status", task.ID), token, gin.H{"status": "todo"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d for move of done task, got %d", http.StatusBadRequest, w.Code)
	}

	// Board shows it in the done column.
	w = ts.do(t, "GET", "/api/v1/board", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Board failed: %s", w.Body.String())
	}
	var board map[string][]models.Task
	decodeData(t, w, &board)
	if len(board[models.StatusDone]) != 1 {
		t.Errorf("Expected 1 done task on board, got %d", len(board[models.StatusDone]))
	}

	// Activity feed recorded the lifecycle.
	w = ts.do(t, "GET", fmt.Sprintf("/api/v1/tasks/%s/activity", task.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Activity failed: %s", w.Body.String())
	}
	var events []models.ActivityEvent
	decodeData(t, w, &events)
	if len(events) < 3 {
		t.Errorf("Expected created, status_changed and completed events, got %d", len(events))
	}
}

func TestMentionNotifiesRecipient(t *testing.T) {
	ts := setupTestServer(t)
	_, authorToken := ts.seedUser(t, "author@example.com", "engineering")
	recipientID, recipientToken := ts.seedUser(t, "reviewer@example.com", "engineering")

	w := ts.do(t, "POST", "/api/v1/tasks", authorToken, gin.H{"title": "Redactar el informe"})
	var task models.Task
	decodeData(t, w, &task)

	w = ts.do(t, "POST", fmt.Sprintf("/api/v1/tasks/%s/complete", task.ID), authorToken, gin.H{
		"mentions": []string{recipientID.String()},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Complete failed: %s", w.Body.String())
	}

	w = ts.do(t, "GET", "/api/v1/notifications/unread-count", recipientToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Unread count failed: %s", w.Body.String())
	}
	var count struct {
		Count int64 `json:"count"`
	}
	decodeData(t, w, &count)
	if count.Count != 1 {
		t.Errorf("Expected 1 unread notification, got %d", count.Count)
	}
}

func TestBoardIsScopedByArea(t *testing.T) {
	ts := setupTestServer(t)
	_, engToken := ts.seedUser(t, "eng@example.com", "engineering")
	_, designToken := ts.seedUser(t, "design@example.com", "design")

	w := ts.do(t, "POST", "/api/v1/tasks", engToken, gin.H{"title": "Tarea de ingeniería"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create failed: %s", w.Body.String())
	}

	w = ts.do(t, "GET", "/api/v1/board", designToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Board failed: %s", w.Body.String())
	}
	var board map[string][]models.Task
	decodeData(t, w, &board)
	for status, column := range board {
		if len(column) != 0 {
			t.Errorf("Expected empty %s column for other area, got %d tasks", status, len(column))
		}
	}
}
