package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupQueue(t *testing.T) (*JobQueue, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewJobQueue(client), client
}

func TestEnqueueEmail(t *testing.T) {
	queue, client := setupQueue(t)

	err := queue.EnqueueEmail(map[string]interface{}{
		"recipient_id": "user-1",
		"kind":         "task_assigned",
		"task_title":   "Migrar la base de datos",
	})
	if err != nil {
		t.Fatalf("EnqueueEmail failed: %v", err)
	}

	size, err := queue.GetQueueSize(emailQueue)
	if err != nil {
		t.Fatalf("GetQueueSize failed: %v", err)
	}
	if size != 1 {
		t.Errorf("Expected queue size 1, got %d", size)
	}

	raw, err := client.LIndex(context.Background(), emailQueue, 0).Result()
	if err != nil {
		t.Fatalf("Failed to read queued job: %v", err)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		t.Fatalf("Failed to unmarshal job: %v", err)
	}
	if job.Type != JobTypeEmailNotification {
		t.Errorf("Expected job type %s, got %s", JobTypeEmailNotification, job.Type)
	}
	if job.MaxTries != 3 {
		t.Errorf("Expected 3 max tries, got %d", job.MaxTries)
	}
	if job.Payload["recipient_id"] != "user-1" {
		t.Errorf("Expected recipient in payload, got %v", job.Payload)
	}
}

func TestWorkerProcessesEmailJob(t *testing.T) {
	queue, client := setupQueue(t)

	w := NewWorker(WorkerConfig{RedisClient: client})

	done := make(chan *Job, 1)
	w.RegisterHandler(JobTypeEmailNotification, func(ctx context.Context, job *Job) error {
		done <- job
		return nil
	})

	if err := queue.EnqueueEmail(map[string]interface{}{"recipient_id": "user-2"}); err != nil {
		t.Fatalf("EnqueueEmail failed: %v", err)
	}

	w.Start(1)
	defer w.Stop()

	select {
	case job := <-done:
		if job.Payload["recipient_id"] != "user-2" {
			t.Errorf("Handler got wrong payload: %v", job.Payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Worker never processed the queued job")
	}
}

// recordingMailer captures sends so the subject line mapping is observable.
type recordingMailer struct {
	mu    sync.Mutex
	sends []string
}

func (m *recordingMailer) Send(ctx context.Context, recipientID, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, recipientID+"|"+subject)
	return nil
}

func TestRegisterMailerSubjects(t *testing.T) {
	_, client := setupQueue(t)

	w := NewWorker(WorkerConfig{RedisClient: client})
	mailer := &recordingMailer{}
	w.RegisterMailer(mailer)

	job := &Job{
		ID:   "j1",
		Type: JobTypeEmailNotification,
		Payload: map[string]interface{}{
			"recipient_id": "user-3",
			"kind":         "task_mentioned",
			"task_title":   "Revisar el informe",
		},
		MaxTries: 3,
	}
	if err := w.executeJob(job); err != nil {
		t.Fatalf("executeJob failed: %v", err)
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.sends) != 1 {
		t.Fatalf("Expected 1 send, got %d", len(mailer.sends))
	}
	want := "user-3|Te han mencionado en una tarea: Revisar el informe"
	if mailer.sends[0] != want {
		t.Errorf("Expected %q, got %q", want, mailer.sends[0])
	}
}

func TestFailedJobMovesToRetryQueue(t *testing.T) {
	_, client := setupQueue(t)

	w := NewWorker(WorkerConfig{RedisClient: client})
	w.RegisterHandler(JobTypeEmailNotification, func(ctx context.Context, job *Job) error {
		return context.DeadlineExceeded
	})

	job := &Job{ID: "j2", Type: JobTypeEmailNotification, MaxTries: 3}
	if err := w.executeJob(job); err != nil {
		t.Fatalf("executeJob failed: %v", err)
	}

	size, err := client.LLen(context.Background(), "retry_queue").Result()
	if err != nil {
		t.Fatalf("Failed to read retry queue: %v", err)
	}
	if size != 1 {
		t.Errorf("Expected 1 job in retry queue, got %d", size)
	}
}

func TestExhaustedJobMovesToDeadQueue(t *testing.T) {
	_, client := setupQueue(t)

	w := NewWorker(WorkerConfig{RedisClient: client})
	w.RegisterHandler(JobTypeEmailNotification, func(ctx context.Context, job *Job) error {
		return context.DeadlineExceeded
	})

	job := &Job{ID: "j3", Type: JobTypeEmailNotification, Attempts: 2, MaxTries: 3}
	if err := w.executeJob(job); err != nil {
		t.Fatalf("executeJob failed: %v", err)
	}

	size, err := client.LLen(context.Background(), "dead_queue").Result()
	if err != nil {
		t.Fatalf("Failed to read dead queue: %v", err)
	}
	if size != 1 {
		t.Errorf("Expected 1 job in dead queue, got %d", size)
	}
}
