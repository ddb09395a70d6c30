package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/sms-ledger/internal/domain"
	"github.com/dvloznov/sms-ledger/internal/jobs"
)

func newMessageJob(messageID string) *jobs.ProcessMessageJob {
	return &jobs.ProcessMessageJob{
		MessageID: messageID,
		Message: domain.IncomingMessage{
			SMS:  "Rs. 100.00 debited from your account",
			From: "HDFCBK",
		},
	}
}

func TestQueuePublishAssignsDefaults(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	job := newMessageJob("msg-1")
	if err := q.PublishProcessMessage(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessMessage() error = %v", err)
	}

	if job.JobID == "" {
		t.Error("expected generated job ID")
	}
	if job.Status != jobs.JobStatusPending {
		t.Errorf("Status = %q, want pending", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if job.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", job.MaxRetries)
	}

	saved, err := store.GetJob(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if saved.MessageID != "msg-1" {
		t.Errorf("saved MessageID = %q, want msg-1", saved.MessageID)
	}
}

func TestQueueProcessesJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var mu sync.Mutex
	var handled []string
	done := make(chan struct{})

	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		handled = append(handled, job.GetID())
		mu.Unlock()
		close(done)
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := newMessageJob("msg-2")
	if err := q.PublishProcessMessage(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessMessage() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job to be handled")
	}

	// Completion status is written after the handler returns
	deadline := time.Now().Add(2 * time.Second)
	for {
		saved, err := store.GetJob(context.Background(), job.JobID)
		if err != nil {
			t.Fatalf("GetJob() error = %v", err)
		}
		if saved.Status == jobs.JobStatusCompleted {
			if saved.CompletedAt == nil {
				t.Error("expected CompletedAt to be set")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job status = %q, want completed", saved.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != job.JobID {
		t.Errorf("handled = %v, want [%s]", handled, job.JobID)
	}
}

func TestQueueClosedRejectsPublish(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := q.PublishProcessMessage(context.Background(), newMessageJob("msg-3"))
	if err == nil {
		t.Fatal("expected error publishing to closed queue")
	}
}

func TestStoreSaveRequiresID(t *testing.T) {
	store := NewStore()
	err := store.SaveJob(context.Background(), &jobs.ProcessMessageJob{})
	if err == nil {
		t.Fatal("expected error saving job without ID")
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := NewStore()
	if _, err := store.GetJob(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for missing job")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore()
	job := newMessageJob("msg-4")
	job.JobID = "job-4"
	job.Status = jobs.JobStatusPending

	if err := store.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	got, err := store.GetJob(context.Background(), "job-4")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	got.Status = jobs.JobStatusFailed

	again, err := store.GetJob(context.Background(), "job-4")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if again.Status != jobs.JobStatusPending {
		t.Errorf("Status = %q, mutation through returned copy leaked into store", again.Status)
	}
}

func TestStoreListFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC)
	seed := []*jobs.ProcessMessageJob{
		{JobID: "a", MessageID: "m1", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", MessageID: "m1", Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Minute)},
		{JobID: "c", MessageID: "m2", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob() error = %v", err)
		}
	}

	byMessage, err := store.ListJobs(ctx, jobs.JobFilter{MessageID: "m1"})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(byMessage) != 2 {
		t.Errorf("by message: got %d jobs, want 2", len(byMessage))
	}

	byStatus, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(byStatus) != 2 {
		t.Errorf("by status: got %d jobs, want 2", len(byStatus))
	}

	limited, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited: got %d jobs, want 1", len(limited))
	}
	if limited[0].JobID != "c" {
		t.Errorf("limited[0] = %q, want newest job c", limited[0].JobID)
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("transient failure")
		}
		if attempts == 2 {
			close(done)
		}
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := newMessageJob("msg-5")
	if err := q.PublishProcessMessage(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessMessage() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for retry")
	}
}
