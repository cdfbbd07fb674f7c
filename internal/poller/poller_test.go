package poller

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"videomorph/internal/adapter/repo"
	"videomorph/internal/domain"
	"videomorph/internal/providers/processor"
	"videomorph/internal/service"
)

func newTestPoller(t *testing.T) (*Poller, *service.Orchestrator, *repo.Memory, *processor.Fake) {
	t.Helper()
	store := repo.NewMemory()
	proc := processor.NewFake()
	orch := service.NewOrchestrator(store, proc, "http://localhost:8080/v1/webhook", zerolog.Nop())
	p := New(store, proc, orch, time.Second, 50, zerolog.Nop())
	return p, orch, store, proc
}

func submit(t *testing.T, orch *service.Orchestrator) *domain.JobRecord {
	t.Helper()
	job, err := orch.Submit(context.Background(), service.SubmitRequest{
		SourceURL: "https://x/in.mp4",
		Params:    domain.Parameters{Style: "cinematic", Intensity: 70, Duration: 15},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return job
}

func TestTickCompletesJobAfterEnoughPolls(t *testing.T) {
	p, orch, _, _ := newTestPoller(t)
	ctx := context.Background()
	job := submit(t, orch)

	// The fake completes on the second poll; the first tick observes an
	// in-flight job and leaves it alone.
	p.Tick(ctx)
	got, err := orch.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.StatusProcessing {
		t.Fatalf("status after first tick = %s, want processing", got.Status)
	}

	p.Tick(ctx)
	got, err = orch.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status after second tick = %s, want completed", got.Status)
	}
	if got.ResultURL == "" {
		t.Error("completed job missing result url")
	}
}

func TestTickAppliesScriptedFailure(t *testing.T) {
	p, orch, _, proc := newTestPoller(t)
	ctx := context.Background()
	job := submit(t, orch)
	proc.Script(job.DispatchID, domain.Outcome{Reason: "encoder error"})

	p.Tick(ctx)
	got, err := orch.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.StatusFailed || got.FailureReason != "encoder error" {
		t.Fatalf("record = %+v, want failed with reason", got)
	}
}

func TestTickSkipsJobsWithoutDispatchID(t *testing.T) {
	p, _, store, _ := newTestPoller(t)
	ctx := context.Background()

	now := time.Now().UTC()
	job := &domain.JobRecord{
		ID: "job-unacked", SourceURL: "https://x/in.mp4",
		Params:    domain.Parameters{Style: "anime", Intensity: 50, Duration: 10},
		Status:    domain.StatusPending,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	p.Tick(ctx)
	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending untouched", got.Status)
	}
}

func TestTickIgnoresTerminalJobs(t *testing.T) {
	p, orch, _, proc := newTestPoller(t)
	ctx := context.Background()
	job := submit(t, orch)

	committed, err := orch.ApplyExternalResult(ctx, job.ID, domain.Outcome{Success: true, ResultURL: "https://x/webhook.mp4"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Even a conflicting poll outcome must not disturb the terminal record.
	proc.Script(job.DispatchID, domain.Outcome{Reason: "spurious"})

	p.Tick(ctx)
	got, err := orch.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *got != *committed {
		t.Fatalf("terminal record mutated: %+v vs %+v", got, committed)
	}
}

func TestTickSurvivesPollFailure(t *testing.T) {
	p, orch, store, _ := newTestPoller(t)
	ctx := context.Background()

	// A record pointing at a dispatch the processor has no memory of; the
	// poll errors and the job stays in flight for the next round.
	now := time.Now().UTC()
	job := &domain.JobRecord{
		ID: "job-orphan", SourceURL: "https://x/in.mp4",
		Params:     domain.Parameters{Style: "anime", Intensity: 50, Duration: 10},
		Status:     domain.StatusProcessing,
		DispatchID: "disp_9999",
		CreatedAt:  now, UpdatedAt: now,
	}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	p.Tick(ctx)
	got, err := orch.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.StatusProcessing {
		t.Fatalf("status = %s, want processing after failed poll", got.Status)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	p, _, _, _ := newTestPoller(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
