package processor

import (
	"context"
	"fmt"
	"sync"

	"videomorph/internal/domain"
)

// Fake is a deterministic in-process processor. It counts polls instead
// of watching the clock, so tests and local runs never sleep to reach a
// state. By default every dispatched job completes on its second poll
// with a synthetic result URL.
type Fake struct {
	mu         sync.Mutex
	dispatched map[string]*fakeJob
	seq        int

	// RejectReason, when set, makes Dispatch answer with an unaccepted
	// ack carrying this reason.
	RejectReason string
	// DispatchErr, when set, is returned from Dispatch as-is.
	DispatchErr error
	// SucceedAfterPolls is the number of Poll calls before a job not
	// scripted otherwise completes. Zero means the default of 2.
	SucceedAfterPolls int
}

type fakeJob struct {
	jobID    string
	polls    int
	scripted *domain.Outcome
}

// NewFake creates a fake processor that accepts everything.
func NewFake() *Fake {
	return &Fake{dispatched: make(map[string]*fakeJob)}
}

func (f *Fake) Dispatch(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DispatchErr != nil {
		return nil, f.DispatchErr
	}
	if f.RejectReason != "" {
		return &domain.DispatchAck{Accepted: false, Reason: f.RejectReason}, nil
	}
	f.seq++
	dispatchID := fmt.Sprintf("disp_%04d", f.seq)
	f.dispatched[dispatchID] = &fakeJob{jobID: req.JobID}
	return &domain.DispatchAck{DispatchID: dispatchID, Accepted: true}, nil
}

func (f *Fake) Poll(ctx context.Context, dispatchID string) (*domain.PollStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.dispatched[dispatchID]
	if !ok {
		return nil, fmt.Errorf("fake processor: unknown dispatch %s", dispatchID)
	}
	job.polls++

	if job.scripted != nil {
		return &domain.PollStatus{Outcome: job.scripted, Progress: -1}, nil
	}
	threshold := f.SucceedAfterPolls
	if threshold <= 0 {
		threshold = 2
	}
	if job.polls >= threshold {
		out := &domain.Outcome{
			Success:   true,
			ResultURL: fmt.Sprintf("https://cdn.example.com/transformed/%s.mp4", job.jobID),
		}
		job.scripted = out
		return &domain.PollStatus{Outcome: out, Progress: -1}, nil
	}
	return &domain.PollStatus{Progress: float64(job.polls) / float64(threshold+1)}, nil
}

// Script pins the outcome future polls report for the given dispatch.
func (f *Fake) Script(dispatchID string, out domain.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.dispatched[dispatchID]; ok {
		job.scripted = &out
	}
}

// LastDispatchID returns the most recently issued dispatch id.
func (f *Fake) LastDispatchID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("disp_%04d", f.seq)
}

var _ domain.Processor = (*Fake)(nil)
