package domain

import (
	"context"
	"time"
)

// ListFilter narrows history queries. A nil field means "no constraint".
type ListFilter struct {
	Status *Status
	Since  *time.Time
	Until  *time.Time
	Limit  int
}

// JobRepository defines persistence for job records. Implementations must
// honor the concurrency contract: CommitTerminal is a conditional write
// guarded on the record still being non-terminal, so that at most one
// terminal transition per job is ever durably committed, even across
// multiple service instances sharing one store.
type JobRepository interface {
	// Create inserts a new record. Fails with ErrDuplicateID if the id
	// already exists.
	Create(ctx context.Context, job *JobRecord) error

	// Get fetches a record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*JobRecord, error)

	// MarkProcessing moves a pending record to processing and attaches
	// the processor correlation token. Fails with ErrStaleWrite if the
	// record already left pending.
	MarkProcessing(ctx context.Context, id, dispatchID string) (*JobRecord, error)

	// CommitTerminal applies the outcome as the record's terminal state,
	// guarded on the current status being non-terminal. Fails with
	// ErrStaleWrite when another caller committed first.
	CommitTerminal(ctx context.Context, id string, out Outcome) (*JobRecord, error)

	// List returns records matching the filter, ordered by completion
	// time descending (records without one sort last, newest first).
	List(ctx context.Context, f ListFilter) ([]JobRecord, error)

	// ListNonTerminal returns records still awaiting an outcome, oldest
	// first, for the poll daemon.
	ListNonTerminal(ctx context.Context, limit int) ([]JobRecord, error)

	// ListStale returns non-terminal records untouched for longer than
	// age. Surfaced for an external supervisor; the service itself never
	// times a job out.
	ListStale(ctx context.Context, age time.Duration, limit int) ([]JobRecord, error)
}

// DispatchRequest is handed to the external processor when a job is
// submitted. WebhookURL is where the processor should push the outcome.
type DispatchRequest struct {
	JobID      string
	SourceURL  string
	Params     Parameters
	WebhookURL string
}

// DispatchAck is the processor's synchronous answer to a dispatch.
type DispatchAck struct {
	DispatchID string
	Accepted   bool
	Reason     string
}

// PollStatus is one observation of a dispatched job. Outcome is nil while
// the processor is still working; Progress is the reported completion
// fraction in [0, 1], negative when the processor did not report one.
type PollStatus struct {
	Outcome  *Outcome
	Progress float64
}

// Processor is the black-box external transformation service. Delivery of
// outcomes is at-least-once and possibly never; callers must tolerate
// duplicates and silence.
type Processor interface {
	Dispatch(ctx context.Context, req DispatchRequest) (*DispatchAck, error)
	Poll(ctx context.Context, dispatchID string) (*PollStatus, error)
}
