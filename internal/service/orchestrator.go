package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"videomorph/internal/domain"
)

// SubmitRequest carries a validated-on-entry submission.
type SubmitRequest struct {
	SourceURL  string
	SourceName string
	Params     domain.Parameters
}

// Orchestrator owns the job state machine. Every lifecycle event, from
// the submit handler, the webhook handler and the poll daemon alike,
// funnels through it; nothing else mutates a job record.
type Orchestrator struct {
	repo       domain.JobRepository
	processor  domain.Processor
	webhookURL string
	logger     zerolog.Logger
	now        func() time.Time
	newID      func() string
}

// NewOrchestrator creates an orchestrator. webhookURL is the callback
// address handed to the external processor on every dispatch.
func NewOrchestrator(repo domain.JobRepository, processor domain.Processor, webhookURL string, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		processor:  processor,
		webhookURL: webhookURL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Submit validates the request, creates the record and dispatches the
// external processor. On success the returned record is at processing.
//
// A dispatch that cannot be initiated, or that the processor rejects,
// commits the record to failed and is reported as an error of Submit
// itself: no job number was successfully handed downstream, so a silent
// async failure would strand the caller.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*domain.JobRecord, error) {
	if req.SourceURL == "" {
		return nil, fmt.Errorf("%w: sourceUrl is required", domain.ErrInvalidParameters)
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if req.Params.Resolution == "" {
		req.Params.Resolution = "720p"
	}

	now := o.now()
	job := &domain.JobRecord{
		ID:         o.newID(),
		SourceURL:  req.SourceURL,
		SourceName: req.SourceName,
		Params:     req.Params,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	ack, err := o.processor.Dispatch(ctx, domain.DispatchRequest{
		JobID:      job.ID,
		SourceURL:  job.SourceURL,
		Params:     job.Params,
		WebhookURL: o.webhookURL,
	})
	if err != nil {
		return nil, o.failDispatch(ctx, job.ID, fmt.Sprintf("dispatch not initiated: %v", err))
	}
	if !ack.Accepted {
		return nil, o.failDispatch(ctx, job.ID, "processor rejected dispatch: "+ack.Reason)
	}

	job, err = o.repo.MarkProcessing(ctx, job.ID, ack.DispatchID)
	if err != nil {
		// A webhook can land before the acknowledgment transition; the
		// record is then already terminal and that result stands.
		if errors.Is(err, domain.ErrStaleWrite) {
			return o.repo.Get(ctx, job.ID)
		}
		return nil, err
	}

	o.logger.Info().Str("job_id", job.ID).Str("style", job.Params.Style).Msg("job dispatched")
	return job, nil
}

// failDispatch records the terminal failure and reports it to the
// submitter. The record stays queryable with its failure reason even
// though Submit returns an error.
func (o *Orchestrator) failDispatch(ctx context.Context, id, reason string) error {
	if _, err := o.reconcile(ctx, id, domain.Outcome{Reason: reason}); err != nil {
		o.logger.Error().Err(err).Str("job_id", id).Msg("failed to record dispatch failure")
	}
	return fmt.Errorf("%w: %s", domain.ErrDispatchFailure, reason)
}

// ApplyExternalResult merges a completion signal into job state. It is
// safe to call any number of times, from either notification channel, in
// any order, including concurrently.
func (o *Orchestrator) ApplyExternalResult(ctx context.Context, id string, out domain.Outcome) (*domain.JobRecord, error) {
	return o.reconcile(ctx, id, out)
}

// Get returns the current record for id.
func (o *Orchestrator) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	return o.repo.Get(ctx, id)
}

// History returns records matching the filter, most recently completed
// first.
func (o *Orchestrator) History(ctx context.Context, f domain.ListFilter) ([]domain.JobRecord, error) {
	return o.repo.List(ctx, f)
}
