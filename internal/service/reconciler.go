package service

import (
	"context"
	"errors"
	"fmt"

	"videomorph/internal/domain"
)

// maxCommitRetries bounds the read-modify-write loop under store
// conflicts. Exceeding it is surfaced as a transient failure, never
// dropped.
const maxCommitRetries = 3

// reconcile applies an outcome idempotently. An already-terminal record
// is returned unchanged, which is what absorbs at-least-once delivery
// and overlapping webhook and poll races: the loser of a conditional
// write re-reads, finds the winner's terminal state and returns it as if
// its own outcome had been the discarded duplicate. Any non-terminal
// pre-state is eligible, so a webhook racing ahead of the
// dispatch-acknowledgment transition still lands.
func (o *Orchestrator) reconcile(ctx context.Context, id string, out domain.Outcome) (*domain.JobRecord, error) {
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		job, err := o.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			o.logger.Debug().Str("job_id", id).Str("status", string(job.Status)).Msg("duplicate outcome discarded")
			return job, nil
		}

		job, err = o.repo.CommitTerminal(ctx, id, out)
		if err == nil {
			o.logger.Info().Str("job_id", id).Str("status", string(job.Status)).Msg("terminal state committed")
			return job, nil
		}
		if !errors.Is(err, domain.ErrStaleWrite) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("job %s: %w", id, domain.ErrConflictRetriesExhausted)
}
