package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"videomorph/internal/domain"
	"videomorph/internal/service"
)

// Poller is the pull half of the dual completion channels. At a fixed
// client-paced interval it asks the external processor for the state of
// every non-terminal job and feeds any outcome through the same
// reconciliation path the webhook uses. A failed poll round simply waits
// for the next tick; it never mutates job state destructively and never
// accumulates a backlog.
type Poller struct {
	repo      domain.JobRepository
	processor domain.Processor
	orch      *service.Orchestrator
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

// New creates a poller. batchSize bounds how many in-flight jobs one
// tick examines.
func New(repo domain.JobRepository, processor domain.Processor, orch *service.Orchestrator, interval time.Duration, batchSize int, logger zerolog.Logger) *Poller {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Poller{
		repo:      repo,
		processor: processor,
		orch:      orch,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().Dur("interval", p.interval).Msg("poller: started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one poll round: list in-flight jobs, poll each once.
func (p *Poller) Tick(ctx context.Context) {
	jobs, err := p.repo.ListNonTerminal(ctx, p.batchSize)
	if err != nil {
		p.logger.Error().Err(err).Msg("poller: list non-terminal jobs failed")
		return
	}
	for i := range jobs {
		p.pollJob(ctx, &jobs[i])
	}
}

func (p *Poller) pollJob(ctx context.Context, job *domain.JobRecord) {
	if job.DispatchID == "" {
		// Not yet acknowledged by the processor; nothing to ask about.
		return
	}

	status, err := p.processor.Poll(ctx, job.DispatchID)
	if err != nil {
		p.logger.Warn().Err(err).Str("job_id", job.ID).Msg("poller: poll failed, will retry next tick")
		return
	}
	if status.Outcome == nil {
		p.logger.Debug().
			Str("job_id", job.ID).
			Float64("progress", service.EstimateProgress(time.Since(job.CreatedAt), status.Progress)).
			Msg("poller: still processing")
		return
	}

	if _, err := p.orch.ApplyExternalResult(ctx, job.ID, *status.Outcome); err != nil {
		p.logger.Error().Err(err).Str("job_id", job.ID).Msg("poller: apply outcome failed")
	}
}
