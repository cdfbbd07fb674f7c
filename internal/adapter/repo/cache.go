package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"videomorph/internal/domain"
)

const (
	cachePrefix       = "videomorph:job:"
	liveRecordTTL     = 5 * time.Second
	terminalRecordTTL = 10 * time.Minute
)

// CachedJobRepository decorates a JobRepository with a Redis read-through
// cache for single-record reads. The cache is a projection, never the
// source of truth: terminal records are cached long since they are
// immutable, live records only briefly, and every write path invalidates
// the key. Cache errors degrade to the inner repository.
type CachedJobRepository struct {
	domain.JobRepository
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewCachedJobRepository wraps inner with a Redis read-through cache.
func NewCachedJobRepository(inner domain.JobRepository, rdb *redis.Client, logger zerolog.Logger) *CachedJobRepository {
	return &CachedJobRepository{JobRepository: inner, rdb: rdb, logger: logger}
}

func (c *CachedJobRepository) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	key := cachePrefix + id
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var job domain.JobRecord
		if err := json.Unmarshal(raw, &job); err == nil {
			return &job, nil
		}
		c.invalidate(ctx, id)
	} else if err != redis.Nil {
		c.logger.Warn().Err(err).Str("job_id", id).Msg("cache: read failed")
	}

	job, err := c.JobRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, job)
	return job, nil
}

func (c *CachedJobRepository) MarkProcessing(ctx context.Context, id, dispatchID string) (*domain.JobRecord, error) {
	c.invalidate(ctx, id)
	return c.JobRepository.MarkProcessing(ctx, id, dispatchID)
}

func (c *CachedJobRepository) CommitTerminal(ctx context.Context, id string, out domain.Outcome) (*domain.JobRecord, error) {
	c.invalidate(ctx, id)
	job, err := c.JobRepository.CommitTerminal(ctx, id, out)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, job)
	return job, nil
}

func (c *CachedJobRepository) fill(ctx context.Context, job *domain.JobRecord) {
	raw, err := json.Marshal(job)
	if err != nil {
		return
	}
	ttl := liveRecordTTL
	if job.Status.IsTerminal() {
		ttl = terminalRecordTTL
	}
	if err := c.rdb.Set(ctx, cachePrefix+job.ID, raw, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("job_id", job.ID).Msg("cache: fill failed")
	}
}

func (c *CachedJobRepository) invalidate(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, cachePrefix+id).Err(); err != nil {
		c.logger.Warn().Err(err).Str("job_id", id).Msg("cache: invalidate failed")
	}
}

var _ domain.JobRepository = (*CachedJobRepository)(nil)
