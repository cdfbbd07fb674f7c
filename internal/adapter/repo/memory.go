package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"videomorph/internal/domain"
)

// Memory is an in-process domain.JobRepository with the same conditional
// write semantics as the PostgreSQL implementation. It backs local and CI
// runs where a database is not available, and the service tests.
type Memory struct {
	mu   sync.Mutex
	jobs map[string]domain.JobRecord
	now  func() time.Time
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		jobs: make(map[string]domain.JobRecord),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the repository clock, for tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Create(ctx context.Context, job *domain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("job %s: %w", job.ID, domain.ErrDuplicateID)
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *Memory) MarkProcessing(ctx context.Context, id, dispatchID string) (*domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status != domain.StatusPending {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrStaleWrite)
	}
	job.Status = domain.StatusProcessing
	job.DispatchID = dispatchID
	job.UpdatedAt = m.now()
	m.jobs[id] = job
	return &job, nil
}

func (m *Memory) CommitTerminal(ctx context.Context, id string, out domain.Outcome) (*domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrStaleWrite)
	}
	now := m.now()
	job.Status = out.TerminalStatus()
	// A result url belongs to completed records only, a failure reason to
	// failed ones; mismatched outcome fields are dropped.
	job.ResultURL = ""
	job.FailureReason = ""
	job.UpdatedAt = now
	if job.Status == domain.StatusCompleted {
		job.ResultURL = out.ResultURL
		completed := now
		job.CompletedAt = &completed
	} else {
		job.FailureReason = out.Reason
	}
	m.jobs[id] = job
	return &job, nil
}

func (m *Memory) List(ctx context.Context, f domain.ListFilter) ([]domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []domain.JobRecord
	for _, job := range m.jobs {
		if f.Status != nil && job.Status != *f.Status {
			continue
		}
		if f.Since != nil && job.CreatedAt.Before(*f.Since) {
			continue
		}
		if f.Until != nil && job.CreatedAt.After(*f.Until) {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		switch {
		case a.CompletedAt != nil && b.CompletedAt != nil:
			return a.CompletedAt.After(*b.CompletedAt)
		case a.CompletedAt != nil:
			return true
		case b.CompletedAt != nil:
			return false
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
	return capJobs(jobs, f.Limit), nil
}

func (m *Memory) ListNonTerminal(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []domain.JobRecord
	for _, job := range m.jobs {
		if !job.Status.IsTerminal() {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return capJobs(jobs, limit), nil
}

func (m *Memory) ListStale(ctx context.Context, age time.Duration, limit int) ([]domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-age)
	var jobs []domain.JobRecord
	for _, job := range m.jobs {
		if !job.Status.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].UpdatedAt.Before(jobs[j].UpdatedAt) })
	return capJobs(jobs, limit), nil
}

func capJobs(jobs []domain.JobRecord, limit int) []domain.JobRecord {
	n := normalizeLimit(limit)
	if len(jobs) > n {
		jobs = jobs[:n]
	}
	return jobs
}

var _ domain.JobRepository = (*Memory)(nil)
