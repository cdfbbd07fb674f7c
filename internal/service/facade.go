package service

import (
	"time"

	"videomorph/internal/domain"
)

// JobView is the externally visible projection of a job record. Internal
// bookkeeping (the processor correlation token, failure plumbing) never
// appears here, and the field set is stable regardless of how the record
// is represented internally.
type JobView struct {
	ID          string            `json:"id"`
	SourceURL   string            `json:"sourceUrl"`
	SourceName  string            `json:"sourceName,omitempty"`
	ResultURL   string            `json:"resultUrl,omitempty"`
	Parameters  domain.Parameters `json:"parameters"`
	Status      domain.Status     `json:"status"`
	Error       string            `json:"error,omitempty"`
	Progress    *float64          `json:"progress,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// ProjectJob maps a record to its external shape. While the job is
// processing, an advisory progress estimate derived from elapsed time is
// attached; terminal and pending records carry none.
func ProjectJob(job *domain.JobRecord, now time.Time) JobView {
	view := JobView{
		ID:          job.ID,
		SourceURL:   job.SourceURL,
		SourceName:  job.SourceName,
		ResultURL:   job.ResultURL,
		Parameters:  job.Params,
		Status:      job.Status,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Status == domain.StatusFailed {
		view.Error = job.FailureReason
	}
	if job.Status == domain.StatusProcessing {
		p := EstimateProgress(now.Sub(job.CreatedAt), -1)
		view.Progress = &p
	}
	return view
}

// ProjectJobs applies the projection per item.
func ProjectJobs(jobs []domain.JobRecord, now time.Time) []JobView {
	views := make([]JobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, ProjectJob(&jobs[i], now))
	}
	return views
}
