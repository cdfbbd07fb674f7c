package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"videomorph/internal/domain"
)

type webhookPayload struct {
	JobID     string `json:"jobId"`
	ResultURL string `json:"resultUrl"`
	Error     string `json:"error"`
}

// Webhook receives outcome pushes from the external processor. Once
// reconciliation ran, the response is 200 even when the outcome was
// discarded as a duplicate, so the processor does not retry duplicates
// indefinitely.
func (a *App) Webhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if payload.JobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "jobId is required")
		return
	}
	if payload.ResultURL == "" && payload.Error == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "resultUrl or error is required")
		return
	}

	out := domain.Outcome{Reason: payload.Error}
	if payload.ResultURL != "" {
		out = domain.Outcome{Success: true, ResultURL: payload.ResultURL}
	}

	job, err := a.Jobs.ApplyExternalResult(r.Context(), payload.JobID, out)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "unknown job "+payload.JobID)
		case errors.Is(err, domain.ErrConflictRetriesExhausted):
			a.error(w, http.StatusServiceUnavailable, "conflict", "could not apply outcome, retry")
		default:
			a.Logger.Error().Err(err).Str("job_id", payload.JobID).Msg("webhook reconciliation failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to process webhook")
		}
		return
	}

	a.json(w, http.StatusOK, map[string]any{"success": true, "status": job.Status})
}
