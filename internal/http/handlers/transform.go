package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"videomorph/internal/domain"
	"videomorph/internal/service"
)

type transformParameters struct {
	Style          string  `json:"style"`
	Intensity      float64 `json:"intensity"`
	Duration       int     `json:"duration"`
	EnhanceQuality bool    `json:"enhanceQuality"`
	Stabilize      bool    `json:"stabilize"`
	Resolution     string  `json:"resolution"`
}

type transformRequest struct {
	SourceURL  string              `json:"sourceUrl"`
	SourceName string              `json:"sourceName"`
	Parameters transformParameters `json:"parameters"`
}

type transformAccepted struct {
	ID     string        `json:"id"`
	Status domain.Status `json:"status"`
}

// normalizeIntensity converts boundary intensity values onto the
// canonical 0-100 integer scale. Fractional values strictly inside
// (0, 1) are treated as the legacy 0.0-1.0 unit and scaled; any other
// non-integral value is rejected rather than guessed at.
func normalizeIntensity(v float64) (int, error) {
	if v > 0 && v < 1 {
		return int(math.Round(v * 100)), nil
	}
	if v != math.Trunc(v) {
		return 0, errors.New("intensity must be an integer percentage or a fraction below 1")
	}
	return int(v), nil
}

// TransformSubmit accepts a new transformation job. Unknown fields in
// the payload are rejected; the parameter object is closed.
func (a *App) TransformSubmit(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var req transformRequest
	if err := dec.Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload: "+err.Error())
		return
	}
	if req.SourceURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "sourceUrl is required")
		return
	}
	intensity, err := normalizeIntensity(req.Parameters.Intensity)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		return
	}

	job, err := a.Jobs.Submit(r.Context(), service.SubmitRequest{
		SourceURL:  req.SourceURL,
		SourceName: req.SourceName,
		Params: domain.Parameters{
			Style:          req.Parameters.Style,
			Intensity:      intensity,
			Duration:       req.Parameters.Duration,
			EnhanceQuality: req.Parameters.EnhanceQuality,
			Stabilize:      req.Parameters.Stabilize,
			Resolution:     req.Parameters.Resolution,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidParameters):
			a.error(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		case errors.Is(err, domain.ErrDispatchFailure):
			a.error(w, http.StatusBadGateway, "dispatch_failure", err.Error())
		default:
			a.Logger.Error().Err(err).Msg("submit failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to submit transformation")
		}
		return
	}

	a.json(w, http.StatusAccepted, transformAccepted{ID: job.ID, Status: job.Status})
}

// TransformStatus returns the external projection of one job.
func (a *App) TransformStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id is required")
		return
	}
	job, err := a.Jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "transformation not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", id).Msg("get failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load transformation")
		return
	}
	a.json(w, http.StatusOK, service.ProjectJob(job, a.now()))
}

// History lists jobs, most recently completed first, capped at 10 per
// page. Optional filters: status, since, until (RFC 3339).
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	var f domain.ListFilter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status := domain.Status(raw)
		if !status.Valid() {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown status "+raw)
			return
		}
		f.Status = &status
	}
	for param, dst := range map[string]**time.Time{"since": &f.Since, "until": &f.Until} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", param+" must be RFC 3339")
			return
		}
		*dst = &ts
	}

	jobs, err := a.Jobs.History(r.Context(), f)
	if err != nil {
		a.Logger.Error().Err(err).Msg("history failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": service.ProjectJobs(jobs, a.now())})
}
