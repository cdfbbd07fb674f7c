package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"videomorph/internal/service"
	"videomorph/internal/storage"
)

// App is the handler container wired by the router.
type App struct {
	Jobs           *service.Orchestrator
	Uploads        *storage.FileStore
	StorageBaseURL string
	MaxUploadBytes int64
	Logger         zerolog.Logger

	// now is overridable for tests.
	now func() time.Time
}

// NewApp builds the handler container.
func NewApp(jobs *service.Orchestrator, uploads *storage.FileStore, storageBaseURL string, maxUploadBytes int64, logger zerolog.Logger) *App {
	return &App{
		Jobs:           jobs,
		Uploads:        uploads,
		StorageBaseURL: storageBaseURL,
		MaxUploadBytes: maxUploadBytes,
		Logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
