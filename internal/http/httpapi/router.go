package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"videomorph/internal/http/handlers"
	"videomorph/internal/middleware"
)

// Options tunes the router beyond the handler container itself.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	StaticDir       string
}

// NewRouter assembles the API surface.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/transform", func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/", app.TransformSubmit)
		} else {
			r.Post("/", app.TransformSubmit)
		}
		r.Get("/{id}", app.TransformStatus)
	})

	r.Get("/v1/history", app.History)
	r.Post("/v1/webhook", app.Webhook)
	r.Post("/v1/upload", app.Upload)

	if opts.StaticDir != "" {
		fs := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
