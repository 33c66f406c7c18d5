package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tryon/internal/http/handlers"
	"tryon/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	if app.Config.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.RequestID(app.Logger),
		middleware.AccessLog(app.Registry),
		chimw.Recoverer,
		middleware.CORS(app.Config.AllowedOrigins),
	)

	limitGenerate := middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)
	limitSessions := middleware.RateLimit(app.Config.SessionRateLimitPerMin, time.Minute)

	r.With(limitGenerate).Post("/api/generate", app.Generate)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/colors", app.Colors)
		r.Get("/metrics", app.Metrics)

		r.Route("/session", func(r chi.Router) {
			r.With(limitSessions).Post("/", app.CreateSession)
			r.Get("/", app.GetSession)
			r.Delete("/", app.ResetSession)
			r.Put("/color", app.SetColor)
			r.With(limitSessions).Put("/photo", app.SetPhoto)
			r.With(limitGenerate).Post("/generate", app.GenerateForSession)
			r.Get("/result", app.DownloadResult)
			r.Delete("/result", app.ClearResult)
			r.Get("/steps/{step}", app.EnterStep)
		})
	})

	return r
}
