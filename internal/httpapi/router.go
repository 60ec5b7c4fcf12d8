// Package httpapi wires the chi router of the clipforge API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clipforge/internal/httpapi/handlers"
	"clipforge/internal/httpkit"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/pkg/middleware"
)

const requestTimeout = 30 * time.Second

type Deps struct {
	Jobs           handlers.JobService
	Checks         []handlers.Check
	AllowedOrigins []string
	Version        string
	Log            *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	h := handlers.New(handlers.Deps{
		Jobs:    d.Jobs,
		Checks:  d.Checks,
		Version: d.Version,
		Log:     d.Log,
	})
	log := h.Log()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Location"},
		MaxAgeSeconds:  600,
	}))
	r.Use(middleware.Timeout(requestTimeout))

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- JOBS ----
	r.Post("/jobs", middleware.WrapHandler(log, h.PostJob))
	r.Get("/jobs/{jobId}", middleware.WrapHandler(log, h.GetJob))

	return r
}
