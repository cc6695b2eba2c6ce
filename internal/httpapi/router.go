package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/akibsystems/showgeki2-sub002/internal/httpapi/handlers"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/middleware"
)

// NewRouter builds the ingress surface: health probe, webhook, job read-back.
func NewRouter(d handlers.Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	h := handlers.New(d)

	r.Get("/health", h.Health)
	r.Post("/webhook", h.Webhook)
	r.Get("/jobs/{jobId}", h.GetJob)

	return r
}
