package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/akibsystems/showgeki2-sub002/internal/httpkit"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/errors"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
)

// GetJob reads back the persisted job record, the cross-reference target
// for every jobId this service hands out in responses and alerts.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, ports.ErrJobNotFound) {
			httpkit.WriteJSON(w, http.StatusNotFound, map[string]any{
				"error": "job not found",
				"jobId": jobID,
			})
			return
		}
		h.log.FromContext(ctx).Error("job lookup failed", "job_id", jobID, "error", err.Error())
		httpkit.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "job lookup failed",
			"jobId": jobID,
		})
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"job": job})
}
