package handlers

import (
	"net/http"

	"github.com/akibsystems/showgeki2-sub002/internal/httpkit"
	"github.com/akibsystems/showgeki2-sub002/internal/models"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/errors"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
)

// webhookTypeVideoGeneration is the only webhook type this service handles.
const webhookTypeVideoGeneration = "video_generation"

// rateLimitMessage is persisted on jobs rejected at the admission gate, so
// the caller is not left with a dangling queued record.
const rateLimitMessage = "Rate limit exceeded: too many concurrent video generation requests"

type webhookRequest struct {
	Type    string     `json:"type"`
	Payload models.Job `json:"payload"`
}

// Webhook accepts one job per call. In synchronous mode the caller blocks
// until the job reaches a terminal status; in standalone mode the request is
// only acknowledged and the poller picks the job up.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var req webhookRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Invalid JSON",
		})
		return
	}

	if req.Type != webhookTypeVideoGeneration {
		httpkit.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error": "unsupported webhook type: " + req.Type,
		})
		return
	}

	job := req.Payload

	if h.standalone {
		h.acknowledge(w, r, &job)
		return
	}

	// Admission before any work. At the ceiling the call fails fast with
	// 429 instead of queueing; predictability over throughput.
	if !h.gate.TryAcquire() {
		rejection := errors.ResourceExhausted(rateLimitMessage)
		log.Warn("admission ceiling exceeded",
			"job_id", job.ID,
			"active", h.gate.Active(),
			"max", h.gate.Limit(),
		)
		h.markRejected(r, &job)
		httpkit.WriteJSON(w, rejection.HTTPStatus(), map[string]any{
			"error":          rejection.Message,
			"activeRequests": h.gate.Active(),
			"maxRequests":    h.gate.Limit(),
		})
		return
	}
	defer h.gate.Release()

	jobCtx := logger.ContextWithJobID(ctx, job.ID)
	if err := h.processor.ProcessJob(jobCtx, &job); err != nil {
		httpkit.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
			"jobId":   job.ID,
		})
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"jobId":   job.ID,
	})
}

// acknowledge is the standalone-mode path: no processing, just a receipt
// and a poller nudge.
func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request, job *models.Job) {
	if h.rdb != nil && job.ID != "" {
		if err := h.rdb.LPush(r.Context(), h.queueName, job.ID).Err(); err != nil {
			h.log.Warn("poller nudge failed", "job_id", job.ID, "error", err.Error())
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"jobId":   job.ID,
	})
}

// markRejected eagerly fails the job record of a rejected submission when
// the payload identifies one.
func (h *Handler) markRejected(r *http.Request, job *models.Job) {
	if job.ID == "" {
		return
	}
	if err := h.store.MarkFailed(r.Context(), job.ID, rateLimitMessage); err != nil {
		if !errors.Is(err, ports.ErrJobNotFound) {
			h.log.Warn("failed to mark rejected job", "job_id", job.ID, "error", err.Error())
		}
	}
}
