package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/akibsystems/showgeki2-sub002/internal/httpkit"
)

// Health is a constant-time liveness probe. It answers plain text unless a
// deep check is requested.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("deep") != "true" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}

	checks := h.deepHealthCheck(ctx)

	status := "ok"
	for _, check := range checks {
		if checkMap, ok := check.(map[string]any); ok {
			if checkMap["status"] != "ok" {
				status = "degraded"
				h.log.FromContext(ctx).Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"service": "showgeki2-worker",
		"checks":  checks,
	})
}

func (h *Handler) deepHealthCheck(ctx context.Context) map[string]any {
	checks := make(map[string]any)

	checks["postgres"] = h.checkPostgres(ctx)
	if h.rdb != nil {
		checks["redis"] = h.checkRedis(ctx)
	}
	checks["storage"] = h.checkStorage(ctx)

	return checks
}

func (h *Handler) checkPostgres(ctx context.Context) map[string]any {
	start := time.Now()
	result := map[string]any{
		"status": "ok",
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if h.pool == nil {
		result["status"] = "error"
		result["error"] = "pool not configured"
		return result
	}

	if err := h.pool.Ping(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	} else {
		stats := h.pool.Stat()
		result["total_conns"] = stats.TotalConns()
		result["idle_conns"] = stats.IdleConns()
		result["acquired_conns"] = stats.AcquiredConns()
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkRedis(ctx context.Context) map[string]any {
	start := time.Now()
	result := map[string]any{
		"status": "ok",
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.rdb.Ping(checkCtx).Err(); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkStorage(_ context.Context) map[string]any {
	result := map[string]any{
		"status": "ok",
	}
	if h.sp != nil {
		result["provider"] = h.sp.Provider()
	}
	return result
}
