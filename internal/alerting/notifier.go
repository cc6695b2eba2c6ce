// Package alerting posts best-effort failure alerts to an external endpoint.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
)

// WebhookNotifier implements ports.Notifier over a plain HTTP webhook.
// Delivery failures are logged and dropped; alerting never masks the job's
// own failure status.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    *logger.Logger
}

func NewWebhookNotifier(url string, log *logger.Logger) *WebhookNotifier {
	if log == nil {
		log = logger.NewDefault()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.WithComponent("alerting"),
	}
}

func (n *WebhookNotifier) NotifyFailure(ctx context.Context, jobID, storyID, errMsg string) {
	payload := map[string]any{
		"text": fmt.Sprintf("video render failed\njob: %s\nstory: %s\nerror: %s",
			jobID, storyID, errMsg),
		"job_id":    jobID,
		"story_id":  storyID,
		"error":     errMsg,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Warn("alert payload marshal failed", "error", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Warn("alert request build failed", "error", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("alert delivery failed", "job_id", jobID, "error", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.log.Warn("alert endpoint rejected message",
			"job_id", jobID,
			"status", resp.StatusCode,
		)
	}
}

// NopNotifier is used when no alert endpoint is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyFailure(ctx context.Context, jobID, storyID, errMsg string) {}
