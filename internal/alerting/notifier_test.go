package alerting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNotifyFailureDeliversPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type=%q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("payload is not json: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, nil)
	n.NotifyFailure(context.Background(), "job-1", "story-1", "render failed")

	if got["job_id"] != "job-1" {
		t.Errorf("job_id=%v, want job-1", got["job_id"])
	}
	if got["story_id"] != "story-1" {
		t.Errorf("story_id=%v, want story-1", got["story_id"])
	}
	if got["error"] != "render failed" {
		t.Errorf("error=%v, want render failed", got["error"])
	}
	text, _ := got["text"].(string)
	if !strings.Contains(text, "job-1") || !strings.Contains(text, "render failed") {
		t.Errorf("text=%q should name the job and the error", text)
	}
}

func TestNotifyFailureSwallowsDeliveryErrors(t *testing.T) {
	// Unreachable endpoint: the call must return without error or panic.
	n := NewWebhookNotifier("http://127.0.0.1:1/alerts", nil)
	n.NotifyFailure(context.Background(), "job-1", "story-1", "render failed")
}

func TestNotifyFailureSwallowsRejections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, nil)
	n.NotifyFailure(context.Background(), "job-1", "story-1", "render failed")
}
