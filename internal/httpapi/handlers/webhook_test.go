package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akibsystems/showgeki2-sub002/internal/admission"
	"github.com/akibsystems/showgeki2-sub002/internal/models"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
)

const webhookTestJobID = "7b7c6a7e-3f1e-4a8e-9b1a-2f3c4d5e6f70"

type handlerStore struct {
	failed    map[string]string
	failedErr error
}

func newHandlerStore() *handlerStore {
	return &handlerStore{failed: make(map[string]string)}
}

func (s *handlerStore) MarkProcessing(ctx context.Context, job *models.Job) error { return nil }

func (s *handlerStore) MarkCompleted(ctx context.Context, jobID string, out *models.Output) error {
	return nil
}

func (s *handlerStore) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	if s.failedErr != nil {
		return s.failedErr
	}
	s.failed[jobID] = errMsg
	return nil
}

func (s *handlerStore) GetStatus(ctx context.Context, jobID string) (models.Status, error) {
	return "", ports.ErrJobNotFound
}

func (s *handlerStore) OldestQueued(ctx context.Context) (*models.Job, error) {
	return nil, ports.ErrNoQueuedJobs
}

func (s *handlerStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return nil, ports.ErrJobNotFound
}

type stubRunner struct {
	calls []string
	err   error
}

func (r *stubRunner) ProcessJob(ctx context.Context, job *models.Job) error {
	r.calls = append(r.calls, job.ID)
	return r.err
}

func newWebhookHandler(store *handlerStore, runner *stubRunner, gate *admission.Gate, standalone bool) *Handler {
	if gate == nil {
		gate = admission.New(1)
	}
	return New(Deps{
		Store:      store,
		Processor:  runner,
		Gate:       gate,
		Standalone: standalone,
	})
}

func webhookBody(t *testing.T, jobID string) string {
	t.Helper()
	return fmt.Sprintf(`{
		"type": "video_generation",
		"payload": {
			"jobId": %q,
			"parentStoryId": "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d",
			"ownerId": "u1",
			"script": {
				"beats": [{"speaker": "A", "text": "hi", "imageDescription": "x"}]
			}
		}
	}`, jobID)
}

func postWebhook(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not json: %v", err)
	}
	return got
}

func TestWebhookInvalidJSON(t *testing.T) {
	h := newWebhookHandler(newHandlerStore(), &stubRunner{}, nil, false)

	rec := postWebhook(h, "{not json")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["error"] != "Invalid JSON" {
		t.Errorf("error=%q, want Invalid JSON", got["error"])
	}
}

func TestWebhookUnsupportedType(t *testing.T) {
	h := newWebhookHandler(newHandlerStore(), &stubRunner{}, nil, false)

	rec := postWebhook(h, `{"type": "image_generation", "payload": {}}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rec.Code)
	}
}

func TestWebhookSynchronousSuccess(t *testing.T) {
	store := newHandlerStore()
	runner := &stubRunner{}
	gate := admission.New(1)
	h := newWebhookHandler(store, runner, gate, false)

	rec := postWebhook(h, webhookBody(t, webhookTestJobID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["success"] != true {
		t.Errorf("success=%v, want true", got["success"])
	}
	if got["jobId"] != webhookTestJobID {
		t.Errorf("jobId=%v, want %s", got["jobId"], webhookTestJobID)
	}
	if len(runner.calls) != 1 {
		t.Errorf("expected one processed job, got %v", runner.calls)
	}
	if gate.Active() != 0 {
		t.Errorf("gate not released: active=%d", gate.Active())
	}
}

func TestWebhookSynchronousProcessingFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("render failed: exit code 1")}
	gate := admission.New(1)
	h := newWebhookHandler(newHandlerStore(), runner, gate, false)

	rec := postWebhook(h, webhookBody(t, webhookTestJobID))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status=%d, want 500", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["success"] != false {
		t.Errorf("success=%v, want false", got["success"])
	}
	if got["jobId"] != webhookTestJobID {
		t.Errorf("jobId=%v, want %s", got["jobId"], webhookTestJobID)
	}
	if gate.Active() != 0 {
		t.Errorf("gate not released after failure: active=%d", gate.Active())
	}
}

func TestWebhookAdmissionCeiling(t *testing.T) {
	store := newHandlerStore()
	runner := &stubRunner{}
	gate := admission.New(1)
	if !gate.TryAcquire() {
		t.Fatal("failed to saturate gate")
	}
	h := newWebhookHandler(store, runner, gate, false)

	rec := postWebhook(h, webhookBody(t, webhookTestJobID))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["error"] != rateLimitMessage {
		t.Errorf("error=%q, want %q", got["error"], rateLimitMessage)
	}
	if got["activeRequests"] != float64(1) {
		t.Errorf("activeRequests=%v, want 1", got["activeRequests"])
	}
	if got["maxRequests"] != float64(1) {
		t.Errorf("maxRequests=%v, want 1", got["maxRequests"])
	}

	if len(runner.calls) != 0 {
		t.Errorf("rejected job must not be processed, got %v", runner.calls)
	}
	if store.failed[webhookTestJobID] != rateLimitMessage {
		t.Errorf("rejected job record=%q, want rate limit message", store.failed[webhookTestJobID])
	}
	if gate.Active() != 1 {
		t.Errorf("rejection must not release the held ticket: active=%d", gate.Active())
	}
}

func TestWebhookAdmissionCeilingUnknownJob(t *testing.T) {
	// A rejection for a payload the store has never seen is still a clean 429.
	store := newHandlerStore()
	store.failedErr = ports.ErrJobNotFound
	gate := admission.New(1)
	gate.TryAcquire()
	h := newWebhookHandler(store, &stubRunner{}, gate, false)

	rec := postWebhook(h, webhookBody(t, webhookTestJobID))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status=%d, want 429", rec.Code)
	}
}

func TestWebhookStandaloneAcknowledges(t *testing.T) {
	runner := &stubRunner{}
	h := newWebhookHandler(newHandlerStore(), runner, nil, true)

	rec := postWebhook(h, webhookBody(t, webhookTestJobID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["success"] != true {
		t.Errorf("success=%v, want true", got["success"])
	}
	if len(runner.calls) != 0 {
		t.Errorf("standalone mode must not process inline, got %v", runner.calls)
	}
}
