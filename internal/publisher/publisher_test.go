package publisher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/akibsystems/showgeki2-sub002/internal/admission"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
)

type fakeStorage struct {
	calls   int
	errs    []error
	out     ports.PutObjectOutput
	deleted []string
	delErr  error
}

func (f *fakeStorage) Provider() string { return "fake" }

func (f *fakeStorage) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return ports.PutObjectOutput{}, f.errs[idx]
	}
	return f.out, nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return f.delErr
}

func artifactFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output.mp4")
	if err := os.WriteFile(path, []byte("fake video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPublisher(sp ports.StorageProvider, gate *admission.Gate) (*Publisher, *[]time.Duration) {
	p := New(sp, gate, Config{
		MaxRetries:     3,
		BaseBackoff:    2 * time.Second,
		AttemptTimeout: time.Minute,
	}, nil)

	var sleeps []time.Duration
	p.sleep = func(d time.Duration) {
		sleeps = append(sleeps, d)
	}
	return p, &sleeps
}

func transientErr() error {
	return fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
}

func TestRetryBoundOnTransientFailure(t *testing.T) {
	sp := &fakeStorage{errs: []error{transientErr(), transientErr(), transientErr(), transientErr(), transientErr()}}
	gate := admission.New(2)
	p, sleeps := newTestPublisher(sp, gate)

	_, err := p.Publish(context.Background(), "job-1", artifactFile(t))
	if err == nil {
		t.Fatal("expected publish to fail")
	}

	// 1 initial attempt + 3 retries, no more.
	if sp.calls != 4 {
		t.Errorf("expected 4 upload attempts, got %d", sp.calls)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected %d backoff sleeps, got %v", len(want), *sleeps)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("backoff %d = %v, want %v", i, (*sleeps)[i], d)
		}
	}

	if gate.Active() != 0 {
		t.Errorf("publish gate leaked: active=%d", gate.Active())
	}
}

func TestPermanentErrorNotRetried(t *testing.T) {
	sp := &fakeStorage{errs: []error{errors.New("403 insufficient permissions")}}
	gate := admission.New(2)
	p, sleeps := newTestPublisher(sp, gate)

	_, err := p.Publish(context.Background(), "job-1", artifactFile(t))
	if err == nil {
		t.Fatal("expected publish to fail")
	}
	if sp.calls != 1 {
		t.Errorf("expected 1 upload attempt, got %d", sp.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no backoff, got %v", *sleeps)
	}
	if gate.Active() != 0 {
		t.Errorf("publish gate leaked: active=%d", gate.Active())
	}
}

func TestSuccessAfterTransientFailures(t *testing.T) {
	sp := &fakeStorage{
		errs: []error{transientErr(), transientErr()},
		out:  ports.PutObjectOutput{ObjectKey: "videos/job-1.mp4", Size: 10, PublicURL: "https://cdn.example/videos/job-1.mp4"},
	}
	gate := admission.New(2)
	p, _ := newTestPublisher(sp, gate)

	out, err := p.Publish(context.Background(), "job-1", artifactFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.calls != 3 {
		t.Errorf("expected 3 upload attempts, got %d", sp.calls)
	}
	if out.PublicURL != "https://cdn.example/videos/job-1.mp4" {
		t.Errorf("unexpected public url: %s", out.PublicURL)
	}
	if gate.Active() != 0 {
		t.Errorf("publish gate leaked: active=%d", gate.Active())
	}
}

func TestAcquireWaitsForSlot(t *testing.T) {
	sp := &fakeStorage{out: ports.PutObjectOutput{PublicURL: "u"}}
	gate := admission.New(1)
	if !gate.TryAcquire() {
		t.Fatal("setup acquire failed")
	}

	p, _ := newTestPublisher(sp, gate)
	waits := 0
	p.sleep = func(d time.Duration) {
		waits++
		if waits == 3 {
			gate.Release()
		}
	}

	_, err := p.Publish(context.Background(), "job-1", artifactFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waits < 3 {
		t.Errorf("expected the publisher to poll for a slot, waits=%d", waits)
	}
	if gate.Active() != 0 {
		t.Errorf("publish gate leaked: active=%d", gate.Active())
	}
}

func TestDiscardDeletesStoredObject(t *testing.T) {
	sp := &fakeStorage{}
	p, _ := newTestPublisher(sp, admission.New(2))

	p.Discard(context.Background(), "videos/job-1.mp4")

	if len(sp.deleted) != 1 || sp.deleted[0] != "videos/job-1.mp4" {
		t.Errorf("expected one delete of the object key, got %v", sp.deleted)
	}
}

func TestDiscardSkipsEmptyKeyAndSwallowsErrors(t *testing.T) {
	sp := &fakeStorage{delErr: errors.New("object already gone")}
	p, _ := newTestPublisher(sp, admission.New(2))

	p.Discard(context.Background(), "")
	if len(sp.deleted) != 0 {
		t.Errorf("empty key must not reach storage, got %v", sp.deleted)
	}

	p.Discard(context.Background(), "videos/job-1.mp4")
	if len(sp.deleted) != 1 {
		t.Errorf("expected one delete attempt, got %v", sp.deleted)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection reset", transientErr(), true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "storage.example"}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"html error page", errors.New(`unexpected response: <html><body>502 Bad Gateway</body></html>`), true},
		{"doctype error page", errors.New(`<!DOCTYPE html><html>error</html>`), true},
		{"timeout text", errors.New("request timeout while uploading"), true},
		{"permission denied", errors.New("403 insufficient permissions"), false},
		{"quota", errors.New("storage quota exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v)=%v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
