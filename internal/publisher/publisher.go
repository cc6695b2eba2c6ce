// Package publisher uploads rendered artifacts to durable storage with
// bounded concurrency and retry on transient failures.
package publisher

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/akibsystems/showgeki2-sub002/internal/admission"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/errors"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
)

// Config tunes the retry loop. Zero values fall back to the service
// defaults: 3 retries, 2s base backoff, 60s per upload attempt.
type Config struct {
	MaxRetries     int
	BaseBackoff    time.Duration
	AttemptTimeout time.Duration
}

// Publisher wraps a storage provider with the publish admission gate and the
// retry policy. Callers over the gate's ceiling wait in a short sleep loop
// instead of being rejected; publish capacity is cheap to wait for, render
// capacity is not.
type Publisher struct {
	sp    ports.StorageProvider
	gate  *admission.Gate
	cfg   Config
	log   *logger.Logger
	sleep func(time.Duration)
}

func New(sp ports.StorageProvider, gate *admission.Gate, cfg Config, log *logger.Logger) *Publisher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 2 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Publisher{
		sp:    sp,
		gate:  gate,
		cfg:   cfg,
		log:   log.WithComponent("publisher"),
		sleep: time.Sleep,
	}
}

// Publish uploads the file under a key derived from the job id and returns
// the stored object with its public URL. Each retry re-runs the full upload;
// there is no partial resumption.
func (p *Publisher) Publish(ctx context.Context, jobID, localPath string) (ports.PutObjectOutput, error) {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	if err := p.acquire(ctx); err != nil {
		return ports.PutObjectOutput{}, err
	}
	defer p.gate.Release()

	objectKey := fmt.Sprintf("videos/%s.mp4", jobID)

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.cfg.BaseBackoff << (attempt - 1)
			log.Warn("retrying upload",
				"attempt", attempt,
				"delay", delay.String(),
				"error", lastErr.Error(),
			)
			p.sleep(delay)
		}

		out, err := p.uploadOnce(ctx, objectKey, localPath)
		if err == nil {
			log.Info("artifact published",
				"object_key", out.ObjectKey,
				"size_bytes", out.Size,
				"attempts", attempt+1,
			)
			return out, nil
		}

		if !IsTransient(err) {
			return ports.PutObjectOutput{}, errors.WrapWithCode(err, errors.CodePublish,
				"publisher.upload", "upload failed")
		}
		lastErr = err
	}

	return ports.PutObjectOutput{}, errors.WrapWithCode(lastErr, errors.CodePublish,
		"publisher.upload", fmt.Sprintf("upload failed after %d attempts", p.cfg.MaxRetries+1))
}

// Discard removes a published object whose job could not reach completed,
// so a failed finalize does not leave an orphaned artifact in storage.
// Best effort: the job is already failing for its own reason.
func (p *Publisher) Discard(ctx context.Context, objectKey string) {
	if objectKey == "" {
		return
	}
	if err := p.sp.DeleteObject(ctx, objectKey); err != nil {
		p.log.FromContext(ctx).Warn("failed to delete orphaned artifact",
			"object_key", objectKey,
			"error", err.Error(),
		)
	}
}

// acquire waits for a publish slot. A polling loop is enough at the expected
// contention; the ceiling exists for the destination's rate limits, not ours.
func (p *Publisher) acquire(ctx context.Context) error {
	for !p.gate.TryAcquire() {
		select {
		case <-ctx.Done():
			return errors.WrapWithCode(ctx.Err(), errors.CodePublish,
				"publisher.acquire", "canceled while waiting for publish slot")
		default:
		}
		p.sleep(100 * time.Millisecond)
	}
	return nil
}

func (p *Publisher) uploadOnce(ctx context.Context, objectKey, localPath string) (ports.PutObjectOutput, error) {
	st, err := os.Stat(localPath)
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("artifact not found: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
	defer cancel()

	return p.sp.PutObject(attemptCtx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: "video/mp4",
		Reader:      f,
		Size:        st.Size(),
	})
}

// IsTransient classifies upload errors worth retrying: network timeouts,
// connection resets, DNS failures, and responses whose body looks like an
// HTML error page instead of the storage API's JSON.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "<html") || strings.Contains(msg, "<!doctype") {
		return true
	}
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "no such host") {
		return true
	}

	return false
}
