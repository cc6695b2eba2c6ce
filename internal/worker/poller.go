// Package worker runs the standalone polling loop that discovers queued
// jobs in the record store and drives them through the processor.
package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akibsystems/showgeki2-sub002/internal/admission"
	"github.com/akibsystems/showgeki2-sub002/internal/models"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/errors"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
)

// JobRunner is the orchestration entry point shared by both ingress modes.
// Satisfied by processor.Processor.
type JobRunner interface {
	ProcessJob(ctx context.Context, job *models.Job) error
}

type Deps struct {
	Store     ports.JobStore
	Processor JobRunner
	Gate      *admission.Gate

	// RDB is optional. When present the inter-cycle sleep becomes a BRPOP
	// on the nudge queue, so a webhook acknowledgment wakes the poller
	// early. Claiming still goes through the record store.
	RDB       *redis.Client
	QueueName string

	Interval time.Duration
	Log      *logger.Logger
}

// Poller claims the oldest queued job once per cycle, one job at a time.
type Poller struct {
	store     ports.JobStore
	processor JobRunner
	gate      *admission.Gate
	rdb       *redis.Client
	queueName string
	interval  time.Duration
	log       *logger.Logger
}

func NewPoller(d Deps) *Poller {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	interval := d.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		store:     d.Store,
		processor: d.Processor,
		gate:      d.Gate,
		rdb:       d.RDB,
		queueName: d.QueueName,
		interval:  interval,
		log:       log.WithComponent("poller"),
	}
}

// Run loops until the context is canceled. An in-flight job finishes before
// the loop exits.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("poller started", "interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			p.log.Info("poller context canceled, stopping")
			return ctx.Err()
		default:
		}

		p.runCycle(ctx)

		if err := p.wait(ctx); err != nil {
			p.log.Info("poller stopping")
			return err
		}
	}
}

// runCycle claims and processes at most one job.
func (p *Poller) runCycle(ctx context.Context) {
	job, err := p.store.OldestQueued(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrNoQueuedJobs) {
			return
		}
		p.log.Warn("queue query failed", "error", err.Error())
		return
	}

	jobLog := p.log.WithJobID(job.ID)

	// Re-read the status before claiming. If another worker sharing the
	// record store got here first, the job is no longer queued and this
	// cycle skips it. Read-then-act, not compare-and-swap; good enough
	// for single-digit worker counts.
	status, err := p.store.GetStatus(ctx, job.ID)
	if err != nil {
		jobLog.Warn("claim re-check failed", "error", err.Error())
		return
	}
	if status != models.StatusQueued {
		jobLog.Debug("job already claimed, skipping cycle", "status", string(status))
		return
	}

	if !p.gate.TryAcquire() {
		jobLog.Debug("render capacity saturated, skipping cycle",
			"active", p.gate.Active(),
			"max", p.gate.Limit(),
		)
		return
	}
	defer p.gate.Release()

	jobCtx := logger.ContextWithJobID(ctx, job.ID)
	jobLog.Info("processing job")
	start := time.Now()

	if err := p.processor.ProcessJob(jobCtx, job); err != nil {
		jobLog.Error("job failed",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		jobLog.Info("job completed",
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// wait sleeps until the next cycle. With redis configured it blocks on the
// nudge queue instead, so a fresh submission cuts the wait short. When the
// nudge queue is unreachable the cycle still paces on the timer; the wait
// must never return early on a connection error.
func (p *Poller) wait(ctx context.Context) error {
	if p.rdb != nil {
		_, err := p.rdb.BRPop(ctx, p.interval, p.queueName).Result()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.Nil):
			// Timeout elapsed with no nudge.
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			p.log.Warn("nudge queue unavailable, pacing on timer", "error", err.Error())
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.interval):
		return nil
	}
}
