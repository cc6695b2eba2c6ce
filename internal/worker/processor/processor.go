package processor

import (
	"context"
	"time"

	"github.com/akibsystems/showgeki2-sub002/internal/models"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/errors"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
	"github.com/akibsystems/showgeki2-sub002/internal/renderer"
)

// ArtifactPublisher moves a rendered file to durable storage and resolves
// its public reference. Discard rolls back a stored object whose job failed
// after the upload. Satisfied by publisher.Publisher.
type ArtifactPublisher interface {
	Publish(ctx context.Context, jobID, localPath string) (ports.PutObjectOutput, error)
	Discard(ctx context.Context, objectKey string)
}

type Deps struct {
	Store     ports.JobStore
	Engine    renderer.Engine
	Publisher ArtifactPublisher
	Prober    ports.MediaProber
	Notifier  ports.Notifier

	WorkspaceRoot string
	Log           *logger.Logger
}

// Processor runs one job through the full state machine:
// queued → processing → completed|failed.
type Processor struct {
	store     ports.JobStore
	engine    renderer.Engine
	publisher ArtifactPublisher
	prober    ports.MediaProber
	notifier  ports.Notifier
	log       *logger.Logger

	workspaces *Workspaces
	finalizer  *Finalizer
	cleanup    *Cleanup
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	notifier := d.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	return &Processor{
		store:      d.Store,
		engine:     d.Engine,
		publisher:  d.Publisher,
		prober:     d.Prober,
		notifier:   notifier,
		log:        log,
		workspaces: NewWorkspaces(d.WorkspaceRoot),
		finalizer:  NewFinalizer(d.Prober, log),
		cleanup:    NewCleanup(log),
	}
}

// ProcessJob drives one job to a terminal status. Any fatal step failure
// short-circuits the rest; the workspace is removed on every path. The
// admission ticket is owned by the caller and released there.
func (p *Processor) ProcessJob(ctx context.Context, job *models.Job) error {
	log := p.log.FromContext(ctx).WithJobID(job.ID)
	start := time.Now()

	// 1. Validate. This is the only validation point; nothing malformed
	// reaches the renderer.
	if err := job.Validate(); err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.validate", "invalid job input"))
	}

	// 2. Mark processing before any expensive work, so an observer never
	// sees the job silently stuck at queued.
	log.Debug("marking job as processing")
	if err := p.store.MarkProcessing(ctx, job); err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.status", "failed to mark job as processing"))
	}

	// 3. Prepare the job-exclusive workspace.
	ws, err := p.workspaces.Prepare(job.ID)
	if err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.workspace", "failed to prepare workspace"))
	}
	defer p.cleanup.Release(ws)

	// 4-5. Append the credit beat and serialize.
	script := job.Script.WithCredit()
	scriptPath, err := ws.WriteScript(script)
	if err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.serialize", "failed to serialize script"))
	}

	// 6. Invoke the renderer.
	log.Info("starting render",
		"beats", len(script.Beats),
		"captions", script.CaptionsEnabled(),
	)
	renderStart := time.Now()
	err = p.engine.Render(ctx, renderer.Request{
		ScriptPath: scriptPath,
		OutputDir:  ws.Dir,
		Captions:   script.CaptionsEnabled(),
	})
	if err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.render", "render failed"))
	}
	renderSeconds := time.Since(renderStart).Seconds()
	log.Debug("render completed", "render_seconds", renderSeconds)

	// 7. Locate the produced file; the engine's filename may vary when
	// captions are burned in.
	outputPath, err := ws.LocateOutput(script)
	if err != nil {
		return p.failJob(ctx, job, errors.WrapWithCode(err, errors.CodeRender, "processor.output", "output not produced"))
	}

	// 8. Publish.
	log.Debug("publishing artifact")
	stored, err := p.publisher.Publish(ctx, job.ID, outputPath)
	if err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.publish", "publish failed"))
	}

	// 9. Finalize: probe metadata, assemble the output record, persist.
	output := p.finalizer.Finalize(ctx, FinalizeRequest{
		LocalPath:         outputPath,
		PublicURL:         stored.PublicURL,
		SizeBytes:         stored.Size,
		RenderSeconds:     renderSeconds,
		ProcessingSeconds: time.Since(start).Seconds(),
	})
	if err := p.store.MarkCompleted(ctx, job.ID, output); err != nil {
		p.publisher.Discard(ctx, stored.ObjectKey)
		return p.failJob(ctx, job, errors.Wrap(err, "processor.complete", "failed to persist completion"))
	}

	job.Status = models.StatusCompleted
	job.Output = output
	log.Info("job completed",
		"public_url", output.PublicURL,
		"duration_seconds", output.DurationSeconds,
		"processing_seconds", output.ProcessingSeconds,
	)
	return nil
}

// failJob persists the terminal failed status, routes the error to the
// notifier, and hands the cause back to the caller.
func (p *Processor) failJob(ctx context.Context, job *models.Job, cause error) error {
	log := p.log.FromContext(ctx).WithJobID(job.ID)

	msg := ""
	if cause != nil {
		msg = cause.Error()
		if len(msg) > 2000 {
			msg = msg[:2000]
		}

		var e *errors.Error
		if errors.As(cause, &e) {
			log.Error("job failed",
				"code", string(e.Code),
				"op", e.Op,
				"message", e.Message,
			)
		} else {
			log.Error("job failed", "error", msg)
		}
	}

	if err := p.store.MarkFailed(ctx, job.ID, msg); err != nil {
		log.Warn("failed to persist failure status", "error", err.Error())
	}
	job.Status = models.StatusFailed
	job.ErrorMessage = msg

	p.notifier.NotifyFailure(ctx, job.ID, job.StoryID, msg)

	return cause
}

type nopNotifier struct{}

func (nopNotifier) NotifyFailure(ctx context.Context, jobID, storyID, errMsg string) {}
