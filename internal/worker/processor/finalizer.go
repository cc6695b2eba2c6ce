package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/akibsystems/showgeki2-sub002/internal/models"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
)

// Metadata fallbacks used when the prober fails. Metadata accuracy is
// best-effort, never load-bearing for the job outcome.
const (
	fallbackDurationSeconds = 30.0
	fallbackResolution      = "1920x1080"

	probeTimeout = 30 * time.Second
)

// Finalizer assembles the completed output record.
type Finalizer struct {
	prober ports.MediaProber
	log    *logger.Logger
}

func NewFinalizer(prober ports.MediaProber, log *logger.Logger) *Finalizer {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Finalizer{prober: prober, log: log.WithComponent("finalizer")}
}

type FinalizeRequest struct {
	LocalPath         string
	PublicURL         string
	SizeBytes         int64
	RenderSeconds     float64
	ProcessingSeconds float64
}

// Finalize probes the rendered file and builds the output record. A probe
// failure falls back to fixed defaults instead of failing the job.
func (f *Finalizer) Finalize(ctx context.Context, req FinalizeRequest) *models.Output {
	out := &models.Output{
		PublicURL:         req.PublicURL,
		DurationSeconds:   fallbackDurationSeconds,
		Resolution:        fallbackResolution,
		SizeMegabytes:     float64(req.SizeBytes) / (1024 * 1024),
		ProcessingSeconds: req.ProcessingSeconds,
		Phases:            models.EstimatePhases(req.RenderSeconds),
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	info, err := f.prober.Probe(probeCtx, req.LocalPath)
	if err != nil {
		f.log.FromContext(ctx).Warn("media probe failed, using fallback metadata",
			"path", req.LocalPath,
			"error", err.Error(),
		)
		return out
	}

	out.DurationSeconds = info.DurationSeconds
	out.Resolution = fmt.Sprintf("%dx%d", info.Width, info.Height)
	return out
}
