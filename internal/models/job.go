package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/akibsystems/showgeki2-sub002/internal/pkg/errors"
)

// Status is the single authoritative lifecycle field of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is one request to render a script into a video.
type Job struct {
	ID      string  `json:"jobId"`
	StoryID string  `json:"parentStoryId"`
	OwnerID string  `json:"ownerId"`
	Title   string  `json:"title,omitempty"`
	Script  *Script `json:"script"`

	Status       Status    `json:"status,omitempty"`
	Output       *Output   `json:"output,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// Output is populated only when a job completes.
type Output struct {
	PublicURL         string        `json:"publicUrl"`
	DurationSeconds   float64       `json:"durationSeconds"`
	Resolution        string        `json:"resolution"`
	SizeMegabytes     float64       `json:"sizeMegabytes"`
	ProcessingSeconds float64       `json:"processingSeconds"`
	Phases            PhaseEstimate `json:"phases"`
}

// PhaseEstimate splits total render time into per-phase figures. The renderer
// does not report phase timings, so these are fixed proportions of wall-clock
// time. Estimated is always true; consumers must not treat the split as a
// measurement.
type PhaseEstimate struct {
	ImageSeconds       float64 `json:"imageSeconds"`
	VoiceSeconds       float64 `json:"voiceSeconds"`
	CompositionSeconds float64 `json:"compositionSeconds"`
	Estimated          bool    `json:"estimated"`
}

// EstimatePhases derives the 65/20/15 phase split from total render time.
func EstimatePhases(totalSeconds float64) PhaseEstimate {
	return PhaseEstimate{
		ImageSeconds:       totalSeconds * 0.65,
		VoiceSeconds:       totalSeconds * 0.20,
		CompositionSeconds: totalSeconds * 0.15,
		Estimated:          true,
	}
}

// Validate checks identifiers and script shape. This is the only validation
// point; a job that passes is safe to hand to the renderer.
func (j *Job) Validate() error {
	if !isCanonicalUUID(j.ID) {
		return errors.ValidationField("jobId", "jobId must be a canonical UUID")
	}
	if !isCanonicalUUID(j.StoryID) {
		return errors.ValidationField("parentStoryId", "parentStoryId must be a canonical UUID")
	}
	if j.Script == nil {
		return errors.ValidationField("script", "script is required")
	}
	return j.Script.Validate()
}

// isCanonicalUUID accepts only the lowercase 8-4-4-4-12 form. uuid.Parse is
// tolerant of braces, URNs and uppercase; those never reach the renderer.
func isCanonicalUUID(s string) bool {
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return s == u.String()
}
