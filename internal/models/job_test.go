package models

import (
	"math"
	"strings"
	"testing"
)

func validJob() *Job {
	return &Job{
		ID:      "7b7c6a7e-3f1e-4a8e-9b1a-2f3c4d5e6f70",
		StoryID: "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d",
		OwnerID: "u1",
		Script: &Script{
			Beats: []Beat{
				{Speaker: "A", Text: "hi", ImageDescription: "x"},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(j *Job)
		wantErr string
	}{
		{
			name:   "valid job",
			mutate: func(j *Job) {},
		},
		{
			name:    "malformed job id",
			mutate:  func(j *Job) { j.ID = "not-a-uuid" },
			wantErr: "jobId",
		},
		{
			name:    "uppercase job id is not canonical",
			mutate:  func(j *Job) { j.ID = strings.ToUpper(j.ID) },
			wantErr: "jobId",
		},
		{
			name:    "braced job id is not canonical",
			mutate:  func(j *Job) { j.ID = "{" + j.ID + "}" },
			wantErr: "jobId",
		},
		{
			name:    "malformed story id",
			mutate:  func(j *Job) { j.StoryID = "123" },
			wantErr: "parentStoryId",
		},
		{
			name:    "missing script",
			mutate:  func(j *Job) { j.Script = nil },
			wantErr: "script is required",
		},
		{
			name:    "empty beats",
			mutate:  func(j *Job) { j.Script.Beats = nil },
			wantErr: "at least one beat",
		},
		{
			name: "beat without speaker",
			mutate: func(j *Job) {
				j.Script.Beats = []Beat{{Speaker: " ", Text: "hi", ImageDescription: "x"}}
			},
			wantErr: "no speaker",
		},
		{
			name: "beat without image description",
			mutate: func(j *Job) {
				j.Script.Beats = []Beat{{Speaker: "A", Text: "hi", ImageDescription: ""}}
			},
			wantErr: "no image description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := validJob()
			tt.mutate(j)

			err := j.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestEstimatePhases(t *testing.T) {
	p := EstimatePhases(100)

	if !p.Estimated {
		t.Error("phase split must be flagged as estimated")
	}
	if math.Abs(p.ImageSeconds-65) > 1e-9 {
		t.Errorf("image=%f, want 65", p.ImageSeconds)
	}
	if math.Abs(p.VoiceSeconds-20) > 1e-9 {
		t.Errorf("voice=%f, want 20", p.VoiceSeconds)
	}
	if math.Abs(p.CompositionSeconds-15) > 1e-9 {
		t.Errorf("composition=%f, want 15", p.CompositionSeconds)
	}

	total := p.ImageSeconds + p.VoiceSeconds + p.CompositionSeconds
	if math.Abs(total-100) > 1e-9 {
		t.Errorf("phases sum to %f, want 100", total)
	}
}
