package models

import "testing"

func TestWithCredit(t *testing.T) {
	s := &Script{
		Beats: []Beat{
			{Speaker: "A", Text: "one", ImageDescription: "x"},
			{Speaker: "B", Text: "two", ImageDescription: "y"},
		},
	}

	out := s.WithCredit()

	if len(out.Beats) != len(s.Beats)+1 {
		t.Fatalf("expected %d beats, got %d", len(s.Beats)+1, len(out.Beats))
	}

	credit := out.Beats[len(out.Beats)-1]
	if credit.Text != "" {
		t.Errorf("credit beat must have empty dialogue, got %q", credit.Text)
	}
	if credit.ImageDescription != CreditImageURL {
		t.Errorf("credit beat image=%q, want %q", credit.ImageDescription, CreditImageURL)
	}
	if credit.Speaker != "A" {
		t.Errorf("credit speaker=%q, want first beat's speaker A", credit.Speaker)
	}

	// The original script must be untouched.
	if len(s.Beats) != 2 {
		t.Errorf("source script mutated: %d beats", len(s.Beats))
	}
}

func TestWithCreditUsesFirstDeclaredVoice(t *testing.T) {
	s := &Script{
		Beats: []Beat{
			{Speaker: "B", Text: "two", ImageDescription: "y"},
		},
		Voices: []Voice{
			{Speaker: "Narrator", VoiceID: "v1"},
			{Speaker: "B", VoiceID: "v2"},
		},
	}

	out := s.WithCredit()
	credit := out.Beats[len(out.Beats)-1]
	if credit.Speaker != "Narrator" {
		t.Errorf("credit speaker=%q, want first declared voice Narrator", credit.Speaker)
	}
}

func TestCaptionsEnabled(t *testing.T) {
	tests := []struct {
		name   string
		script Script
		want   bool
	}{
		{"no captions", Script{}, false},
		{"captions without lang", Script{Captions: &CaptionConfig{}}, false},
		{"captions with lang", Script{Captions: &CaptionConfig{Lang: "ja"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.script.CaptionsEnabled(); got != tt.want {
				t.Errorf("CaptionsEnabled()=%v, want %v", got, tt.want)
			}
		})
	}
}
