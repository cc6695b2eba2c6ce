package models

import (
	"strings"

	"github.com/akibsystems/showgeki2-sub002/internal/pkg/errors"
)

// CreditImageURL is the fixed branding image shown on the trailing credit
// beat appended to every script before rendering.
const CreditImageURL = "https://storage.googleapis.com/showgeki2-assets/credits/end-card.png"

// Beat is one narrated unit of the scene script.
type Beat struct {
	Speaker          string `json:"speaker"`
	Text             string `json:"text"`
	ImageDescription string `json:"imageDescription"`
}

// Voice maps a speaker name in the script to a synthesizer voice.
type Voice struct {
	Speaker string `json:"speaker"`
	VoiceID string `json:"voiceId"`
}

// CaptionConfig enables burned-in captions. When set, the renderer may emit
// a language-suffixed output file.
type CaptionConfig struct {
	Lang  string `json:"lang"`
	Style string `json:"style,omitempty"`
}

// Script is the ordered list of beats plus rendering parameters.
type Script struct {
	Beats        []Beat         `json:"beats"`
	ImageStyle   string         `json:"imageStyle,omitempty"`
	ImageQuality string         `json:"imageQuality,omitempty"`
	Voices       []Voice        `json:"voices,omitempty"`
	Captions     *CaptionConfig `json:"captions,omitempty"`
}

// Validate rejects empty or malformed scripts.
func (s *Script) Validate() error {
	if len(s.Beats) == 0 {
		return errors.ValidationField("script.beats", "script must contain at least one beat")
	}
	for i, b := range s.Beats {
		if strings.TrimSpace(b.Speaker) == "" {
			return errors.Validationf("beat %d has no speaker", i)
		}
		if strings.TrimSpace(b.ImageDescription) == "" {
			return errors.Validationf("beat %d has no image description", i)
		}
	}
	return nil
}

// CaptionsEnabled reports whether caption burn-in was requested.
func (s *Script) CaptionsEnabled() bool {
	return s.Captions != nil && strings.TrimSpace(s.Captions.Lang) != ""
}

// CreditSpeaker picks the voice the credit beat is attributed to: the first
// declared voice, falling back to the first beat's speaker.
func (s *Script) CreditSpeaker() string {
	if len(s.Voices) > 0 && strings.TrimSpace(s.Voices[0].Speaker) != "" {
		return s.Voices[0].Speaker
	}
	if len(s.Beats) > 0 {
		return s.Beats[0].Speaker
	}
	return ""
}

// WithCredit returns a copy of the script with the fixed trailing credit
// beat appended. Applied to every job before serialization.
func (s *Script) WithCredit() *Script {
	out := *s
	out.Beats = make([]Beat, 0, len(s.Beats)+1)
	out.Beats = append(out.Beats, s.Beats...)
	out.Beats = append(out.Beats, Beat{
		Speaker:          s.CreditSpeaker(),
		Text:             "",
		ImageDescription: CreditImageURL,
	})
	return &out
}
