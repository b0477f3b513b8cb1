// Package voice models the optional speech capabilities of the widget.
// Recognition and synthesis are injected; hosts without them use
// Unsupported, which reports ErrNotSupported instead of failing silently.
package voice

import (
	"context"
	"errors"
	"strings"
)

// ErrNotSupported is returned by capabilities the host does not provide.
var ErrNotSupported = errors.New("voice: not supported")

const (
	DefaultLang   = "en-US"
	DefaultRate   = 0.9
	DefaultPitch  = 1.2
	FallbackPitch = 1.4
	DefaultVolume = 1.0
)

// Utterance describes how a text should be spoken.
type Utterance struct {
	Text   string  `json:"text"`
	Lang   string  `json:"lang"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
	Voice  string  `json:"voice,omitempty"`
}

// SpeechInput turns recorded audio into text.
type SpeechInput interface {
	Transcribe(ctx context.Context, audio []byte, lang string) (string, error)
}

// SpeechOutput plays utterances.
type SpeechOutput interface {
	Speak(ctx context.Context, u Utterance) error
	Cancel(ctx context.Context) error
}

// Unsupported implements both capabilities for hosts without speech.
type Unsupported struct{}

func (Unsupported) Transcribe(context.Context, []byte, string) (string, error) {
	return "", ErrNotSupported
}

func (Unsupported) Speak(context.Context, Utterance) error { return ErrNotSupported }

func (Unsupported) Cancel(context.Context) error { return ErrNotSupported }

// ClientSide accepts every utterance without playing it: the caller hands
// the planned Utterance back to the browser, which owns the speaker.
type ClientSide struct{}

func (ClientSide) Speak(context.Context, Utterance) error { return nil }

func (ClientSide) Cancel(context.Context) error { return nil }

var femaleMarkers = []string{
	"Samantha", "Victoria", "Karen", "Tessa",
	"Google UK English Female", "Google US English Female",
	"Microsoft Zira", "Microsoft Eva", "Microsoft Aria",
	"Female", "Siri", "Cortana",
}

var femaleMarkersLower = []string{"woman", "girl"}

func isFemale(name string) bool {
	for _, m := range femaleMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	lower := strings.ToLower(name)
	for _, m := range femaleMarkersLower {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Plan builds the utterance for text given the voices the host offers. The
// first voice that looks female is chosen; without one the pitch is raised.
func Plan(text string, voices []string) Utterance {
	u := Utterance{
		Text:   text,
		Lang:   DefaultLang,
		Rate:   DefaultRate,
		Pitch:  DefaultPitch,
		Volume: DefaultVolume,
	}
	for _, v := range voices {
		if isFemale(v) {
			u.Voice = v
			return u
		}
	}
	u.Pitch = FallbackPitch
	return u
}
