package voice

import (
	"context"
	"errors"
	"testing"
)

func TestPlan_PicksFirstFemaleVoice(t *testing.T) {
	u := Plan("hello", []string{"Alex", "Daniel", "Microsoft Zira Desktop", "Samantha"})
	if u.Voice != "Microsoft Zira Desktop" || u.Pitch != DefaultPitch {
		t.Fatalf("unexpected plan: %+v", u)
	}
	if u.Lang != "en-US" || u.Rate != 0.9 || u.Volume != 1 || u.Text != "hello" {
		t.Fatalf("defaults not applied: %+v", u)
	}
	if got := Plan("x", []string{"Young Woman Voice"}).Voice; got != "Young Woman Voice" {
		t.Fatalf("case-insensitive marker not matched: %q", got)
	}
}

func TestPlan_RaisesPitchWithoutFemaleVoice(t *testing.T) {
	for _, voices := range [][]string{nil, {"Alex", "Fred"}, {"female"}} {
		u := Plan("x", voices)
		if u.Voice != "" || u.Pitch != FallbackPitch {
			t.Fatalf("Plan(%v) = %+v; want no voice and pitch 1.4", voices, u)
		}
	}
}

func TestUnsupported(t *testing.T) {
	var in SpeechInput = Unsupported{}
	var out SpeechOutput = Unsupported{}
	ctx := context.Background()
	if _, err := in.Transcribe(ctx, nil, "en-US"); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Transcribe err = %v", err)
	}
	if err := out.Speak(ctx, Utterance{}); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Speak err = %v", err)
	}
	if err := out.Cancel(ctx); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Cancel err = %v", err)
	}
}

type recordingOutput struct {
	spoken  []Utterance
	cancels int
}

func (r *recordingOutput) Speak(_ context.Context, u Utterance) error {
	r.spoken = append(r.spoken, u)
	return nil
}

func (r *recordingOutput) Cancel(context.Context) error {
	r.cancels++
	return nil
}

func TestNarrator_ToggleSemantics(t *testing.T) {
	ctx := context.Background()
	out := &recordingOutput{}
	n := NewNarrator(out)

	if _, on, err := n.Toggle(ctx, 1, "one", nil); err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v", on, err)
	}
	if n.Speaking() != 1 {
		t.Fatalf("Speaking = %d", n.Speaking())
	}

	// Another message replaces the current one.
	u, on, err := n.Toggle(ctx, 3, "three", []string{"Karen"})
	if err != nil || !on || u.Voice != "Karen" {
		t.Fatalf("replace toggle: %+v on=%v err=%v", u, on, err)
	}
	if out.cancels != 1 || n.Speaking() != 3 {
		t.Fatalf("expected one cancel and speaking=3, got %d / %d", out.cancels, n.Speaking())
	}

	// Same message stops playback.
	if _, on, err := n.Toggle(ctx, 3, "three", nil); err != nil || on {
		t.Fatalf("stop toggle: on=%v err=%v", on, err)
	}
	if n.Speaking() != -1 || out.cancels != 2 || len(out.spoken) != 2 {
		t.Fatalf("unexpected state: speaking=%d cancels=%d spoken=%d", n.Speaking(), out.cancels, len(out.spoken))
	}

	// Done clears only the matching id.
	_, _, _ = n.Toggle(ctx, 5, "five", nil)
	n.Done(4)
	if n.Speaking() != 5 {
		t.Fatalf("Done with other id must not clear")
	}
	n.Done(5)
	if n.Speaking() != -1 {
		t.Fatalf("Done should clear")
	}
}

func TestNarrator_UnsupportedOutput(t *testing.T) {
	n := NewNarrator(Unsupported{})
	if _, on, err := n.Toggle(context.Background(), 0, "x", nil); !errors.Is(err, ErrNotSupported) || on {
		t.Fatalf("expected ErrNotSupported, got on=%v err=%v", on, err)
	}
	if n.Speaking() != -1 {
		t.Fatalf("failed speak must leave narrator idle")
	}
}
