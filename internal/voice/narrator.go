package voice

import (
	"context"
	"sync"
)

// Narrator tracks which message is being read aloud. Asking for the message
// that is already playing stops it; asking for another one replaces it.
type Narrator struct {
	out SpeechOutput

	mu       sync.Mutex
	speaking int // -1 when idle
}

// NewNarrator wraps out.
func NewNarrator(out SpeechOutput) *Narrator {
	return &Narrator{out: out, speaking: -1}
}

// Toggle starts or stops reading message id. It returns the planned
// utterance and whether playback is now active.
func (n *Narrator) Toggle(ctx context.Context, id int, text string, voices []string) (Utterance, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.speaking == id {
		n.speaking = -1
		return Utterance{}, false, n.out.Cancel(ctx)
	}
	if n.speaking >= 0 {
		if err := n.out.Cancel(ctx); err != nil {
			return Utterance{}, false, err
		}
		n.speaking = -1
	}

	u := Plan(text, voices)
	if err := n.out.Speak(ctx, u); err != nil {
		return Utterance{}, false, err
	}
	n.speaking = id
	return u, true, nil
}

// Done marks playback of id as finished (end or error event).
func (n *Narrator) Done(id int) {
	n.mu.Lock()
	if n.speaking == id {
		n.speaking = -1
	}
	n.mu.Unlock()
}

// Speaking returns the id being read, or -1.
func (n *Narrator) Speaking() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.speaking
}
