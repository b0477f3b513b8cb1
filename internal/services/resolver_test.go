package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/portfolio-assistant/internal/completion"
	"github.com/tbourn/portfolio-assistant/internal/domain"
)

func TestResolve_CannedHit_NoCompletionCall(t *testing.T) {
	client := &stubCompleter{}
	r, corpus := newResolver(t, client)

	for _, in := range []string{"tell me about emmanuella", "Tell me about Emmanuella", "  tech stack "} {
		got, err := r.Resolve(context.Background(), in, nil)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", in, err)
		}
		if got.Source != SourceCanned {
			t.Fatalf("Resolve(%q) source = %s; want canned", in, got.Source)
		}
	}
	got, _ := r.Resolve(context.Background(), "tell me about emmanuella", nil)
	if got.Text != corpus.Answers["aboutMe"] {
		t.Fatalf("expected aboutMe answer, got %q", got.Text)
	}
	if client.Calls() != 0 {
		t.Fatalf("canned hits must not call the client, calls=%d", client.Calls())
	}
}

func TestResolve_Miss_CallsClientOnce(t *testing.T) {
	client := &stubCompleter{result: completion.Result{Text: "Chess openings are fun."}}
	r, _ := newResolver(t, client)

	prior := []domain.Message{
		{Sender: domain.SenderAssistant, Text: "Welcome"},
		{Sender: domain.SenderUser, Text: "Hi"},
	}
	got, err := r.Resolve(context.Background(), "  does she play any board games at weekends  ", prior)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if client.Calls() != 1 {
		t.Fatalf("expected exactly one client call, got %d", client.Calls())
	}
	if got.Source != SourceCompletion || got.Text != "Chess openings are fun." {
		t.Fatalf("unexpected response: %+v", got)
	}
	if client.latest != "does she play any board games at weekends" {
		t.Fatalf("latest input not trimmed: %q", client.latest)
	}
	if len(client.history) != 2 || client.history[0].Role != "assistant" || client.history[1].Role != "user" {
		t.Fatalf("history mapping wrong: %+v", client.history)
	}
}

func TestResolve_OffTopic_UsesFallbackPool(t *testing.T) {
	client := &stubCompleter{result: completion.Result{Text: "I'm sorry, I can't help with that", IsOffTopic: true}}
	r, corpus := newResolver(t, client)

	got, err := r.Resolve(context.Background(), "asdkjasdkj random gibberish", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Source != SourceFallback || !inPool(corpus.Fallbacks, got.Text) {
		t.Fatalf("expected a fallback reply, got %+v", got)
	}
	if client.Calls() != 1 {
		t.Fatalf("calls = %d", client.Calls())
	}
}

func TestResolve_CompletionError_Propagates(t *testing.T) {
	client := &stubCompleter{err: &completion.CompletionError{Err: errBoom}}
	r, _ := newResolver(t, client)

	_, err := r.Resolve(context.Background(), "asdkjasdkj random gibberish", nil)
	var ce *completion.CompletionError
	if !errors.As(err, &ce) || !errors.Is(err, errBoom) {
		t.Fatalf("expected CompletionError wrapping boom, got %v", err)
	}

	// A plain error from a misbehaving client is still surfaced as CompletionError.
	client.err = errBoom
	_, err = r.Resolve(context.Background(), "asdkjasdkj random gibberish", nil)
	if !errors.As(err, &ce) {
		t.Fatalf("plain errors should be wrapped, got %T", err)
	}
}

func TestResolve_EmptyInput(t *testing.T) {
	client := &stubCompleter{}
	r, _ := newResolver(t, client)
	for _, in := range []string{"", "   ", "\n\t"} {
		if _, err := r.Resolve(context.Background(), in, nil); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("Resolve(%q) err = %v; want ErrEmptyInput", in, err)
		}
	}
	if client.Calls() != 0 {
		t.Fatalf("blank input must not reach the client")
	}
}

func TestResolve_MeasuresLatency(t *testing.T) {
	client := &stubCompleter{result: completion.Result{Text: "ok"}}
	r, _ := newResolver(t, client)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{t0, t0.Add(250 * time.Millisecond)}
	r.Now = func() time.Time {
		v := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return v
	}
	got, err := r.Resolve(context.Background(), "asdkjasdkj random gibberish", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.LatencyMs != 250 {
		t.Fatalf("LatencyMs = %v; want 250", got.LatencyMs)
	}
}
