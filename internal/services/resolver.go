// Package services – Resolver
//
// This file implements the resolution pipeline that turns one visitor
// question into one assistant answer: canned index first, the completion
// endpoint on a miss, and the fallback pool when the model declines.
//
// Observability: Resolve is OpenTelemetry-instrumented and reports
// per-source counters and latency histograms.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/portfolio-assistant/internal/completion"
	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/observability"
)

// Source names the stage that produced an answer.
type Source string

const (
	SourceCanned     Source = "canned"
	SourceCompletion Source = "completion"
	SourceFallback   Source = "fallback"
)

// ResolvedResponse is the outcome of one resolution.
type ResolvedResponse struct {
	Text      string  `json:"text"`
	LatencyMs float64 `json:"latency_ms"`
	Source    Source  `json:"source"`
}

// CannedIndex answers known questions without a network call.
type CannedIndex interface {
	Lookup(input string) (string, bool)
}

// Completer asks the remote model. Failures must be *completion.CompletionError.
type Completer interface {
	Complete(ctx context.Context, history []completion.Turn, latestInput string) (completion.Result, error)
}

// FallbackPicker supplies a redirect reply for off-topic answers.
type FallbackPicker interface {
	Pick() string
}

// Resolver orchestrates the canned index, the completion client and the
// fallback pool. It holds no mutable state.
type Resolver struct {
	Index    CannedIndex
	Client   Completer
	Fallback FallbackPicker

	// Now is the clock used for latency; defaults to time.Now.
	Now func() time.Time
}

// NewResolver wires a Resolver with the real clock.
func NewResolver(idx CannedIndex, client Completer, fb FallbackPicker) *Resolver {
	return &Resolver{Index: idx, Client: client, Fallback: fb, Now: time.Now}
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve answers rawInput given the prior conversation (excluding rawInput).
//
// A canned hit returns immediately. Otherwise the completion endpoint is
// called exactly once; its error is returned unchanged so callers can tell a
// failure from an off-topic answer, which is silently replaced by a fallback.
func (r *Resolver) Resolve(ctx context.Context, rawInput string, prior []domain.Message) (ResolvedResponse, error) {
	tr := otel.Tracer("services/Resolver")
	ctx, span := tr.Start(ctx, "Resolve")
	defer span.End()

	input := strings.TrimSpace(rawInput)
	if input == "" {
		return ResolvedResponse{}, ErrEmptyInput
	}
	start := r.now()

	if answer, ok := r.Index.Lookup(input); ok {
		return r.finish(span, start, answer, SourceCanned), nil
	}

	res, err := r.Client.Complete(ctx, toTurns(prior), input)
	if err != nil {
		observability.ObserveCompletionFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		var ce *completion.CompletionError
		if !errors.As(err, &ce) {
			err = &completion.CompletionError{Err: err}
		}
		return ResolvedResponse{}, err
	}
	if res.IsOffTopic {
		return r.finish(span, start, r.Fallback.Pick(), SourceFallback), nil
	}
	return r.finish(span, start, res.Text, SourceCompletion), nil
}

func (r *Resolver) finish(span trace.Span, start time.Time, text string, src Source) ResolvedResponse {
	ms := float64(r.now().Sub(start)) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	span.SetAttributes(
		attribute.String("resolution.source", string(src)),
		attribute.Float64("resolution.latency_ms", ms),
	)
	observability.ObserveResolution(string(src), ms)
	return ResolvedResponse{Text: text, LatencyMs: ms, Source: src}
}

// toTurns maps the message log to completion roles.
func toTurns(msgs []domain.Message) []completion.Turn {
	out := make([]completion.Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, completion.Turn{Role: m.Sender.Role(), Content: m.Text})
	}
	return out
}
