// Package services – ChatService
//
// This file implements ChatService, the session-level façade the widget
// talks to. It serializes question resolution (one in flight at a time),
// appends the visitor and assistant turns only after a successful
// resolution, and forwards ratings to both the conversation log and the
// analytics aggregator.
//
// Observability: Send and Feedback are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/portfolio-assistant/internal/completion"
	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/observability"
)

// ChatService coordinates one visitor session.
type ChatService struct {
	Resolver     *Resolver
	Conversation *ConversationStore
	Analytics    *Aggregator
	Preferences  *Preferences
	Log          zerolog.Logger

	// MaxInputRunes caps the question length; 0 disables the guard.
	MaxInputRunes int

	// Now is the clock used for feedback timestamps; defaults to time.Now.
	Now func() time.Time

	inflight sync.Mutex
}

// SendResult is what a successful Send appended to the log.
type SendResult struct {
	User      domain.Message `json:"user"`
	Reply     domain.Message `json:"reply"`
	Source    Source         `json:"source"`
	LatencyMs float64        `json:"latency_ms"`
}

func (s *ChatService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Send resolves input against the current log.
//
// Semantics:
//   - Blank input yields ErrEmptyInput; a concurrent Send yields ErrBusy.
//   - On success the formatted visitor turn and the reply are appended and
//     the latency is recorded under the selected language.
//   - On *completion.CompletionError nothing is appended.
//   - If ctx is done once the answer is known, the answer is discarded.
func (s *ChatService) Send(ctx context.Context, input string) (SendResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Send")
	defer span.End()

	input = strings.TrimSpace(input)
	if input == "" {
		return SendResult{}, ErrEmptyInput
	}
	if s.MaxInputRunes > 0 && utf8.RuneCountInString(input) > s.MaxInputRunes {
		return SendResult{}, ErrTooLong
	}
	if !s.inflight.TryLock() {
		return SendResult{}, ErrBusy
	}
	defer s.inflight.Unlock()

	lang := s.Preferences.Language(ctx)
	span.SetAttributes(attribute.String("language", lang))

	prior, err := s.Conversation.List(ctx)
	if err != nil {
		return SendResult{}, err
	}

	resp, err := s.Resolver.Resolve(ctx, input, prior)
	if err != nil {
		var ce *completion.CompletionError
		if errors.As(err, &ce) {
			s.Log.Warn().Err(err).Msg("completion failed")
		}
		return SendResult{}, err
	}
	if err := ctx.Err(); err != nil {
		s.Log.Debug().Err(err).Msg("discarding answer for abandoned request")
		return SendResult{}, err
	}

	res := SendResult{
		User:      s.Conversation.NewMessage(domain.SenderUser, formatUserTurn(input, lang)),
		Reply:     s.Conversation.NewMessage(domain.SenderAssistant, resp.Text),
		Source:    resp.Source,
		LatencyMs: resp.LatencyMs,
	}
	if err := s.Conversation.Append(ctx, res.User, res.Reply); err != nil {
		return SendResult{}, err
	}
	if err := s.Analytics.RecordMessage(ctx, lang, resp.LatencyMs); err != nil {
		s.Log.Warn().Err(err).Msg("record message analytics")
	}

	s.Log.Debug().
		Str("source", string(resp.Source)).
		Float64("latency_ms", resp.LatencyMs).
		Msg("question resolved")
	return res, nil
}

// History returns the conversation log, restoring it on first use.
func (s *ChatService) History(ctx context.Context) ([]domain.Message, error) {
	return s.Conversation.List(ctx)
}

// Feedback rates the assistant message at index.
//
// The log keeps only the first rating; the analytics aggregator records
// every call. The returned bool reports whether the log was updated.
func (s *ChatService) Feedback(ctx context.Context, index int, helpful bool) (bool, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Feedback",
		trace.WithAttributes(
			attribute.Int("message.index", index),
			attribute.Bool("helpful", helpful),
		),
	)
	defer span.End()

	msg, err := s.Conversation.Get(ctx, index)
	if err != nil {
		return false, err
	}
	if msg.Sender != domain.SenderAssistant {
		return false, ErrForbiddenFeedback
	}

	applied, err := s.Conversation.SetFeedback(ctx, index, helpful)
	if err != nil {
		return false, err
	}
	rec := domain.FeedbackRecord{
		MessageIndex: index,
		IsHelpful:    helpful,
		Timestamp:    s.now().UTC(),
		Language:     s.Preferences.Language(ctx),
	}
	if err := s.Analytics.RecordFeedback(ctx, rec); err != nil {
		s.Log.Warn().Err(err).Msg("record feedback analytics")
	}
	observability.ObserveFeedback(helpful)
	return applied, nil
}

// Reset clears the conversation and reseeds the welcome message.
func (s *ChatService) Reset(ctx context.Context) error {
	return s.Conversation.Clear(ctx)
}

// Language returns the selected language code.
func (s *ChatService) Language(ctx context.Context) string {
	return s.Preferences.Language(ctx)
}

// SetLanguage switches the selected language.
func (s *ChatService) SetLanguage(ctx context.Context, code string) error {
	return s.Preferences.SetLanguage(ctx, code)
}

// formatUserTurn capitalizes the first letter and lowercases the rest.
func formatUserTurn(input, lang string) string {
	r, size := utf8.DecodeRuneInString(input)
	if r == utf8.RuneError {
		return input
	}
	tag := language.Make(lang)
	return cases.Upper(tag).String(string(r)) + cases.Lower(tag).String(input[size:])
}
