// Package services – Aggregator
//
// This file implements the lifetime usage counters of the widget: total
// answered questions, helpful and unhelpful ratings, the running mean of
// response latency, and the append-only feedback log. One Aggregator is
// built by the composition root and shared by reference.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/storage"
)

const defaultAnalyticsLanguage = "en"

// LanguagePolicy selects how MostUsedLanguage is derived.
type LanguagePolicy int

const (
	// LanguageMode reports the language with the most recorded messages;
	// ties go to the most recently recorded one.
	LanguageMode LanguagePolicy = iota
	// LanguageLastWrite reports the language of the latest message, as the
	// widget historically did.
	LanguageLastWrite
)

// ParseLanguagePolicy maps "mode" and "last" to a policy.
func ParseLanguagePolicy(s string) (LanguagePolicy, error) {
	switch s {
	case "", "mode":
		return LanguageMode, nil
	case "last", "last_write":
		return LanguageLastWrite, nil
	}
	return LanguageMode, fmt.Errorf("unknown language policy %q", s)
}

// AggregatorOption configures NewAggregator.
type AggregatorOption func(*Aggregator)

// WithLanguagePolicy overrides the default LanguageMode.
func WithLanguagePolicy(p LanguagePolicy) AggregatorOption {
	return func(a *Aggregator) { a.policy = p }
}

// Aggregator accumulates analytics and persists after every mutation.
// Safe for concurrent use.
type Aggregator struct {
	store  storage.Store
	log    zerolog.Logger
	policy LanguagePolicy

	mu       sync.Mutex
	snap     domain.AnalyticsSnapshot
	feedback []domain.FeedbackRecord
}

// NewAggregator restores counters and the feedback log from store. Missing
// or invalid values start from zero; legacy values are migrated.
func NewAggregator(ctx context.Context, store storage.Store, log zerolog.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{store: store, log: log, snap: emptySnapshot()}
	for _, o := range opts {
		o(a)
	}
	a.restore(ctx)
	return a
}

func emptySnapshot() domain.AnalyticsSnapshot {
	return domain.AnalyticsSnapshot{MostUsedLanguage: defaultAnalyticsLanguage}
}

func (a *Aggregator) restore(ctx context.Context) {
	migrated := false

	if raw, ok := a.read(ctx, storage.KeyAnalyticsData); ok {
		snap, m, err := decodeSnapshot(raw)
		if err != nil {
			a.log.Warn().Err(err).Msg("discarding unreadable analytics counters")
		} else {
			a.snap, migrated = snap, migrated || m
		}
	}
	if raw, ok := a.read(ctx, storage.KeyFeedbackData); ok {
		recs, m, err := decodeFeedbackLog(raw)
		if err != nil {
			a.log.Warn().Err(err).Msg("discarding unreadable feedback log")
		} else {
			a.feedback, migrated = recs, migrated || m
		}
	}
	if migrated {
		a.log.Info().Int("total_messages", a.snap.TotalMessages).Msg("migrated legacy analytics")
		if err := a.persist(ctx); err != nil {
			a.log.Warn().Err(err).Msg("persist migrated analytics")
		}
	}
}

func (a *Aggregator) read(ctx context.Context, key string) ([]byte, bool) {
	raw, err := a.store.Get(ctx, key)
	if err == nil {
		return raw, true
	}
	if !errors.Is(err, storage.ErrNotFound) {
		a.log.Warn().Err(err).Str("key", key).Msg("read analytics")
	}
	return nil, false
}

// RecordMessage counts one answered question in language that took
// responseTimeMs. The mean is updated incrementally.
func (a *Aggregator) RecordMessage(ctx context.Context, language string, responseTimeMs float64) error {
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}
	if language == "" {
		language = defaultAnalyticsLanguage
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s := &a.snap
	s.TotalMessages++
	n := float64(s.TotalMessages)
	s.AverageResponseTimeMs = (s.AverageResponseTimeMs*(n-1) + responseTimeMs) / n

	if s.LanguageCounts == nil {
		s.LanguageCounts = map[string]int{}
	}
	s.LanguageCounts[language]++
	switch a.policy {
	case LanguageLastWrite:
		s.MostUsedLanguage = language
	default:
		if s.LanguageCounts[language] >= s.LanguageCounts[s.MostUsedLanguage] {
			s.MostUsedLanguage = language
		}
	}
	return a.persist(ctx)
}

// RecordFeedback appends rec and bumps the matching counter. Every call
// counts, regardless of whether the message was already rated.
func (a *Aggregator) RecordFeedback(ctx context.Context, rec domain.FeedbackRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.feedback = append(a.feedback, rec)
	if rec.IsHelpful {
		a.snap.HelpfulResponses++
	} else {
		a.snap.UnhelpfulResponses++
	}
	return a.persist(ctx)
}

// Snapshot returns a copy of the counters.
func (a *Aggregator) Snapshot() domain.AnalyticsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.snap
	if a.snap.LanguageCounts != nil {
		out.LanguageCounts = make(map[string]int, len(a.snap.LanguageCounts))
		for k, v := range a.snap.LanguageCounts {
			out.LanguageCounts[k] = v
		}
	}
	return out
}

// Feedback returns a copy of the feedback log in recording order.
func (a *Aggregator) Feedback() []domain.FeedbackRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.FeedbackRecord(nil), a.feedback...)
}

// Clear resets counters and the feedback log and persists the reset.
func (a *Aggregator) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap = emptySnapshot()
	a.feedback = nil
	return a.persist(ctx)
}

func (a *Aggregator) persist(ctx context.Context) error {
	fb := a.feedback
	if fb == nil {
		fb = []domain.FeedbackRecord{}
	}
	rawFb, err := storage.Encode(fb)
	if err != nil {
		return err
	}
	rawSnap, err := storage.Encode(a.snap)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, storage.KeyFeedbackData, rawFb); err != nil {
		return fmt.Errorf("persist feedback log: %w", err)
	}
	if err := a.store.Set(ctx, storage.KeyAnalyticsData, rawSnap); err != nil {
		return fmt.Errorf("persist analytics counters: %w", err)
	}
	return nil
}
