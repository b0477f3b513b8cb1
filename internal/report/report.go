// Package report periodically logs the analytics counters so an operator can
// follow widget usage without querying the API.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tbourn/portfolio-assistant/internal/domain"
)

// Source provides the snapshot to report.
type Source interface {
	Snapshot() domain.AnalyticsSnapshot
}

// Scheduler runs the report on a cron schedule (UTC, standard 5-field specs
// plus descriptors such as "@hourly").
type Scheduler struct {
	cron *cron.Cron
	src  Source
	log  zerolog.Logger
	spec string
}

// New returns a scheduler for spec. An empty spec yields a disabled
// scheduler whose Start and Stop are no-ops. An invalid spec fails.
func New(spec string, src Source, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{src: src, log: log, spec: strings.TrimSpace(spec)}
	if s.spec == "" {
		return s, nil
	}
	s.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := s.cron.AddFunc(s.spec, s.Run); err != nil {
		return nil, fmt.Errorf("report schedule %q: %w", s.spec, err)
	}
	return s, nil
}

// Enabled reports whether a schedule is configured.
func (s *Scheduler) Enabled() bool { return s.cron != nil }

// Run logs one report immediately.
func (s *Scheduler) Run() {
	snap := s.src.Snapshot()
	helpfulRate := 0.0
	if rated := snap.HelpfulResponses + snap.UnhelpfulResponses; rated > 0 {
		helpfulRate = float64(snap.HelpfulResponses) / float64(rated)
	}
	s.log.Info().
		Int("total_messages", snap.TotalMessages).
		Int("helpful", snap.HelpfulResponses).
		Int("unhelpful", snap.UnhelpfulResponses).
		Float64("helpful_rate", helpfulRate).
		Str("most_used_language", snap.MostUsedLanguage).
		Float64("avg_response_ms", snap.AverageResponseTimeMs).
		Msg("analytics report")
}

// Start begins the schedule.
func (s *Scheduler) Start() {
	if s.cron == nil {
		return
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.spec).Msg("analytics report scheduled")
}

// Stop halts the schedule and waits for a running report to finish or ctx
// to end, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
