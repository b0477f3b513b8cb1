package services

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/storage"
)

func TestAggregator_DefaultsOnEmptyStore(t *testing.T) {
	a := NewAggregator(context.Background(), storage.NewMemory(), quietLog())
	s := a.Snapshot()
	if s.TotalMessages != 0 || s.MostUsedLanguage != "en" || s.AverageResponseTimeMs != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if len(a.Feedback()) != 0 {
		t.Fatalf("expected empty feedback log")
	}
}

func TestAggregator_RunningMeanOver1000(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(ctx, storage.NewMemory(), quietLog())
	rng := rand.New(rand.NewSource(42))

	var sum float64
	const n = 1000
	for i := 0; i < n; i++ {
		x := rng.Float64() * 5000
		sum += x
		if err := a.RecordMessage(ctx, "en", x); err != nil {
			t.Fatalf("RecordMessage: %v", err)
		}
	}
	s := a.Snapshot()
	if s.TotalMessages != n {
		t.Fatalf("TotalMessages = %d", s.TotalMessages)
	}
	want := sum / n
	if math.Abs(s.AverageResponseTimeMs-want) > 1e-6 {
		t.Fatalf("mean = %v; want %v", s.AverageResponseTimeMs, want)
	}
}

func TestAggregator_NegativeLatencyClamped(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(ctx, storage.NewMemory(), quietLog())
	_ = a.RecordMessage(ctx, "en", -10)
	if got := a.Snapshot().AverageResponseTimeMs; got != 0 {
		t.Fatalf("average = %v; want 0", got)
	}
}

func TestAggregator_FeedbackCountsEveryCall(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(ctx, storage.NewMemory(), quietLog())
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = a.RecordFeedback(ctx, domain.FeedbackRecord{MessageIndex: 2, IsHelpful: true, Timestamp: ts, Language: "en"})
	_ = a.RecordFeedback(ctx, domain.FeedbackRecord{MessageIndex: 2, IsHelpful: false, Timestamp: ts, Language: "en"})

	s := a.Snapshot()
	if s.HelpfulResponses != 1 || s.UnhelpfulResponses != 1 {
		t.Fatalf("helpful/unhelpful = %d/%d; want 1/1", s.HelpfulResponses, s.UnhelpfulResponses)
	}
	if fb := a.Feedback(); len(fb) != 2 || fb[0].IsHelpful != true || fb[1].IsHelpful != false {
		t.Fatalf("feedback log wrong: %+v", fb)
	}
}

func TestAggregator_MostUsedLanguagePolicies(t *testing.T) {
	ctx := context.Background()
	seq := []string{"es", "es", "fr", "en", "fr"}

	mode := NewAggregator(ctx, storage.NewMemory(), quietLog())
	last := NewAggregator(ctx, storage.NewMemory(), quietLog(), WithLanguagePolicy(LanguageLastWrite))
	for _, l := range seq {
		_ = mode.RecordMessage(ctx, l, 1)
		_ = last.RecordMessage(ctx, l, 1)
	}
	// es=2, fr=2 (fr recorded last) -> fr; last write -> fr as well.
	if got := mode.Snapshot().MostUsedLanguage; got != "fr" {
		t.Fatalf("mode = %q; want fr", got)
	}
	_ = mode.RecordMessage(ctx, "en", 1) // en=2 now ties, most recent wins
	_ = last.RecordMessage(ctx, "ja", 1)
	if got := mode.Snapshot().MostUsedLanguage; got != "en" {
		t.Fatalf("mode after tie = %q; want en", got)
	}
	_ = mode.RecordMessage(ctx, "ja", 1) // ja=1 does not beat en=2
	if got := mode.Snapshot().MostUsedLanguage; got != "en" {
		t.Fatalf("mode after minority = %q; want en", got)
	}
	if got := last.Snapshot().MostUsedLanguage; got != "ja" {
		t.Fatalf("last-write = %q; want ja", got)
	}
	if c := mode.Snapshot().LanguageCounts; c["es"] != 2 || c["en"] != 2 || c["ja"] != 1 {
		t.Fatalf("language counts wrong: %v", c)
	}
}

func TestParseLanguagePolicy(t *testing.T) {
	for in, want := range map[string]LanguagePolicy{"": LanguageMode, "mode": LanguageMode, "last": LanguageLastWrite} {
		got, err := ParseLanguagePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseLanguagePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLanguagePolicy("median"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestAggregator_PersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	a := NewAggregator(ctx, mem, quietLog())
	_ = a.RecordMessage(ctx, "es", 100)
	_ = a.RecordMessage(ctx, "es", 300)
	_ = a.RecordFeedback(ctx, domain.FeedbackRecord{MessageIndex: 1, IsHelpful: true, Language: "es"})

	b := NewAggregator(ctx, mem, quietLog())
	s := b.Snapshot()
	if s.TotalMessages != 2 || s.AverageResponseTimeMs != 200 || s.MostUsedLanguage != "es" || s.HelpfulResponses != 1 {
		t.Fatalf("restored snapshot wrong: %+v", s)
	}
	if len(b.Feedback()) != 1 {
		t.Fatalf("restored feedback log wrong: %+v", b.Feedback())
	}

	// Continuing after restore keeps the mean consistent.
	_ = b.RecordMessage(ctx, "es", 500)
	if got := b.Snapshot().AverageResponseTimeMs; got != 300 {
		t.Fatalf("mean after restore = %v; want 300", got)
	}
}

func TestAggregator_MigratesLegacyValues(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	_ = mem.Set(ctx, storage.KeyAnalyticsData, []byte(
		`{"totalMessages":4,"helpfulResponses":2,"unhelpfulResponses":1,"mostUsedLanguage":"en","averageResponseTime":1250.5}`))
	_ = mem.Set(ctx, storage.KeyFeedbackData, []byte(
		`[{"messageId":2,"isHelpful":true,"timestamp":"2024-03-01T10:00:00.000Z","language":"en"}]`))

	a := NewAggregator(ctx, mem, quietLog())
	s := a.Snapshot()
	if s.TotalMessages != 4 || s.HelpfulResponses != 2 || s.UnhelpfulResponses != 1 || s.AverageResponseTimeMs != 1250.5 {
		t.Fatalf("legacy counters not migrated: %+v", s)
	}
	fb := a.Feedback()
	if len(fb) != 1 || fb[0].MessageIndex != 2 || !fb[0].IsHelpful {
		t.Fatalf("legacy feedback not migrated: %+v", fb)
	}
	for _, key := range []string{storage.KeyAnalyticsData, storage.KeyFeedbackData} {
		raw, _ := mem.Get(ctx, key)
		if !strings.HasPrefix(string(raw), `{"version":1,`) {
			t.Fatalf("%s should be rewritten in the current schema, got %s", key, raw)
		}
	}
}

func TestAggregator_InvalidValuesResetToDefaults(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	_ = mem.Set(ctx, storage.KeyAnalyticsData, []byte(`{"version":1,"data":{"total_messages":-3}}`))
	_ = mem.Set(ctx, storage.KeyFeedbackData, []byte(`{"version":1,"data":{"oops":true}}`))

	a := NewAggregator(ctx, mem, quietLog())
	if s := a.Snapshot(); s.TotalMessages != 0 || s.MostUsedLanguage != "en" {
		t.Fatalf("expected defaults, got %+v", s)
	}
	if len(a.Feedback()) != 0 {
		t.Fatalf("expected empty feedback log")
	}
}

func TestAggregator_Clear(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	a := NewAggregator(ctx, mem, quietLog())
	_ = a.RecordMessage(ctx, "es", 10)
	_ = a.RecordFeedback(ctx, domain.FeedbackRecord{IsHelpful: false})

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	s := a.Snapshot()
	if s.TotalMessages != 0 || s.UnhelpfulResponses != 0 || s.MostUsedLanguage != "en" || len(s.LanguageCounts) != 0 {
		t.Fatalf("Clear did not reset: %+v", s)
	}
	if again := NewAggregator(ctx, mem, quietLog()).Snapshot(); again.TotalMessages != 0 {
		t.Fatalf("reset must be persisted, got %+v", again)
	}
}

func TestAggregator_SnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(ctx, storage.NewMemory(), quietLog())
	_ = a.RecordMessage(ctx, "en", 1)
	s := a.Snapshot()
	s.LanguageCounts["en"] = 99
	if a.Snapshot().LanguageCounts["en"] != 1 {
		t.Fatalf("Snapshot must not expose internal map")
	}
}
