package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/portfolio-assistant/internal/completion"
	"github.com/tbourn/portfolio-assistant/internal/fallback"
	"github.com/tbourn/portfolio-assistant/internal/i18n"
	"github.com/tbourn/portfolio-assistant/internal/knowledge"
	"github.com/tbourn/portfolio-assistant/internal/search"
	"github.com/tbourn/portfolio-assistant/internal/storage"
)

func quietLog() zerolog.Logger { return zerolog.New(io.Discard) }

// ---------- completion stub ----------

type stubCompleter struct {
	mu      sync.Mutex
	calls   int
	history []completion.Turn
	latest  string
	result  completion.Result
	err     error
	hook    func(ctx context.Context) // runs inside Complete
	blockOn chan struct{}
	entered chan struct{}
}

func (s *stubCompleter) Complete(ctx context.Context, history []completion.Turn, latest string) (completion.Result, error) {
	s.mu.Lock()
	s.calls++
	s.history = append([]completion.Turn(nil), history...)
	s.latest = latest
	hook, block, entered := s.hook, s.blockOn, s.entered
	s.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
	if hook != nil {
		hook(ctx)
	}
	return s.result, s.err
}

func (s *stubCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ---------- failing store ----------

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, storage.ErrUnavailable
}
func (brokenStore) Set(context.Context, string, []byte) error { return storage.ErrUnavailable }
func (brokenStore) Delete(context.Context, string) error      { return storage.ErrUnavailable }

var errBoom = errors.New("boom")

// ---------- fixtures ----------

func defaultCorpus(t *testing.T) *knowledge.Corpus {
	t.Helper()
	c, err := knowledge.Default()
	if err != nil {
		t.Fatalf("knowledge.Default: %v", err)
	}
	return c
}

func newResolver(t *testing.T, client Completer) (*Resolver, *knowledge.Corpus) {
	t.Helper()
	c := defaultCorpus(t)
	fb, err := fallback.New(c.Fallbacks)
	if err != nil {
		t.Fatalf("fallback.New: %v", err)
	}
	return NewResolver(search.New(c.Entries()), client, fb), c
}

type fixture struct {
	store  *storage.Memory
	client *stubCompleter
	corpus *knowledge.Corpus
	prefs  *Preferences
	conv   *ConversationStore
	agg    *Aggregator
	svc    *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: storage.NewMemory(), client: &stubCompleter{}}
	res, corpus := newResolver(t, f.client)
	f.corpus = corpus
	f.prefs = NewPreferences(f.store, quietLog(), "en")
	f.conv = NewConversationStore(f.store, quietLog(), func(ctx context.Context) string {
		return i18n.Welcome(f.prefs.Language(ctx))
	})
	f.agg = NewAggregator(context.Background(), f.store, quietLog())
	f.svc = &ChatService{
		Resolver:     res,
		Conversation: f.conv,
		Analytics:    f.agg,
		Preferences:  f.prefs,
		Log:          quietLog(),
		Now:          func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	return f
}

func inPool(pool []string, s string) bool {
	for _, p := range pool {
		if p == s {
			return true
		}
	}
	return false
}
