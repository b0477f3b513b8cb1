package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/portfolio-assistant/internal/i18n"
	"github.com/tbourn/portfolio-assistant/internal/storage"
)

// Preferences holds the visitor's selected language, persisted as a plain
// string under storage.KeySelectedLanguage.
type Preferences struct {
	store    storage.Store
	log      zerolog.Logger
	fallback string

	mu     sync.Mutex
	cached string
}

// NewPreferences returns Preferences defaulting to def (or English when def
// is not a picker language).
func NewPreferences(store storage.Store, log zerolog.Logger, def string) *Preferences {
	if !i18n.Supported(def) {
		def = i18n.DefaultCode
	}
	return &Preferences{store: store, log: log, fallback: def}
}

// Language returns the selected code. Unknown or unreadable values yield the
// default without failing.
func (p *Preferences) Language(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != "" {
		return p.cached
	}
	raw, err := p.store.Get(ctx, storage.KeySelectedLanguage)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		p.log.Warn().Err(err).Msg("read selected language")
	default:
		if code := strings.TrimSpace(string(raw)); i18n.Supported(code) {
			p.cached = code
			return code
		}
		p.log.Warn().Str("value", string(raw)).Msg("ignoring unsupported stored language")
	}
	return p.fallback
}

// SetLanguage validates and persists code.
func (p *Preferences) SetLanguage(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if !i18n.Supported(code) {
		return ErrUnsupportedLanguage
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = code
	if err := p.store.Set(ctx, storage.KeySelectedLanguage, []byte(code)); err != nil {
		return fmt.Errorf("persist selected language: %w", err)
	}
	return nil
}
