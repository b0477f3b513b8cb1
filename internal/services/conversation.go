// Package services – ConversationStore
//
// This file implements the ordered message log of the active session. The
// log is restored from storage on first use (or seeded with a welcome
// message), and every mutation is written back as a whole value.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/storage"
)

// WelcomeFunc returns the greeting used to seed an empty conversation.
type WelcomeFunc func(ctx context.Context) string

// ConversationStore keeps the message log in memory and mirrors it to a
// storage.Store under storage.KeyChatMessages. Safe for concurrent use.
type ConversationStore struct {
	store   storage.Store
	log     zerolog.Logger
	welcome WelcomeFunc
	now     func() time.Time

	mu     sync.Mutex
	msgs   []domain.Message
	loaded bool
}

// NewConversationStore returns an unloaded store; the first call to any
// method restores it.
func NewConversationStore(store storage.Store, log zerolog.Logger, welcome WelcomeFunc) *ConversationStore {
	if welcome == nil {
		welcome = func(context.Context) string { return "" }
	}
	return &ConversationStore{store: store, log: log, welcome: welcome, now: time.Now}
}

// NewMessage builds a message stamped with a fresh ID and the current time.
func (c *ConversationStore) NewMessage(sender domain.Sender, text string) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		CreatedAt: c.now().UTC(),
	}
}

// Load restores the log, seeding a welcome message when nothing usable is
// persisted. Later calls return the in-memory log.
func (c *ConversationStore) Load(ctx context.Context) ([]domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return c.snapshot(), nil
}

// List is an alias of Load kept for readability at call sites.
func (c *ConversationStore) List(ctx context.Context) ([]domain.Message, error) {
	return c.Load(ctx)
}

// Len returns the number of messages in the log.
func (c *ConversationStore) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	return len(c.msgs), nil
}

// Append adds msgs to the end of the log and persists it.
func (c *ConversationStore) Append(ctx context.Context, msgs ...domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}
	c.msgs = append(c.msgs, msgs...)
	return c.persist(ctx)
}

// Get returns the message at index.
func (c *ConversationStore) Get(ctx context.Context, index int) (domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return domain.Message{}, err
	}
	if index < 0 || index >= len(c.msgs) {
		return domain.Message{}, ErrMessageNotFound
	}
	return c.msgs[index], nil
}

// SetFeedback rates the message at index once. It reports whether the value
// was applied; a second call for the same index is a no-op.
func (c *ConversationStore) SetFeedback(ctx context.Context, index int, helpful bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return false, err
	}
	if index < 0 || index >= len(c.msgs) {
		return false, ErrMessageNotFound
	}
	if c.msgs[index].HasFeedback() {
		return false, nil
	}
	v := helpful
	c.msgs[index].Feedback = &v
	return true, c.persist(ctx)
}

// Clear wipes the log and reseeds the welcome message.
func (c *ConversationStore) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = []domain.Message{c.NewMessage(domain.SenderAssistant, c.welcome(ctx))}
	c.loaded = true
	return c.persist(ctx)
}

func (c *ConversationStore) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	raw, err := c.store.Get(ctx, storage.KeyChatMessages)
	switch {
	case err == nil:
		msgs, migrated, derr := decodeMessages(raw)
		if derr == nil && len(msgs) > 0 {
			c.msgs, c.loaded = msgs, true
			if migrated {
				c.log.Info().Int("messages", len(msgs)).Msg("migrated legacy conversation log")
				return c.persist(ctx)
			}
			return nil
		}
		if derr != nil {
			c.log.Warn().Err(derr).Msg("discarding unreadable conversation log")
		}
	case errors.Is(err, storage.ErrNotFound):
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		c.log.Warn().Err(err).Msg("read conversation log")
	}
	c.msgs = []domain.Message{c.NewMessage(domain.SenderAssistant, c.welcome(ctx))}
	c.loaded = true
	return nil
}

func (c *ConversationStore) persist(ctx context.Context) error {
	raw, err := storage.Encode(c.msgs)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, storage.KeyChatMessages, raw); err != nil {
		return fmt.Errorf("persist conversation log: %w", err)
	}
	return nil
}

func (c *ConversationStore) snapshot() []domain.Message {
	out := make([]domain.Message, len(c.msgs))
	copy(out, c.msgs)
	for i := range out {
		if out[i].Feedback != nil {
			v := *out[i].Feedback
			out[i].Feedback = &v
		}
	}
	return out
}
