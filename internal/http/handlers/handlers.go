package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/services"
	"github.com/tbourn/portfolio-assistant/internal/storage"
	"github.com/tbourn/portfolio-assistant/internal/utils"
	"github.com/tbourn/portfolio-assistant/internal/voice"
)

// ChatService is the session façade consumed by the handlers.
// Implementations must be safe for concurrent use and honor ctx.
type ChatService interface {
	Send(ctx context.Context, input string) (services.SendResult, error)
	History(ctx context.Context) ([]domain.Message, error)
	Feedback(ctx context.Context, index int, helpful bool) (bool, error)
	Reset(ctx context.Context) error
	Language(ctx context.Context) string
	SetLanguage(ctx context.Context, code string) error
}

// AnalyticsService exposes the aggregated counters.
type AnalyticsService interface {
	Snapshot() domain.AnalyticsSnapshot
	Feedback() []domain.FeedbackRecord
	Clear(ctx context.Context) error
}

// Narrator toggles read-aloud playback of a message.
type Narrator interface {
	Toggle(ctx context.Context, id int, text string, voices []string) (voice.Utterance, bool, error)
	Done(id int)
}

// Handlers groups the widget endpoints.
type Handlers struct {
	chat        ChatService
	analytics   AnalyticsService
	narrator    Narrator
	suggestions []string
}

// Option customizes Handlers.
type Option func(*Handlers)

// WithNarrator enables the read-aloud endpoints. Without it they answer 501.
func WithNarrator(n Narrator) Option { return func(h *Handlers) { h.narrator = n } }

// WithSuggestions sets the suggested questions shown under the input box.
func WithSuggestions(s []string) Option {
	return func(h *Handlers) { h.suggestions = append([]string(nil), s...) }
}

// New constructs Handlers bound to the given services.
func New(chat ChatService, analytics AnalyticsService, opts ...Option) *Handlers {
	h := &Handlers{chat: chat, analytics: analytics}
	for _, o := range opts {
		o(h)
	}
	return h
}

// indexParam parses the :index path segment, writing a 400 when invalid.
func indexParam(c *gin.Context) (int, bool) {
	idx, valid := utils.ParseIndex(c.Param("index"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "index must be a non-negative integer")
	}
	return idx, valid
}

// failService maps errors shared by several endpoints. It reports false when
// err is none of them.
func failService(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		fail(c, http.StatusRequestTimeout, ErrCodeRequestCanceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeRequestCanceled, "request timed out")
	case errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
	case errors.Is(err, storage.ErrUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeStorage, "storage unavailable")
	default:
		return false
	}
	return true
}
