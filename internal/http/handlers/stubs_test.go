package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/services"
	"github.com/tbourn/portfolio-assistant/internal/voice"
)

var errBoom = errors.New("boom")

type stubChat struct {
	send        func(ctx context.Context, input string) (services.SendResult, error)
	history     []domain.Message
	historyErr  error
	feedback    func(ctx context.Context, index int, helpful bool) (bool, error)
	resetErr    error
	resets      int
	lang        string
	setLanguage func(ctx context.Context, code string) error
}

func (s *stubChat) Send(ctx context.Context, input string) (services.SendResult, error) {
	if s.send == nil {
		return services.SendResult{}, nil
	}
	return s.send(ctx, input)
}

func (s *stubChat) History(context.Context) ([]domain.Message, error) {
	return s.history, s.historyErr
}

func (s *stubChat) Feedback(ctx context.Context, index int, helpful bool) (bool, error) {
	return s.feedback(ctx, index, helpful)
}

func (s *stubChat) Reset(context.Context) error {
	s.resets++
	return s.resetErr
}

func (s *stubChat) Language(context.Context) string {
	if s.lang == "" {
		return "en"
	}
	return s.lang
}

func (s *stubChat) SetLanguage(ctx context.Context, code string) error {
	if s.setLanguage != nil {
		return s.setLanguage(ctx, code)
	}
	s.lang = code
	return nil
}

type stubAnalytics struct {
	snap     domain.AnalyticsSnapshot
	records  []domain.FeedbackRecord
	clearErr error
	cleared  int
}

func (s *stubAnalytics) Snapshot() domain.AnalyticsSnapshot { return s.snap }

func (s *stubAnalytics) Feedback() []domain.FeedbackRecord { return s.records }

func (s *stubAnalytics) Clear(context.Context) error {
	s.cleared++
	return s.clearErr
}

type stubNarrator struct {
	toggle func(id int, text string, voices []string) (voice.Utterance, bool, error)
	done   []int
}

func (s *stubNarrator) Toggle(_ context.Context, id int, text string, voices []string) (voice.Utterance, bool, error) {
	return s.toggle(id, text, voices)
}

func (s *stubNarrator) Done(id int) { s.done = append(s.done, id) }

// conversation is a two-turn log used by the index-addressed endpoints.
func conversation() []domain.Message {
	return []domain.Message{
		{ID: "m0", Sender: domain.SenderAssistant, Text: "Hello!"},
		{ID: "m1", Sender: domain.SenderUser, Text: "Hi"},
		{ID: "m2", Sender: domain.SenderAssistant, Text: "How can I help?"},
	}
}

// serve routes one request through a router with all endpoints mounted.
func serve(t *testing.T, h *Handlers, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/messages", h.ListMessages)
	r.POST("/messages", h.PostMessage)
	r.DELETE("/messages", h.ResetMessages)
	r.POST("/messages/:index/feedback", h.LeaveFeedback)
	r.POST("/messages/:index/speak", h.Speak)
	r.DELETE("/messages/:index/speak", h.SpeakDone)
	r.GET("/voice", h.Voice)
	r.GET("/analytics", h.GetAnalytics)
	r.GET("/analytics/feedback", h.GetFeedbackLog)
	r.DELETE("/analytics", h.ClearAnalytics)
	r.GET("/language", h.GetLanguage)
	r.PUT("/language", h.SetLanguage)
	r.GET("/languages", h.ListLanguages)
	r.GET("/suggestions", h.Suggestions)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
