package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/storage"
)

// Persisted values are storage envelopes (version 1). Values written by the
// browser-only widget carry no envelope and use camelCase keys; they are
// migrated here, and anything else is rejected so callers can reset to
// defaults.

var errInvalidValue = errors.New("invalid persisted value")

type legacyMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Feedback  *bool     `json:"feedback,omitempty"`
}

type legacyAnalytics struct {
	TotalMessages       int     `json:"totalMessages"`
	HelpfulResponses    int     `json:"helpfulResponses"`
	UnhelpfulResponses  int     `json:"unhelpfulResponses"`
	MostUsedLanguage    string  `json:"mostUsedLanguage"`
	AverageResponseTime float64 `json:"averageResponseTime"`
}

type legacyFeedback struct {
	MessageID int       `json:"messageId"`
	IsHelpful bool      `json:"isHelpful"`
	Timestamp time.Time `json:"timestamp"`
	Language  string    `json:"language"`
}

func decodeMessages(raw []byte) (msgs []domain.Message, migrated bool, err error) {
	err = storage.Decode(raw, &msgs)
	if errors.Is(err, storage.ErrLegacyFormat) {
		msgs, err = migrateMessages(raw)
		migrated = err == nil
	}
	if err != nil {
		return nil, false, err
	}
	for i, m := range msgs {
		if !m.Sender.Valid() {
			return nil, false, fmt.Errorf("%w: message %d has sender %q", errInvalidValue, i, m.Sender)
		}
	}
	return msgs, migrated, nil
}

func migrateMessages(raw []byte) ([]domain.Message, error) {
	var in []legacyMessage
	if err := storage.DecodeStrict(raw, &in); err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(in))
	for i, m := range in {
		var s domain.Sender
		switch m.Sender {
		case "user":
			s = domain.SenderUser
		case "ai", "assistant":
			s = domain.SenderAssistant
		default:
			return nil, fmt.Errorf("%w: legacy message %d has sender %q", errInvalidValue, i, m.Sender)
		}
		out = append(out, domain.Message{
			ID:        uuid.NewString(),
			Sender:    s,
			Text:      m.Text,
			CreatedAt: m.Timestamp.UTC(),
			Feedback:  m.Feedback,
		})
	}
	return out, nil
}

func decodeSnapshot(raw []byte) (snap domain.AnalyticsSnapshot, migrated bool, err error) {
	err = storage.Decode(raw, &snap)
	if errors.Is(err, storage.ErrLegacyFormat) {
		var in legacyAnalytics
		if err = storage.DecodeStrict(raw, &in); err == nil {
			snap = domain.AnalyticsSnapshot{
				TotalMessages:         in.TotalMessages,
				HelpfulResponses:      in.HelpfulResponses,
				UnhelpfulResponses:    in.UnhelpfulResponses,
				MostUsedLanguage:      in.MostUsedLanguage,
				AverageResponseTimeMs: in.AverageResponseTime,
			}
			migrated = true
		}
	}
	if err != nil {
		return domain.AnalyticsSnapshot{}, false, err
	}
	if snap.TotalMessages < 0 || snap.HelpfulResponses < 0 || snap.UnhelpfulResponses < 0 ||
		snap.AverageResponseTimeMs < 0 {
		return domain.AnalyticsSnapshot{}, false, fmt.Errorf("%w: negative counters", errInvalidValue)
	}
	if snap.MostUsedLanguage == "" {
		snap.MostUsedLanguage = defaultAnalyticsLanguage
	}
	return snap, migrated, nil
}

func decodeFeedbackLog(raw []byte) (recs []domain.FeedbackRecord, migrated bool, err error) {
	err = storage.Decode(raw, &recs)
	if errors.Is(err, storage.ErrLegacyFormat) {
		var in []legacyFeedback
		if err = storage.DecodeStrict(raw, &in); err == nil {
			recs = make([]domain.FeedbackRecord, 0, len(in))
			for _, f := range in {
				recs = append(recs, domain.FeedbackRecord{
					MessageIndex: f.MessageID,
					IsHelpful:    f.IsHelpful,
					Timestamp:    f.Timestamp.UTC(),
					Language:     f.Language,
				})
			}
			migrated = true
		}
	}
	if err != nil {
		return nil, false, err
	}
	return recs, migrated, nil
}
