// Package domain defines the data model of the portfolio assistant: the
// conversation log, canned answer entries, feedback records and analytics
// counters, plus the GORM row used to persist opaque key/value blobs.
package domain

import (
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Role maps a sender to the chat-completion role name.
func (s Sender) Role() string {
	if s == SenderUser {
		return "user"
	}
	return "assistant"
}

// Message is a single entry of the conversation log.
//
// Fields:
//   - ID: UUID assigned on creation, used by clients for correlation.
//   - Sender: "user" or "assistant".
//   - Text: full, immutable message text.
//   - CreatedAt: UTC creation instant.
//   - Feedback: nil until the visitor rates the message; written at most once.
//
// Message position (index) in the log is the addressing scheme used for
// feedback, matching the widget's rendering order.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Feedback  *bool     `json:"feedback,omitempty"`
}

// HasFeedback reports whether the message was already rated.
func (m Message) HasFeedback() bool { return m.Feedback != nil }

// CannedEntry maps one question phrasing to its pre-authored answer. Several
// phrasings may share the same answer.
type CannedEntry struct {
	Phrasing string `json:"phrasing" yaml:"phrasing"`
	Answer   string `json:"answer"   yaml:"answer"`
}

// FeedbackRecord is an append-only analytics event describing one rating.
type FeedbackRecord struct {
	MessageIndex int       `json:"message_index"`
	IsHelpful    bool      `json:"is_helpful"`
	Timestamp    time.Time `json:"timestamp"`
	Language     string    `json:"language"`
}

// AnalyticsSnapshot holds the lifetime counters of the widget.
//
// AverageResponseTimeMs is the running mean over exactly TotalMessages
// observations. LanguageCounts tracks how many messages were answered per
// language; MostUsedLanguage is derived from it.
type AnalyticsSnapshot struct {
	TotalMessages         int            `json:"total_messages"`
	HelpfulResponses      int            `json:"helpful_responses"`
	UnhelpfulResponses    int            `json:"unhelpful_responses"`
	MostUsedLanguage      string         `json:"most_used_language"`
	AverageResponseTimeMs float64        `json:"average_response_time_ms"`
	LanguageCounts        map[string]int `json:"language_counts,omitempty"`
}

// KVEntry is the relational representation of an opaque key/value blob.
//
// Fields:
//   - Key: primary key (e.g. "chatMessages").
//   - Value: whole-value payload; overwritten on every write.
//   - UpdatedAt: managed by GORM.
type KVEntry struct {
	Key       string    `gorm:"type:varchar(128);primaryKey"`
	Value     []byte    `gorm:"type:blob;not null"`
	UpdatedAt time.Time `gorm:"index"`
}

// TableName returns the database table name for KVEntry.
func (KVEntry) TableName() string { return "kv_entries" }
