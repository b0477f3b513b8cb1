// Package storage defines the opaque key/value store the widget persists its
// state into, together with the in-memory, Redis and degrading implementations
// and the versioned JSON envelope used for every structured value.
//
// Values are whole blobs: every Set overwrites the previous value for the key
// (last writer wins). No partial updates or merges are performed.
package storage

import (
	"context"
	"errors"
)

// Persisted keys.
const (
	KeyChatMessages     = "chatMessages"
	KeyAnalyticsData    = "analyticsData"
	KeyFeedbackData     = "feedbackData"
	KeySelectedLanguage = "selectedLanguage"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("storage: key not found")

	// ErrUnavailable wraps backend failures (I/O, network, driver). Callers
	// degrade to in-memory operation instead of failing the request.
	ErrUnavailable = errors.New("storage: unavailable")
)

// Store is a minimal get/set/delete key-value contract.
//
// Implementations must be safe for concurrent use and honor ctx for
// cancellation where the backend supports it.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
