// Package services defines the assistant's business logic: resolving a
// question to an answer, keeping the conversation log, and aggregating usage
// analytics. This file centralizes service-level error values so that they
// can be consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrEmptyInput is returned when a question is blank after trimming.
	ErrEmptyInput = errors.New("input is empty")

	// ErrTooLong is returned when a question exceeds the configured rune limit.
	ErrTooLong = errors.New("input too long")

	// ErrBusy is returned when a question is submitted while another one is
	// still being resolved for the same session.
	ErrBusy = errors.New("a response is already in progress")

	// ErrMessageNotFound indicates that the message index is outside the log.
	ErrMessageNotFound = errors.New("message not found")

	// ErrForbiddenFeedback is returned when feedback targets a visitor's own
	// message instead of an assistant reply.
	ErrForbiddenFeedback = errors.New("cannot leave feedback on this message")

	// ErrUnsupportedLanguage is returned for language codes outside the picker.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
