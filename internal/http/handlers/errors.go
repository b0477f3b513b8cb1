// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable: the widget script branches on
// them. Every error response carries an HTTP status and one of these codes:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "busy",
//	  "message": "a response is already in progress"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRequestCanceled  = "request_canceled"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeEmptyInput          = "empty_input"
	ErrCodeInputTooLong        = "input_too_long"
	ErrCodeBusy                = "busy"
	ErrCodeCompletionFailed    = "completion_failed"
	ErrCodeUnsupportedLanguage = "unsupported_language"
	ErrCodeNotSupported        = "not_supported"
	ErrCodeStorage             = "storage_failed"
)
