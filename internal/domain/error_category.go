package domain

import "encoding/json"

// ErrorCategory is the coarse classification assigned to every caught error.
type ErrorCategory string

const (
	CategoryNetwork        ErrorCategory = "network"        // no response received
	CategoryAuthentication ErrorCategory = "authentication" // HTTP 401
	CategoryAuthorization  ErrorCategory = "authorization"  // HTTP 403
	CategoryValidation     ErrorCategory = "validation"     // other 4xx or validation wording
	CategoryServer         ErrorCategory = "server"         // HTTP 5xx
	CategoryUnknown        ErrorCategory = "unknown"
)

// ClassifiedError is a derived, never-persisted view over a caught error.
type ClassifiedError struct {
	Message    string         `json:"message"`
	HTTPStatus int            `json:"http_status,omitempty"` // 0 when no response was received
	Category   ErrorCategory  `json:"category"`
	Context    map[string]any `json:"context,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// ErrorLogEntry is the structured record written by the error service for every logged failure.
type ErrorLogEntry struct {
	Message   string          `json:"message"`
	Status    int             `json:"status,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Stack     string          `json:"stack,omitempty"`
	Timestamp string          `json:"timestamp"`
	Type      ErrorCategory   `json:"type"`
	Context   map[string]any  `json:"context,omitempty"`
	Request   *RequestInfo    `json:"request,omitempty"`
	Response  *ResponseDigest `json:"response,omitempty"`
}

// ResponseDigest is the part of a response kept in an ErrorLogEntry.
type ResponseDigest struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}
