package domain

import "context"

// LogEnvelope is the JSON body shipped to the remote logging endpoint.
type LogEnvelope struct {
	Level     string         `json:"level"`
	Context   map[string]any `json:"context,omitempty"`
	Error     ErrorLogEntry  `json:"error"`
	Timestamp string         `json:"timestamp"`
	UserAgent string         `json:"userAgent"`
	URL       string         `json:"url"`
}

// LogSink delivers a LogEnvelope to a remote collector. Send may block for the duration
// of one delivery attempt; callers dispatch it off the request path.
type LogSink interface {
	Send(ctx context.Context, envelope LogEnvelope) error
}
