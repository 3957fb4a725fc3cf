package domain

import (
	"context"
)

// Logger is the structured logging port used across the service.
// Every method takes the caller's context so request-scoped values (request id,
// user id, page url) can be attached, followed by alternating key/value fields.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // exits the process after logging

	// With returns a child logger that always carries the given key/value fields.
	With(fields ...any) Logger
}
