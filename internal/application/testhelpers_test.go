package application

import (
	"context"
	"sync"
	"time"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

type logRecord struct {
	level  string
	msg    string
	fields []any
}

// recordingLogger is a domain.Logger that keeps every entry in memory.
type recordingLogger struct {
	mu      sync.Mutex
	records []logRecord
}

func (l *recordingLogger) add(level, msg string, fields []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, logRecord{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Debug(_ context.Context, msg string, fields ...any) { l.add("debug", msg, fields) }
func (l *recordingLogger) Info(_ context.Context, msg string, fields ...any) { l.add("info", msg, fields) }
func (l *recordingLogger) Warn(_ context.Context, msg string, fields ...any) { l.add("warn", msg, fields) }
func (l *recordingLogger) Error(_ context.Context, msg string, fields ...any) { l.add("error", msg, fields) }
func (l *recordingLogger) Fatal(_ context.Context, msg string, fields ...any) { l.add("fatal", msg, fields) }
func (l *recordingLogger) With(...any) domain.Logger { return l }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.level == level {
			n++
		}
	}
	return n
}

func (l *recordingLogger) last() logRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) == 0 {
		return logRecord{}
	}
	return l.records[len(l.records)-1]
}

// fieldValue returns the value paired with key in a key/value field list.
func fieldValue(fields []any, key string) (any, bool) {
	for i := 0; i+1 < len(fields); i += 2 {
		if k, ok := fields[i].(string); ok && k == key {
			return fields[i+1], true
		}
	}
	return nil, false
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// sinkFunc adapts a function to domain.LogSink.
type sinkFunc func(ctx context.Context, env domain.LogEnvelope) error

func (f sinkFunc) Send(ctx context.Context, env domain.LogEnvelope) error {
	return f(ctx, env)
}
