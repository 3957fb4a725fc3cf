package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

var _ domain.LogSink = (*LogSink)(nil)

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// LogSink publishes error envelopes as JSON on a NATS subject. Publishing is
// at-most-once; envelopes sent while the connection is down are buffered by the
// client up to its reconnect buffer and dropped after that.
type LogSink struct {
	pub     Publisher
	subject string
}

// NewLogSink creates a LogSink publishing on subject.
func NewLogSink(pub Publisher, subject string) *LogSink {
	if pub == nil {
		panic("publisher is nil in NewLogSink")
	}
	return &LogSink{pub: pub, subject: subject}
}

func (s *LogSink) Send(ctx context.Context, envelope domain.LogEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal log envelope: %w", err)
	}
	if err := s.pub.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publish log envelope to %s: %w", s.subject, err)
	}
	return nil
}
