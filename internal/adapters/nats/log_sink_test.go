package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

var _ Publisher = (*nats.Conn)(nil)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return nil
}

func TestLogSink_Send(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewLogSink(pub, "trektoo.client.errors")

	env := domain.LogEnvelope{
		Level:     "error",
		Error:     domain.ErrorLogEntry{Message: "timeout", Type: domain.CategoryNetwork},
		Timestamp: "2024-05-01T10:00:00.000Z",
		URL:       "https://trektoo.test/hotels",
	}
	require.NoError(t, sink.Send(context.Background(), env))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "trektoo.client.errors", pub.msgs[0].subject)

	var got domain.LogEnvelope
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &got))
	assert.Equal(t, env.Error.Message, got.Error.Message)
	assert.Equal(t, env.URL, got.URL)
}

func TestLogSink_Errors(t *testing.T) {
	pub := &fakePublisher{err: nats.ErrConnectionClosed}
	sink := NewLogSink(pub, "trektoo.client.errors")

	err := sink.Send(context.Background(), domain.LogEnvelope{Level: "error"})
	assert.True(t, errors.Is(err, nats.ErrConnectionClosed))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.err = nil
	assert.ErrorIs(t, sink.Send(ctx, domain.LogEnvelope{}), context.Canceled)
	assert.Empty(t, pub.msgs)
}
