package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

// Connect dials the NATS server at url. The returned cleanup drains and closes the
// connection.
func Connect(ctx context.Context, url, clientName string, appLogger domain.Logger) (*nats.Conn, func(), error) {
	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", url)

	nc, err := nats.Connect(url,
		nats.Name(clientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			subject := ""
			if s != nil {
				subject = s.Subject
			}
			appLogger.Error(ctx, "NATS error", "subscription", subject, "error", err.Error())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", url, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	cleanup := func() {
		appLogger.Info(context.Background(), "Closing NATS connection...")
		if err := nc.Drain(); err != nil {
			appLogger.Warn(context.Background(), "NATS drain failed, closing", "error", err.Error())
			nc.Close()
		}
	}
	return nc, cleanup, nil
}
