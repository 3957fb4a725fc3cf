package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

var _ domain.LogSink = (*LogSink)(nil)

// LogSink POSTs error envelopes as JSON to a remote collector. The response body is
// discarded; any non-2xx status is an error.
type LogSink struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

// NewLogSink creates a LogSink for endpoint. Each Send is bounded by timeout.
func NewLogSink(endpoint string, timeout time.Duration, userAgent string) *LogSink {
	return &LogSink{
		client:    &http.Client{Timeout: timeout},
		endpoint:  endpoint,
		userAgent: userAgent,
	}
}

func (s *LogSink) Send(ctx context.Context, envelope domain.LogEnvelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal log envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build log request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post log envelope: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote logging endpoint returned %s", resp.Status)
	}
	return nil
}
