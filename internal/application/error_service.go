package application

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/metrics"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
	"gitlab.com/trektoo/api/trektoo-client-core/pkg/contextkeys"
	"gitlab.com/trektoo/api/trektoo-client-core/pkg/safego"
)

const (
	// ErrorBoundaryLabel tags entries logged through HandleRenderError.
	ErrorBoundaryLabel = "ErrorBoundary"

	ConnectionErrorMessage = "Unable to connect to the server. Please check your internet connection and try again."
	DefaultFallbackMessage = "An unexpected error occurred. Please try again."

	DefaultMaxRetries      = 3
	DefaultRetryBaseDelay  = time.Second
	DefaultRetryMultiplier = 2.0
	DefaultRemoteQueueSize = 256
)

// NoRetries disables retrying when set as RetryOptions.MaxRetries.
const NoRetries = -1

var validationPhrases = []string{"required", "already been taken", "invalid", "must be"}

var statusMessages = map[int]string{
	400: "Invalid request. Please check your input and try again.",
	401: "Your session has expired. Please log in again.",
	403: "You do not have permission to perform this action.",
	404: "The requested resource was not found.",
	409: "This request conflicts with existing data. Please refresh and try again.",
	422: "Some of the information provided is invalid. Please review it and try again.",
	429: "Too many requests. Please wait a moment and try again.",
	500: "Something went wrong on our side. Please try again later.",
	502: "The service is temporarily unavailable. Please try again later.",
	503: "The service is under maintenance. Please try again later.",
	504: "The server took too long to respond. Please try again.",
}

// Classify assigns a category to err. Rules are evaluated in order:
// validation wording in the message, missing response, response status, unknown.
func Classify(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategoryUnknown
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range validationPhrases {
		if strings.Contains(msg, phrase) {
			return domain.CategoryValidation
		}
	}

	resp := responseOf(err)
	if resp == nil {
		return domain.CategoryNetwork
	}

	switch status := resp.Status; {
	case status == 401:
		return domain.CategoryAuthentication
	case status == 403:
		return domain.CategoryAuthorization
	case status >= 400 && status < 500:
		return domain.CategoryValidation
	case status >= 500:
		return domain.CategoryServer
	}
	return domain.CategoryUnknown
}

// ClassifyError builds the full classified view of err.
func ClassifyError(err error, fields map[string]any) domain.ClassifiedError {
	ce := domain.ClassifiedError{
		Category:  Classify(err),
		Context:   fields,
		Timestamp: isoTimestamp(time.Now()),
	}
	if err != nil {
		ce.Message = err.Error()
	}
	if resp := responseOf(err); resp != nil {
		ce.HTTPStatus = resp.Status
	}
	return ce
}

// MessageOptions tunes UserFriendlyMessage.
type MessageOptions struct {
	// Custom maps an exact error message to the text shown instead.
	Custom map[string]string
	// Fallback replaces DefaultFallbackMessage.
	Fallback string
}

// UserFriendlyMessage returns the text to show an end user for err. It never exposes
// stack traces or raw error shapes.
func UserFriendlyMessage(err error, opts MessageOptions) string {
	fallback := opts.Fallback
	if fallback == "" {
		fallback = DefaultFallbackMessage
	}
	if err == nil {
		return fallback
	}

	if custom, ok := opts.Custom[err.Error()]; ok {
		return custom
	}

	resp := responseOf(err)
	if resp == nil {
		return ConnectionErrorMessage
	}

	if msg, mErr := domain.MessageFromBody(resp.Body); mErr == nil {
		// blank leaves carry nothing to show
		parts := slices.DeleteFunc(domain.Flatten(msg), func(p string) bool {
			return strings.TrimSpace(p) == ""
		})
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}

	if text, ok := statusMessages[resp.Status]; ok {
		return text
	}
	return fallback
}

// RetryOptions controls WithRetry. Zero fields take the service defaults.
type RetryOptions struct {
	MaxRetries int // extra attempts after the first; NoRetries for none
	BaseDelay  time.Duration
	Multiplier float64
	Retryable  []domain.ErrorCategory
}

// DefaultRetryOptions returns the built-in retry policy.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultRetryBaseDelay,
		Multiplier: DefaultRetryMultiplier,
		Retryable:  []domain.ErrorCategory{domain.CategoryNetwork, domain.CategoryServer},
	}
}

func (o RetryOptions) withDefaults(d RetryOptions) RetryOptions {
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = d.MaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = d.BaseDelay
	}
	if o.Multiplier <= 0 {
		o.Multiplier = d.Multiplier
	}
	if len(o.Retryable) == 0 {
		o.Retryable = d.Retryable
	}
	return o
}

func (o RetryOptions) retryable(c domain.ErrorCategory) bool {
	for _, r := range o.Retryable {
		if r == c {
			return true
		}
	}
	return false
}

// delay returns the wait before retry n, counting from 0. It saturates at the largest
// representable duration instead of overflowing.
func (o RetryOptions) delay(n int) time.Duration {
	d := float64(o.BaseDelay) * math.Pow(o.Multiplier, float64(n))
	if math.IsNaN(d) || d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// ErrorServiceConfig holds the tunables of an ErrorService.
type ErrorServiceConfig struct {
	UserAgent string
	QueueSize int
	Retry     RetryOptions
}

// ErrorService logs classified errors locally and, when a sink is attached, ships them
// to a remote collector in the background. It also runs operations under the retry
// policy.
type ErrorService struct {
	logger domain.Logger
	sink   domain.LogSink
	cfg    ErrorServiceConfig
	queue  chan domain.LogEnvelope

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewErrorService creates an ErrorService. sink may be nil, which disables remote
// logging. Call Start to begin draining the remote queue.
func NewErrorService(logger domain.Logger, sink domain.LogSink, cfg ErrorServiceConfig) *ErrorService {
	if logger == nil {
		panic("logger is nil in NewErrorService")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultRemoteQueueSize
	}
	cfg.Retry = cfg.Retry.withDefaults(DefaultRetryOptions())

	s := &ErrorService{
		logger: logger,
		sink:   sink,
		cfg:    cfg,
		now:    time.Now,
		sleep:  sleepContext,
	}
	if sink != nil {
		s.queue = make(chan domain.LogEnvelope, cfg.QueueSize)
	}
	return s
}

// Start launches the remote dispatch worker. It stops when ctx is cancelled.
func (s *ErrorService) Start(ctx context.Context) {
	if s.sink == nil {
		return
	}
	safego.Execute(ctx, s.logger, "RemoteLogDispatcher", func() {
		s.dispatchLoop(ctx)
	})
}

func (s *ErrorService) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-s.queue:
			s.deliver(ctx, env)
		}
	}
}

func (s *ErrorService) deliver(ctx context.Context, env domain.LogEnvelope) {
	if err := s.sink.Send(ctx, env); err != nil {
		s.logger.Warn(ctx, "Failed to send error to remote logging", "error", err.Error())
		metrics.ObserveRemoteLogDispatch("failed")
		return
	}
	metrics.ObserveRemoteLogDispatch("sent")
}

// LogError records err with the caller's fields and returns the entry that was logged.
func (s *ErrorService) LogError(ctx context.Context, err error, fields map[string]any) domain.ErrorLogEntry {
	entry := s.buildEntry(err, fields)
	metrics.ObserveClassifiedError(string(entry.Type))

	logFields := []any{
		"error_type", string(entry.Type),
		"error_message", entry.Message,
	}
	if entry.Status != 0 {
		logFields = append(logFields, "status", entry.Status)
	}
	if entry.Request != nil {
		logFields = append(logFields, "request_url", entry.Request.URL, "request_method", entry.Request.Method)
	}
	if len(entry.Data) > 0 {
		logFields = append(logFields, "response_data", string(entry.Data))
	}
	if entry.Stack != "" {
		logFields = append(logFields, "stack", entry.Stack)
	}
	for k, v := range fields {
		logFields = append(logFields, k, v)
	}
	s.logger.Error(ctx, "Error logged", logFields...)

	s.enqueue(ctx, entry, fields)
	return entry
}

// HandleRenderError logs a failure caught by a recovery boundary together with the
// stack of the component that produced it.
func (s *ErrorService) HandleRenderError(ctx context.Context, err error, componentStack string) domain.ErrorLogEntry {
	return s.LogError(ctx, err, map[string]any{
		"context":        ErrorBoundaryLabel,
		"componentStack": componentStack,
	})
}

func (s *ErrorService) buildEntry(err error, fields map[string]any) domain.ErrorLogEntry {
	entry := domain.ErrorLogEntry{
		Timestamp: isoTimestamp(s.now()),
		Type:      Classify(err),
		Context:   fields,
	}
	if err == nil {
		return entry
	}
	entry.Message = err.Error()

	var httpErr *domain.HTTPError
	if !errors.As(err, &httpErr) {
		return entry
	}
	entry.Stack = httpErr.Stack
	entry.Request = httpErr.Request
	if resp := httpErr.Response; resp != nil {
		entry.Status = resp.Status
		entry.Data = resp.Body
		entry.Response = &domain.ResponseDigest{
			Status:     resp.Status,
			StatusText: resp.StatusText,
			Headers:    resp.Headers,
		}
	}
	return entry
}

func (s *ErrorService) enqueue(ctx context.Context, entry domain.ErrorLogEntry, fields map[string]any) {
	if s.sink == nil {
		return
	}
	env := domain.LogEnvelope{
		Level:     "error",
		Context:   fields,
		Error:     entry,
		Timestamp: entry.Timestamp,
		UserAgent: s.cfg.UserAgent,
	}
	if ua, ok := ctx.Value(contextkeys.UserAgentKey).(string); ok && ua != "" {
		env.UserAgent = ua
	}
	if u, ok := ctx.Value(contextkeys.PageURLKey).(string); ok {
		env.URL = u
	}

	select {
	case s.queue <- env:
	default:
		s.logger.Warn(ctx, "Remote logging queue full, dropping error envelope", "queue_size", s.cfg.QueueSize)
		metrics.ObserveRemoteLogDispatch("dropped")
	}
}

// WithRetry runs op and retries it while its error classifies as retryable, waiting
// BaseDelay*Multiplier^n before retry n. The last error is returned unchanged when the
// error is not retryable or retries run out. Cancelling ctx during a wait stops the
// sequence and returns the last error joined with ctx.Err().
func (s *ErrorService) WithRetry(ctx context.Context, op func(ctx context.Context) error, opts RetryOptions) error {
	_, err := Retry(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts)
	return err
}

// Retry is the value-returning form of ErrorService.WithRetry.
func Retry[T any](ctx context.Context, s *ErrorService, op func(ctx context.Context) (T, error), opts RetryOptions) (T, error) {
	opts = opts.withDefaults(s.cfg.Retry)

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		category := Classify(err)
		if attempt >= opts.MaxRetries || !opts.retryable(category) {
			return zero, err
		}

		wait := opts.delay(attempt)
		metrics.ObserveRetry(string(category))
		s.logger.Debug(ctx, "Retrying operation", "attempt", attempt+1, "delay_ms", wait.Milliseconds(), "error_type", string(category))

		if sleepErr := s.sleep(ctx, wait); sleepErr != nil {
			return zero, errors.Join(err, sleepErr)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func responseOf(err error) *domain.ResponseInfo {
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Response
	}
	return nil
}

func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
