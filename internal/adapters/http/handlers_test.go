package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/logger"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/memory"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/application"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
	"gitlab.com/trektoo/api/trektoo-client-core/pkg/crypto"
)

var errBackendDown = errors.New("backend down")

// downStore fails every call.
type downStore struct{}

func (downStore) Get(context.Context, string) (string, error) { return "", errBackendDown }
func (downStore) Set(context.Context, string, string) error { return errBackendDown }
func (downStore) Remove(context.Context, string) error { return errBackendDown }
func (downStore) Keys(context.Context) ([]string, error) { return nil, errBackendDown }
func (downStore) Ping(context.Context) error { return errBackendDown }

func newObservedLogger() (domain.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewFromZap(zap.New(core)), logs
}

func newStorage(t *testing.T, store domain.KeyValueStore) *application.SecureStorage {
	t.Helper()
	cipher, err := crypto.NewXORCipher("handler-test-key")
	require.NoError(t, err)
	l, _ := newObservedLogger()
	return application.NewSecureStorage(store, cipher, l)
}

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	HealthHandler()(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestReadyHandler(t *testing.T) {
	l, _ := newObservedLogger()

	rr := httptest.NewRecorder()
	ReadyHandler(newStorage(t, memory.NewKVStore()), l)(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	ReadyHandler(newStorage(t, downStore{}), l)(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), string(domain.ErrStorageOffline))

	rr = httptest.NewRecorder()
	ReadyHandler(newStorage(t, nil), l)(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestClientLogsHandler(t *testing.T) {
	l, logs := newObservedLogger()
	h := ClientLogsHandler(l)

	body := `{
		"level": "error",
		"context": {"component": "PaymentForm"},
		"error": {"message": "Card was declined", "status": 402, "type": "validation", "timestamp": "2024-05-01T10:00:00.000Z",
		          "request": {"url": "/api/payments", "method": "POST"}},
		"timestamp": "2024-05-01T10:00:00.000Z",
		"userAgent": "Mozilla/5.0",
		"url": "https://trektoo.test/checkout"
	}`
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/client-logs", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rr.Code)

	entries := logs.FilterMessage("Client error received").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Card was declined", fields["client_error_message"])
	assert.Equal(t, "validation", fields["client_error_type"])
	assert.Equal(t, "PaymentForm", fields["client_ctx_component"])
	assert.Equal(t, "POST", fields["client_request_method"])
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestClientLogsHandler_Rejects(t *testing.T) {
	l, _ := newObservedLogger()
	h := ClientLogsHandler(l)

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"missing message", http.MethodPost, `{"level":"error","error":{}}`, http.StatusBadRequest},
		{"too large", http.MethodPost, `{"level":"` + strings.Repeat("x", maxClientLogBytes) + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h(rr, httptest.NewRequest(tt.method, "/client-logs", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestStorageHandlers(t *testing.T) {
	ctx := context.Background()
	l, _ := newObservedLogger()
	store := memory.NewKVStore()
	storage := newStorage(t, store)

	require.NoError(t, storage.SetItem(ctx, "currency", "IDR"))
	require.NoError(t, storage.SetItem(ctx, "promo", "X", application.WithExpiresAt(time.Now().Add(-time.Minute))))
	require.NoError(t, store.Set(ctx, "trektoo_junk", "???"))

	rr := httptest.NewRecorder()
	StorageStatsHandler(storage, l)(rr, httptest.NewRequest(http.MethodGet, "/storage/stats", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var stats domain.StorageStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Valid)
	assert.Equal(t, 1, stats.Expired)

	rr = httptest.NewRecorder()
	StorageCleanupHandler(storage, l)(rr, httptest.NewRequest(http.MethodPost, "/storage/cleanup", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"removed":2}`, rr.Body.String())

	rr = httptest.NewRecorder()
	StorageCleanupHandler(storage, l)(rr, httptest.NewRequest(http.MethodGet, "/storage/cleanup", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	StorageStatsHandler(newStorage(t, downStore{}), l)(rr, httptest.NewRequest(http.MethodGet, "/storage/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
