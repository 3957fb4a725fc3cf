package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/metrics"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/application"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

// maxClientLogBytes bounds a single ingested envelope.
const maxClientLogBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// HealthHandler reports liveness.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyHandler reports readiness: the storage backend must answer a ping.
func ReadyHandler(storage *application.SecureStorage, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := storage.Ping(r.Context()); err != nil {
			logger.Warn(r.Context(), "Readiness check failed", "error", err.Error())
			domain.NewErrorResponse(domain.ErrStorageOffline, "Storage unavailable", err.Error()).WriteJSON(w, http.StatusServiceUnavailable)
			return
		}
		_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// ClientLogsHandler accepts the error envelopes browser clients ship when remote
// logging is enabled and writes them to the service log.
func ClientLogsHandler(logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			logger.Warn(r.Context(), "Invalid method for /client-logs", "method", r.Method)
			domain.NewErrorResponse(domain.ErrMethodNotAllowed, "Method not allowed", "Only POST method is allowed.").WriteJSON(w, http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxClientLogBytes)
		defer r.Body.Close()

		var env domain.LogEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			logger.Warn(r.Context(), "Failed to decode /client-logs payload", "error", err.Error())
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
			return
		}
		if env.Error.Message == "" {
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid payload", "error.message is required.").WriteJSON(w, http.StatusBadRequest)
			return
		}

		level := strings.ToLower(env.Level)
		if level == "" {
			level = "error"
		}
		fields := []any{
			"client_error_type", string(env.Error.Type),
			"client_error_message", env.Error.Message,
			"client_timestamp", env.Timestamp,
			"client_url", env.URL,
			"client_user_agent", env.UserAgent,
		}
		if env.Error.Status != 0 {
			fields = append(fields, "client_status", env.Error.Status)
		}
		if env.Error.Request != nil {
			fields = append(fields, "client_request_url", env.Error.Request.URL, "client_request_method", env.Error.Request.Method)
		}
		if env.Error.Stack != "" {
			fields = append(fields, "client_stack", env.Error.Stack)
		}
		for k, v := range env.Context {
			fields = append(fields, "client_ctx_"+k, v)
		}

		switch level {
		case "debug", "info":
			logger.Info(r.Context(), "Client log received", fields...)
		case "warn", "warning":
			logger.Warn(r.Context(), "Client log received", fields...)
		default:
			level = "error"
			logger.Error(r.Context(), "Client error received", fields...)
		}
		metrics.ObserveClientLogIngested(level)

		w.WriteHeader(http.StatusAccepted)
	}
}

// StorageStatsHandler returns the SecureStorage namespace summary.
func StorageStatsHandler(storage *application.SecureStorage, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			domain.NewErrorResponse(domain.ErrMethodNotAllowed, "Method not allowed", "Only GET method is allowed.").WriteJSON(w, http.StatusMethodNotAllowed)
			return
		}
		stats, err := storage.GetStats(r.Context())
		if err != nil {
			logger.Error(r.Context(), "Failed to compute storage stats", "error", err.Error())
			domain.NewErrorResponse(domain.ErrStorageOffline, "Storage unavailable", err.Error()).WriteJSON(w, http.StatusServiceUnavailable)
			return
		}
		if err := writeJSON(w, http.StatusOK, stats); err != nil {
			logger.Error(r.Context(), "Failed to encode /storage/stats response", "error", err.Error())
		}
	}
}

// StorageCleanupHandler sweeps expired and corrupt records on demand.
func StorageCleanupHandler(storage *application.SecureStorage, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			domain.NewErrorResponse(domain.ErrMethodNotAllowed, "Method not allowed", "Only POST method is allowed.").WriteJSON(w, http.StatusMethodNotAllowed)
			return
		}
		removed, err := storage.Cleanup(r.Context())
		if err != nil {
			logger.Error(r.Context(), "Storage cleanup failed", "error", err.Error())
			domain.NewErrorResponse(domain.ErrStorageOffline, "Cleanup failed", err.Error()).WriteJSON(w, http.StatusServiceUnavailable)
			return
		}
		if err := writeJSON(w, http.StatusOK, map[string]int{"removed": removed}); err != nil {
			logger.Error(r.Context(), "Failed to encode /storage/cleanup response", "error", err.Error())
		}
	}
}
