package middleware

import (
	"crypto/subtle"
	"net/http"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/config"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

const (
	apiKeyHeaderName = "X-API-Key"
	apiKeyQueryParam = "x-api-key"
)

// AdminAPIKeyAuthMiddleware guards operator endpoints with server.admin_api_key.
// The key is read from the X-API-Key header, or the x-api-key query parameter.
func AdminAPIKeyAuthMiddleware(cfgProvider config.Provider, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(apiKeyHeaderName)
			if apiKey == "" {
				apiKey = r.URL.Query().Get(apiKeyQueryParam)
			}

			cfg := cfgProvider.Get()
			if cfg == nil || cfg.Server.AdminAPIKey == "" {
				logger.Error(r.Context(), "Admin auth failed: admin_api_key not configured", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.ErrInternal, "Server configuration error", "Admin authentication cannot be performed.")
				errResp.WriteJSON(w, http.StatusInternalServerError)
				return
			}

			if apiKey == "" {
				logger.Warn(r.Context(), "Admin auth failed: key missing", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.ErrInvalidAPIKey, "API key is required", "Provide API key in X-API-Key header or x-api-key query parameter.")
				errResp.WriteJSON(w, http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(cfg.Server.AdminAPIKey)) != 1 {
				logger.Warn(r.Context(), "Admin auth failed: invalid key", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.ErrInvalidAPIKey, "Invalid API key", "The provided API key is not valid.")
				errResp.WriteJSON(w, http.StatusUnauthorized)
				return
			}

			logger.Debug(r.Context(), "Admin API key authentication successful", "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}
