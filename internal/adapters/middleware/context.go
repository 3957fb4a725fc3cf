package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"gitlab.com/trektoo/api/trektoo-client-core/pkg/contextkeys"
)

const XRequestIDHeader = "X-Request-ID"

// XPageURLHeader lets a browser client report the page it was on when it called us.
const XPageURLHeader = "X-Page-URL"

// RequestIDMiddleware injects a request ID into the context.
// It tries to get it from the X-Request-ID header, otherwise generates a new UUID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(XRequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
		w.Header().Set(XRequestIDHeader, requestID) // Also set it in the response header
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientContextMiddleware records the caller's page URL and user agent so error
// envelopes built further down carry them.
func ClientContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageURL := r.Header.Get(XPageURLHeader)
		if pageURL == "" {
			pageURL = r.URL.String()
		}

		ctx := context.WithValue(r.Context(), contextkeys.PageURLKey, pageURL)
		if ua := r.UserAgent(); ua != "" {
			ctx = context.WithValue(ctx, contextkeys.UserAgentKey, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
