package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/application"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

// responseTracker records whether the wrapped handler has started its response.
type responseTracker struct {
	http.ResponseWriter
	started bool
}

func (t *responseTracker) WriteHeader(code int) {
	t.started = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTracker) Write(b []byte) (int, error) {
	t.started = true
	return t.ResponseWriter.Write(b)
}

func (t *responseTracker) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

// RecoverMiddleware turns a handler panic into a logged error and a 500 response.
// The panic is reported through ErrorService.HandleRenderError with the goroutine
// stack standing in for the component stack. When the handler had already started
// writing, the partial response is left as is.
func RecoverMiddleware(errorService *application.ErrorService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			w := &responseTracker{ResponseWriter: rw}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				errorService.HandleRenderError(r.Context(), err, string(debug.Stack()))
				if w.started {
					return
				}

				errResp := domain.NewErrorResponse(domain.ErrInternal, application.DefaultFallbackMessage, "")
				errResp.WriteJSON(w, http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
