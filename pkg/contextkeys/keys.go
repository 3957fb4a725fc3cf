package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// UserIDKey is the context key for the signed-in customer, when known.
	UserIDKey contextKey = "user_id"

	// PageURLKey carries the page or request URL an error was raised on.
	PageURLKey contextKey = "page_url"

	// UserAgentKey carries the client user agent that reported an error.
	UserAgentKey contextKey = "user_agent"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
