package domain

import (
	"encoding/json"
	"fmt"
)

// RequestInfo describes the outbound request that produced an HTTPError.
type RequestInfo struct {
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ResponseInfo describes the response received for an HTTPError.
// Body is the raw response payload; its "message" field feeds user-facing messages.
type ResponseInfo struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       json.RawMessage   `json:"data,omitempty"`
}

// HTTPError is a failed call to an upstream API.
// A nil Response means nothing came back (DNS failure, timeout, refused connection).
type HTTPError struct {
	Message  string
	Request  *RequestInfo
	Response *ResponseInfo
	Stack    string
	Err      error
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Response != nil {
		return fmt.Sprintf("request failed with status code %d", e.Response.Status)
	}
	return "network error"
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
