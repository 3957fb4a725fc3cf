package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPError_Error(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:443: i/o timeout")

	assert.Equal(t, "Request failed", (&HTTPError{Message: "Request failed", Err: cause}).Error())
	assert.Equal(t, cause.Error(), (&HTTPError{Err: cause}).Error())
	assert.Equal(t, "request failed with status code 404", (&HTTPError{Response: &ResponseInfo{Status: 404}}).Error())
	assert.Equal(t, "network error", (&HTTPError{}).Error())
}

func TestHTTPError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("fetch hotels: %w", &HTTPError{Err: cause})

	assert.ErrorIs(t, wrapped, cause)
	var httpErr *HTTPError
	assert.ErrorAs(t, wrapped, &httpErr)
}

func TestStoredRecord_Expired(t *testing.T) {
	at := int64(1_000)
	rec := StoredRecord{ExpiresAt: &at}

	assert.False(t, rec.Expired(999))
	assert.False(t, rec.Expired(1_000))
	assert.True(t, rec.Expired(1_001))
	assert.False(t, StoredRecord{}.Expired(1<<62))
}
