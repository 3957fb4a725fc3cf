package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Message
	}{
		{"string", `"too short"`, StringMessage("too short")},
		{"list", `["a","b"]`, ListMessage{StringMessage("a"), StringMessage("b")}},
		{
			name: "fields keep order",
			raw:  `{"name":"too short","email":["is required","is invalid"]}`,
			want: FieldsMessage{
				{Name: "name", Value: StringMessage("too short")},
				{Name: "email", Value: ListMessage{StringMessage("is required"), StringMessage("is invalid")}},
			},
		},
		{"scalars dropped", `["x",1,true,null]`, ListMessage{StringMessage("x")}},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessage(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	for _, raw := range []string{`{"a":`, `["a"] "b"`, ``, `[}`} {
		_, err := ParseMessage(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestFlatten_Order(t *testing.T) {
	m, err := ParseMessage(json.RawMessage(`{"email":["is required","is invalid"],"name":"too short","guests":[{"age":"must be a number"},["nested"]]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"is required", "is invalid", "too short", "must be a number", "nested"}, Flatten(m))
}

func TestMessageFromBody(t *testing.T) {
	m, err := MessageFromBody(json.RawMessage(`{"status":"fail","message":["Check-in is required"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Check-in is required"}, Flatten(m))

	for _, body := range []string{``, `   `, `"just a string"`, `{"error":"x"}`, `{"message":null}`, `{"message":42}`} {
		_, err := MessageFromBody(json.RawMessage(body))
		assert.ErrorIs(t, err, ErrNoMessage, body)
	}
}
