package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Message is the server-supplied "message" payload of an error response body.
// It is one of StringMessage, ListMessage or FieldsMessage.
type Message interface {
	isMessage()
}

// StringMessage is a single human-readable message.
type StringMessage string

// ListMessage is an ordered list of messages.
type ListMessage []Message

// Field is one named entry of a FieldsMessage, typically a form field.
type Field struct {
	Name  string
	Value Message
}

// FieldsMessage holds per-field messages in the order the server sent them.
type FieldsMessage []Field

func (StringMessage) isMessage() {}
func (ListMessage) isMessage()   {}
func (FieldsMessage) isMessage() {}

// Flatten collects every leaf string of m, depth first, preserving object key order
// and list element order.
func Flatten(m Message) []string {
	var out []string
	var walk func(Message)
	walk = func(m Message) {
		switch v := m.(type) {
		case StringMessage:
			out = append(out, string(v))
		case ListMessage:
			for _, item := range v {
				walk(item)
			}
		case FieldsMessage:
			for _, f := range v {
				walk(f.Value)
			}
		}
	}
	walk(m)
	return out
}

// ErrNoMessage is returned when a response body carries no usable "message" field.
var ErrNoMessage = errors.New("response body has no message field")

// MessageFromBody extracts the "message" field of a JSON response body.
func MessageFromBody(body json.RawMessage) (Message, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNoMessage
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, ErrNoMessage
	}
	raw, ok := fields["message"]
	if !ok {
		return nil, ErrNoMessage
	}
	m, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNoMessage
	}
	return m, nil
}

// ParseMessage decodes raw JSON into a Message. Objects keep their key order.
// Numbers, booleans and nulls carry no text and are dropped.
func ParseMessage(raw json.RawMessage) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	m, err := parseMessageValue(dec)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse message: trailing data after value")
	}
	return m, nil
}

func parseMessageValue(dec *json.Decoder) (Message, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case string:
		return StringMessage(t), nil
	case json.Delim:
		switch t {
		case '[':
			list := ListMessage{}
			for dec.More() {
				item, err := parseMessageValue(dec)
				if err != nil {
					return nil, err
				}
				if item != nil {
					list = append(list, item)
				}
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		case '{':
			fields := FieldsMessage{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := parseMessageValue(dec)
				if err != nil {
					return nil, err
				}
				if value != nil {
					fields = append(fields, Field{Name: key, Value: value})
				}
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return fields, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return nil, nil
	}
}
