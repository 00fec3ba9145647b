// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
	"unicode/utf16"

	json "github.com/goccy/go-json"
)

const ContentField = "content"

var (
	ErrDecode    = errors.New("decode notification")
	ErrNotObject = errors.New("payload is not a json object")
)

// Notification is one decoded application message.
// Only the content field is interpreted; everything else is carried as is.
type Notification map[string]any

// DecodeNotification parses a single text frame body.
func DecodeNotification(data []byte) (Notification, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrNotObject)
	}
	return Notification(obj), nil
}

// Content returns the content field when it holds a string.
func (n Notification) Content() (string, bool) {
	v, ok := n[ContentField]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ContentLength counts UTF-16 code units, the way browsers measure strings:
// a character outside the Basic Multilingual Plane counts as two.
func (n Notification) ContentLength() int {
	s, _ := n.Content()
	size := 0
	// range yields U+FFFD for invalid bytes, never a surrogate
	for _, r := range s {
		size += utf16.RuneLen(r)
	}
	return size
}

func (n Notification) String() string {
	b, err := json.Marshal(map[string]any(n))
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(n))
	}
	return string(b)
}
