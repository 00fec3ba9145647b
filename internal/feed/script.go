// Package feed describes what the local feed server replays to clients.
package feed

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrEmptyScript = errors.New("feed script has no frames")

// Frame is one websocket message. Payload is sent verbatim; Binary selects
// the message type.
type Frame struct {
	Binary  bool   `yaml:"binary"`
	Payload string `yaml:"payload"`
}

// Script is replayed to every client. Interval is the pause before each frame.
type Script struct {
	Interval time.Duration `yaml:"interval"`
	Loop     bool          `yaml:"loop"`
	Frames   []Frame       `yaml:"frames"`
}

// DefaultScript resembles the public wiki update feed.
func DefaultScript() Script {
	return Script{
		Interval: 500 * time.Millisecond,
		Frames: []Frame{
			{Payload: `{"page":"Go (programming language)","user":"gopher","content":"Go is a statically typed, compiled language."}`},
			{Payload: `{"page":"WebSocket","user":"anon","content":""}`},
			{Payload: `{"page":"Reactive programming","user":"bacon","content":"Streams of events over time."}`},
			{Payload: `{"page":"Fold (higher-order function)","user":"haskell","content":"foldl"}`},
			{Binary: true, Payload: "\x00\x01"},
			{Payload: `{"page":"Observer pattern","user":"gof"}`},
		},
	}
}

func (s Script) Validate() error {
	if len(s.Frames) == 0 {
		return ErrEmptyScript
	}
	if s.Interval < 0 {
		return fmt.Errorf("negative interval %s", s.Interval)
	}
	return nil
}

// LoadScript reads a YAML script. An empty path yields DefaultScript.
func LoadScript(path string) (Script, error) {
	if path == "" {
		return DefaultScript(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read feed script: %w", err)
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse feed script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}
