package streamtest

import (
	"slices"
	"sync"

	"github.com/dkeye/wikistream/internal/stream"
)

// Recorder records stream events for tests and diagnostics.
//
// Recorder is safe for use from the producing goroutine while a test reads
// snapshots from another.
type Recorder[T any] struct {
	mu     sync.Mutex
	events []stream.Event[T]
}

func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Attach subscribes the recorder to s.
func Attach[T any](s stream.Stream[T]) (*Recorder[T], func()) {
	r := NewRecorder[T]()
	return r, s.Subscribe(r.Record)
}

// Record appends e. It has the shape of a stream.Sink.
func (r *Recorder[T]) Record(e stream.Event[T]) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a snapshot copy of everything recorded.
func (r *Recorder[T]) Events() []stream.Event[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Values returns recorded values in arrival order.
func (r *Recorder[T]) Values() []T {
	out := []T{}
	for _, e := range r.Events() {
		if e.Kind == stream.KindNext {
			out = append(out, e.Value)
		}
	}
	return out
}

// Errors returns recorded errors in arrival order.
func (r *Recorder[T]) Errors() []error {
	var out []error
	for _, e := range r.Events() {
		if e.Kind == stream.KindError {
			out = append(out, e.Err)
		}
	}
	return out
}

// Ended reports whether End was recorded.
func (r *Recorder[T]) Ended() bool {
	for _, e := range r.Events() {
		if e.IsEnd() {
			return true
		}
	}
	return false
}

// Reset clears the recorder.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
