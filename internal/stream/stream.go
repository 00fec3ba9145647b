package stream

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Stream is anything that can be subscribed to.
type Stream[T any] interface {
	// Subscribe registers sink and returns a function that removes it.
	// The returned function is safe to call more than once.
	Subscribe(sink Sink[T]) (unsubscribe func())
}

type subscription[T any] struct {
	sink   Sink[T]
	active atomic.Bool
}

// Subject is a Stream that values are pushed into.
//
// Next, Error and End must not be called concurrently; subscribing and
// unsubscribing may happen from any goroutine, including from inside a Sink.
type Subject[T any] struct {
	mu    sync.Mutex
	subs  []*subscription[T]
	ended bool
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

func (s *Subject[T]) Subscribe(sink Sink[T]) func() {
	if sink == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		sink(End[T]())
		return func() {}
	}
	sub := &subscription[T]{sink: sink}
	sub.active.Store(true)
	// copy on write so a dispatch in progress keeps its own snapshot
	s.subs = append(slices.Clone(s.subs), sub)
	s.mu.Unlock()

	return func() { s.remove(sub) }
}

func (s *Subject[T]) remove(sub *subscription[T]) {
	if !sub.active.Swap(false) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = slices.DeleteFunc(slices.Clone(s.subs), func(x *subscription[T]) bool { return x == sub })
}

// Len returns the number of current subscribers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Ended reports whether End has been pushed.
func (s *Subject[T]) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Subject[T]) Next(v T) { s.Emit(Next(v)) }

func (s *Subject[T]) Error(err error) { s.Emit(Error[T](err)) }

func (s *Subject[T]) End() { s.Emit(End[T]()) }

// Emit delivers e to every active subscriber. Anything pushed after End is
// ignored.
func (s *Subject[T]) Emit(e Event[T]) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	subs := s.subs
	if e.IsEnd() {
		s.ended = true
		s.subs = nil
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.sink(e)
		}
	}
}

// OnValue subscribes fn to values only.
func OnValue[T any](s Stream[T], fn func(T)) func() {
	return s.Subscribe(func(e Event[T]) {
		if e.Kind == KindNext {
			fn(e.Value)
		}
	})
}

// OnError subscribes fn to errors only.
func OnError[T any](s Stream[T], fn func(error)) func() {
	return s.Subscribe(func(e Event[T]) {
		if e.Kind == KindError {
			fn(e.Err)
		}
	})
}

// OnEnd subscribes fn to the end of the stream.
func OnEnd[T any](s Stream[T], fn func()) func() {
	return s.Subscribe(func(e Event[T]) {
		if e.IsEnd() {
			fn()
		}
	})
}
