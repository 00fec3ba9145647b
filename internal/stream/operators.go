package stream

import "sync"

// derived is a Stream fed from an upstream only while it has subscribers.
type derived[T any] struct {
	out    *Subject[T]
	attach func(emit Sink[T]) (detach func())

	mu     sync.Mutex
	refs   int
	detach func()
}

func newDerived[T any](attach func(emit Sink[T]) func()) *derived[T] {
	return &derived[T]{out: NewSubject[T](), attach: attach}
}

func (d *derived[T]) Subscribe(sink Sink[T]) func() {
	if sink == nil {
		return func() {}
	}
	unsub := d.out.Subscribe(sink)
	if d.out.Ended() {
		// sink already has End; an ended stream never attaches again
		return unsub
	}

	d.mu.Lock()
	d.refs++
	first := d.refs == 1
	d.mu.Unlock()
	if first {
		detach := d.attach(d.out.Emit)
		d.mu.Lock()
		d.detach = detach
		d.mu.Unlock()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			d.mu.Lock()
			d.refs--
			var detach func()
			if d.refs == 0 {
				detach, d.detach = d.detach, nil
			}
			d.mu.Unlock()
			if detach != nil {
				detach()
			}
		})
	}
}

// Filter passes through only the values keep accepts.
func Filter[T any](src Stream[T], keep func(T) bool) Stream[T] {
	return newDerived(func(emit Sink[T]) func() {
		return src.Subscribe(func(e Event[T]) {
			if e.Kind == KindNext && !keep(e.Value) {
				return
			}
			emit(e)
		})
	})
}

// Map transforms every value with fn.
func Map[T, R any](src Stream[T], fn func(T) R) Stream[R] {
	return newDerived(func(emit Sink[R]) func() {
		return src.Subscribe(func(e Event[T]) {
			switch e.Kind {
			case KindNext:
				emit(Next(fn(e.Value)))
			case KindError:
				emit(Error[R](e.Err))
			case KindEnd:
				emit(End[R]())
			}
		})
	})
}

// Scan folds values into a running result, emitting each new result.
// The seed is not emitted. There is one accumulator per Scan call; it is kept
// across detach and re-attach.
func Scan[T, A any](src Stream[T], seed A, fold func(acc A, v T) A) Stream[A] {
	acc := seed
	return newDerived(func(emit Sink[A]) func() {
		return src.Subscribe(func(e Event[T]) {
			switch e.Kind {
			case KindNext:
				acc = fold(acc, e.Value)
				emit(Next(acc))
			case KindError:
				emit(Error[A](e.Err))
			case KindEnd:
				emit(End[A]())
			}
		})
	})
}
