package stream

// Kind tells what an Event carries.
type Kind uint8

const (
	KindNext Kind = iota
	KindError
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one notification delivered to a Sink.
type Event[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

func Next[T any](v T) Event[T] { return Event[T]{Kind: KindNext, Value: v} }

func Error[T any](err error) Event[T] { return Event[T]{Kind: KindError, Err: err} }

func End[T any]() Event[T] { return Event[T]{Kind: KindEnd} }

// IsEnd reports whether e terminates the stream.
func (e Event[T]) IsEnd() bool { return e.Kind == KindEnd }

// Sink receives events. It must not block for long: it runs on the producer.
type Sink[T any] func(Event[T])
