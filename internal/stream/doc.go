// Package stream provides a small push-based stream abstraction.
//
// A Stream delivers Events to subscribed Sinks as they are produced. An Event
// is either a value (Next), a non-terminal error (Error) or the terminal End.
//
// # Subject
//
// Subject is the producing side: whoever owns it pushes values with Next,
// reports problems with Error and finishes the stream with End. Delivery is
// synchronous on the pushing goroutine, in subscription order, so one event is
// fully handled by every subscriber (and every derived stream) before the next
// push returns.
//
// # Operators
//
// Filter, Map and Scan derive new streams without touching the source. A
// derived stream attaches to its upstream when it gets its first subscriber and
// detaches when the last one leaves. Error and End pass through unchanged.
package stream
