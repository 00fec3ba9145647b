package ws

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/wikistream/internal/domain"
	"github.com/dkeye/wikistream/internal/metric"
	"github.com/dkeye/wikistream/internal/stream"
)

// DecodePolicy controls what happens to frames that do not decode into a
// notification.
type DecodePolicy uint8

const (
	// DecodeDrop discards the frame; only a debug line is logged.
	DecodeDrop DecodePolicy = iota
	// DecodeReport logs a warning and delivers the error to subscribers as a
	// non-terminal error event.
	DecodeReport
)

func (p DecodePolicy) String() string {
	switch p {
	case DecodeDrop:
		return "drop"
	case DecodeReport:
		return "report"
	default:
		return "unknown"
	}
}

// ParseDecodePolicy accepts "drop" (or empty) and "report".
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return DecodeDrop, nil
	case "report":
		return DecodeReport, nil
	default:
		return DecodeDrop, fmt.Errorf("unknown decode policy %q", s)
	}
}

// Option configures a Source.
type Option func(*options)

type options struct {
	logger           zerolog.Logger
	dialer           Dialer
	decode           DecodePolicy
	metrics          *metric.Metrics
	handshakeTimeout time.Duration
	subscribers      []stream.Sink[domain.Notification]
}

func defaultOptions() options {
	return options{
		logger: log.Logger,
		decode: DecodeDrop,
	}
}

// WithLogger sets the logger; the global zerolog logger is used otherwise.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDialer replaces the gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithDecodePolicy sets the policy for undecodable frames.
func WithDecodePolicy(p DecodePolicy) Option {
	return func(o *options) {
		o.decode = p
	}
}

// WithMetrics attaches frame counters.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHandshakeTimeout bounds the websocket handshake of the default dialer.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.handshakeTimeout = d
	}
}

// WithSubscriber attaches sink before the connection attempt starts, so it
// sees every frame, including one sent right after the handshake.
func WithSubscriber(sink stream.Sink[domain.Notification]) Option {
	return func(o *options) {
		if sink != nil {
			o.subscribers = append(o.subscribers, sink)
		}
	}
}
