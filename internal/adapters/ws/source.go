// Package ws turns one outbound websocket connection into a stream of
// notifications.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/wikistream/internal/domain"
	"github.com/dkeye/wikistream/internal/stream"
)

var ErrNonText = errors.New("non-text frame")

const closeWriteWait = time.Second

// Source owns a single websocket connection and publishes every decoded text
// frame as a domain.Notification. It implements stream.Stream.
//
// All subscriber callbacks run on the Source's reader goroutine, one frame at
// a time.
type Source struct {
	id      string
	address string
	opts    options
	log     zerolog.Logger
	out     *stream.Subject[domain.Notification]

	ctx       context.Context
	cancel    context.CancelFunc
	stopWatch func() bool

	state    atomic.Int32
	disposed atomic.Bool

	mu   sync.Mutex
	conn WSConn

	wg          conc.WaitGroup
	done        chan struct{}
	disposeOnce sync.Once
}

// Open starts connecting to address right away and returns without waiting.
// A failed attempt is logged and leaves the stream silent; it is never
// retried. Cancelling ctx has the same effect as Dispose.
func Open(ctx context.Context, address string, opts ...Option) *Source {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.dialer == nil {
		o.dialer = NewDialer(o.handshakeTimeout)
	}

	id := uuid.NewString()
	s := &Source{
		id:      id,
		address: address,
		opts:    o,
		log:     o.logger.With().Str("module", "adapters.ws").Str("conn", id).Logger(),
		out:     stream.NewSubject[domain.Notification](),
		done:    make(chan struct{}),
	}
	for _, sink := range o.subscribers {
		s.out.Subscribe(sink)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.stopWatch = context.AfterFunc(ctx, s.Dispose)

	s.setState(StateConnecting)
	s.log.Debug().Str("address", address).Msg("connecting")
	s.wg.Go(s.run)
	return s
}

// ID identifies this connection in log lines.
func (s *Source) ID() string { return s.id }

func (s *Source) Address() string { return s.address }

func (s *Source) State() State { return State(s.state.Load()) }

// Done is closed once the reader goroutine has exited: the attempt failed,
// the connection closed, or the source was disposed.
func (s *Source) Done() <-chan struct{} { return s.done }

// Wait blocks until Done is closed. It must not be called from a subscriber.
func (s *Source) Wait() {
	s.wg.Wait()
}

func (s *Source) Subscribe(sink stream.Sink[domain.Notification]) func() {
	return s.out.Subscribe(sink)
}

// Dispose stops delivery and closes the underlying connection. No event is
// dispatched after Dispose returns, except one whose dispatch was already under
// way. Dispose is idempotent and may be called from a subscriber.
func (s *Source) Dispose() {
	s.disposeOnce.Do(func() {
		s.disposed.Store(true)
		s.cancel()

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
			_ = conn.Close()
		}
		s.setState(StateClosed)
		s.log.Info().Msg("disposed")
	})
}

// setState moves to st unless a terminal state has already been reached.
func (s *Source) setState(st State) bool {
	for {
		cur := s.state.Load()
		if State(cur).Terminal() {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(st)) {
			return true
		}
	}
}

func (s *Source) run() {
	defer close(s.done)
	defer s.cancel()
	defer s.stopWatch()

	conn, err := s.opts.dialer.Dial(s.ctx, s.address)
	if err != nil {
		if s.disposed.Load() {
			return
		}
		s.setState(StateFailed)
		s.log.Error().Err(err).Str("address", s.address).Msg("connection failed")
		return
	}

	s.mu.Lock()
	if s.disposed.Load() {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.setState(StateConnected)
	s.mu.Unlock()

	s.log.Info().Str("address", s.address).Msg("connected")

	s.readLoop(conn)
}

func (s *Source) readLoop(conn WSConn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			s.finish(conn, err)
			return
		}
		if s.disposed.Load() {
			return
		}
		s.handleFrame(mt, data)
	}
}

func (s *Source) handleFrame(mt int, data []byte) {
	if mt != websocket.TextMessage {
		s.opts.metrics.FrameReceived("binary")
		s.reject(fmt.Errorf("%w: %w", domain.ErrDecode, ErrNonText), len(data))
		return
	}
	s.opts.metrics.FrameReceived("text")

	n, err := domain.DecodeNotification(data)
	if err != nil {
		s.reject(err, len(data))
		return
	}
	s.opts.metrics.NotificationDecoded()
	s.out.Next(n)
}

func (s *Source) reject(err error, size int) {
	s.opts.metrics.DecodeFailed()
	if s.opts.decode == DecodeReport {
		s.log.Warn().Err(err).Int("size", size).Msg("frame dropped")
		s.out.Error(err)
		return
	}
	s.log.Debug().Err(err).Int("size", size).Msg("frame dropped")
}

// finish handles the read error that ends every gorilla connection.
func (s *Source) finish(conn WSConn, err error) {
	if s.disposed.Load() {
		return
	}
	s.setState(StateClosed)
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		s.log.Error().Err(err).Msg("connection error")
	}
	_ = conn.Close()
	s.log.Info().Msg("connection closed")
	s.out.End()
}
