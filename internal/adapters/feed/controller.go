// Package feed serves a scripted stream of websocket frames. It stands in for
// the public update service when running locally.
package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dkeye/wikistream/internal/feed"
	"github.com/dkeye/wikistream/internal/metric"
)

const (
	writeWait = 5 * time.Second
	closeWait = time.Second
)

type Controller struct {
	script  feed.Script
	metrics *metric.Metrics
	log     zerolog.Logger
}

func NewController(script feed.Script, m *metric.Metrics, logger zerolog.Logger) *Controller {
	return &Controller{
		script:  script,
		metrics: m,
		log:     logger.With().Str("module", "adapters.feed").Logger(),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleFeed upgrades the request and replays the script until it is done,
// the client goes away or ctx is cancelled.
func (ctl *Controller) HandleFeed(ctx context.Context, c *gin.Context) {
	id := uuid.NewString()
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.log.Error().Err(err).Msg("ws upgrade")
		return
	}
	defer ws.Close()
	ctl.log.Info().Str("client", id).Str("remote", c.Request.RemoteAddr).Msg("client connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go ctl.readPump(cancel, id, ws)

	ctl.writePump(ctx, id, ws)
	ctl.log.Info().Str("client", id).Msg("client done")
}

// readPump only watches for the client closing; clients are not expected to
// send anything.
func (ctl *Controller) readPump(cancel context.CancelFunc, id string, ws *websocket.Conn) {
	defer cancel()
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			ctl.log.Debug().Err(err).Str("client", id).Msg("readPump closing")
			return
		}
	}
}

func (ctl *Controller) writePump(ctx context.Context, id string, ws *websocket.Conn) {
	frames := ctl.script.Frames
	for n := 0; len(frames) > 0 && (ctl.script.Loop || n < len(frames)); n++ {
		if !sleep(ctx, ctl.script.Interval) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		f := frames[n%len(frames)]
		mt := websocket.TextMessage
		if f.Binary {
			mt = websocket.BinaryMessage
		}
		if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			ctl.log.Error().Err(err).Str("client", id).Msg("writePump set deadline")
			return
		}
		if err := ws.WriteMessage(mt, []byte(f.Payload)); err != nil {
			ctl.log.Error().Err(err).Str("client", id).Msg("writePump write error")
			return
		}
		ctl.metrics.FeedFrameSent()
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed finished")
	if err := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		ctl.log.Error().Err(err).Str("client", id).Msg("writePump close")
		return
	}
	// give the client a moment to answer the close handshake
	select {
	case <-ctx.Done():
	case <-time.After(closeWait):
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
