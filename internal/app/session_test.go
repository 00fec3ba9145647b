package app_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/wikistream/internal/adapters/feed"
	router "github.com/dkeye/wikistream/internal/adapters/http"
	"github.com/dkeye/wikistream/internal/adapters/ws"
	"github.com/dkeye/wikistream/internal/app"
	"github.com/dkeye/wikistream/internal/config"
	feedscript "github.com/dkeye/wikistream/internal/feed"
	"github.com/dkeye/wikistream/internal/metric"
	"github.com/dkeye/wikistream/internal/stream/streamtest"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// The feed waits one interval before each frame, so subscribers are attached
// before anything arrives.
func startFeed(t *testing.T, frames ...feedscript.Frame) string {
	t.Helper()
	script := feedscript.Script{Interval: 20 * time.Millisecond, Frames: frames}
	m := metric.New()
	ctl := feed.NewController(script, m, zerolog.Nop())
	server := httptest.NewServer(router.SetupRouter(context.Background(), &config.Config{Mode: "release"}, ctl, m))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/feed"
}

func TestSession_EndToEnd(t *testing.T) {
	url := startFeed(t,
		feedscript.Frame{Payload: `{"content":"hello"}`},
		feedscript.Frame{Payload: `{"content":""}`},
		feedscript.Frame{Binary: true, Payload: `{"content":"ignored"}`},
		feedscript.Frame{Payload: `{"content":"hi"}`},
	)

	logs := &syncBuffer{}
	logger := zerolog.New(logs)
	m := metric.New()

	src := ws.Open(context.Background(), url, ws.WithLogger(logger), ws.WithMetrics(m))
	p := app.NewPipeline(src, m)
	raw, _ := streamtest.Attach(p.Raw)
	lengths, _ := streamtest.Attach(p.Lengths)
	totals, _ := streamtest.Attach(p.Totals)
	stop := p.Observe(logger)
	defer stop()

	select {
	case <-src.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for feed to finish")
	}

	assert.Len(t, raw.Values(), 3)
	assert.Equal(t, []int{5, 2}, lengths.Values())
	assert.Equal(t, []int{5, 7}, totals.Values())
	assert.True(t, totals.Ended())

	out := logs.String()
	assert.Contains(t, out, `"message":"connected"`)
	assert.Contains(t, out, `"message":"connection closed"`)
	assert.Contains(t, out, `"total":7`)
	assert.NotContains(t, out, `"level":"error"`)
}

func TestSession_DisposeMidStream(t *testing.T) {
	frames := make([]feedscript.Frame, 0, 20)
	for i := 0; i < 20; i++ {
		frames = append(frames, feedscript.Frame{Payload: `{"content":"abc"}`})
	}
	url := startFeed(t, frames...)

	src := ws.Open(context.Background(), url, ws.WithLogger(zerolog.Nop()))
	p := app.NewPipeline(src, nil)
	totals, _ := streamtest.Attach(p.Totals)

	require.Eventually(t, func() bool { return len(totals.Values()) >= 2 }, 5*time.Second, 5*time.Millisecond)
	src.Dispose()
	seen := len(totals.Values())
	src.Wait()

	time.Sleep(100 * time.Millisecond)
	got := totals.Values()
	assert.LessOrEqual(t, len(got), seen+1)
	assert.Less(t, len(got), len(frames))
	assert.False(t, totals.Ended())
	assert.Equal(t, ws.StateClosed, src.State())
}
