package metric

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.FrameReceived("text")
	m.FrameReceived("text")
	m.FrameReceived("binary")
	m.NotificationDecoded()
	m.DecodeFailed()
	m.LengthEmitted()
	m.SetCumulativeLength(42)
	m.FeedFrameSent()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("binary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lengths))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.cumulativeLength))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedFramesSent))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameReceived("text")
		m.NotificationDecoded()
		m.DecodeFailed()
		m.LengthEmitted()
		m.SetCumulativeLength(1)
		m.FeedFrameSent()
	})
	assert.Nil(t, m.Registry())

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.NotificationDecoded()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "wikistream_notifications_total 1")
}
