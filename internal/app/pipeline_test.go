package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/wikistream/internal/domain"
	"github.com/dkeye/wikistream/internal/metric"
	"github.com/dkeye/wikistream/internal/stream"
	"github.com/dkeye/wikistream/internal/stream/streamtest"
)

func decode(t *testing.T, frame string) domain.Notification {
	t.Helper()
	n, err := domain.DecodeNotification([]byte(frame))
	require.NoError(t, err)
	return n
}

func TestPipeline_LengthsAndTotals(t *testing.T) {
	raw := stream.NewSubject[domain.Notification]()
	p := NewPipeline(raw, nil)
	lengths, _ := streamtest.Attach(p.Lengths)
	totals, _ := streamtest.Attach(p.Totals)

	for _, f := range []string{`{"content":"hello"}`, `{"content":""}`, `{"content":"hi"}`} {
		raw.Next(decode(t, f))
	}

	assert.Equal(t, []int{5, 2}, lengths.Values())
	assert.Equal(t, []int{5, 7}, totals.Values())
}

func TestPipeline_SkipsMissingAndNonStringContent(t *testing.T) {
	raw := stream.NewSubject[domain.Notification]()
	p := NewPipeline(raw, nil)
	rawRec, _ := streamtest.Attach[domain.Notification](raw)
	lengths, _ := streamtest.Attach(p.Lengths)

	frames := []string{
		`{"title":"no content"}`,
		`{"content":null}`,
		`{"content":42}`,
		`{"content":"héllo"}`,
		`{"content":"日本"}`,
		`{"content":"😀a"}`,
	}
	for _, f := range frames {
		raw.Next(decode(t, f))
	}

	assert.Len(t, rawRec.Values(), len(frames))
	assert.Equal(t, []int{5, 2, 3}, lengths.Values())
	assert.LessOrEqual(t, len(lengths.Values()), len(rawRec.Values()))
}

func TestPipeline_TotalIsPrefixSumOfLengths(t *testing.T) {
	raw := stream.NewSubject[domain.Notification]()
	p := NewPipeline(raw, nil)
	lengths, _ := streamtest.Attach(p.Lengths)
	totals, _ := streamtest.Attach(p.Totals)

	for _, c := range []string{"a", "", "bcd", "efgh", "", "", "ij", strings.Repeat("x", 100)} {
		raw.Next(domain.Notification{domain.ContentField: c})
	}

	ls, ts := lengths.Values(), totals.Values()
	require.Len(t, ts, len(ls))
	sum := 0
	for k := range ls {
		sum += ls[k]
		assert.Equal(t, sum, ts[k])
		if k > 0 {
			assert.GreaterOrEqual(t, ts[k], ts[k-1])
		}
	}
	assert.Equal(t, 110, ts[len(ts)-1])
}

func TestPipeline_EndPropagates(t *testing.T) {
	raw := stream.NewSubject[domain.Notification]()
	p := NewPipeline(raw, nil)
	lengths, _ := streamtest.Attach(p.Lengths)
	totals, _ := streamtest.Attach(p.Totals)

	raw.Next(domain.Notification{domain.ContentField: "abc"})
	raw.End()

	assert.True(t, lengths.Ended())
	assert.True(t, totals.Ended())
	assert.Equal(t, []int{3}, totals.Values())
}

func TestPipeline_ObserveLogsEveryStream(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	m := metric.New()

	raw := stream.NewSubject[domain.Notification]()
	p := NewPipeline(raw, m)
	stop := p.Observe(logger)

	raw.Next(decode(t, `{"content":"hello"}`))
	raw.Next(decode(t, `{"content":""}`))
	raw.Next(decode(t, `{"content":"hi"}`))

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, `"message":"original stream"`))
	assert.Contains(t, out, `"notification":"{\"content\":\"hello\"}"`)
	assert.Contains(t, out, `"length":5`)
	assert.Contains(t, out, `"length":2`)
	assert.Contains(t, out, `"total":5`)
	assert.Contains(t, out, `"total":7`)
	assert.Equal(t, 2, strings.Count(out, `"message":"message length"`))
	assert.Equal(t, 2, strings.Count(out, `"message":"cumulative length"`))

	stop()
	buf.Reset()
	raw.Next(decode(t, `{"content":"after"}`))
	assert.Empty(t, buf.String())
	assert.Equal(t, 0, raw.Len())
}
