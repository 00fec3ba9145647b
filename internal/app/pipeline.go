package app

import (
	"github.com/rs/zerolog"

	"github.com/dkeye/wikistream/internal/domain"
	"github.com/dkeye/wikistream/internal/metric"
	"github.com/dkeye/wikistream/internal/stream"
)

// Pipeline derives the length and running-total streams from the raw
// notification stream. It never writes to Raw.
type Pipeline struct {
	Raw     stream.Stream[domain.Notification]
	Lengths stream.Stream[int]
	Totals  stream.Stream[int]

	metrics *metric.Metrics
}

// HasContent keeps notifications whose content is a non-empty string.
func HasContent(n domain.Notification) bool {
	c, ok := n.Content()
	return ok && c != ""
}

func ContentLength(n domain.Notification) int {
	return n.ContentLength()
}

func add(total, n int) int { return total + n }

func NewPipeline(raw stream.Stream[domain.Notification], m *metric.Metrics) *Pipeline {
	lengths := stream.Map(stream.Filter(raw, HasContent), ContentLength)
	return &Pipeline{
		Raw:     raw,
		Lengths: lengths,
		Totals:  stream.Scan(lengths, 0, add),
		metrics: m,
	}
}

// Observe logs every value of the three streams and returns one function that
// detaches all of them.
func (p *Pipeline) Observe(logger zerolog.Logger) func() {
	l := logger.With().Str("module", "app.pipeline").Logger()

	unsubs := []func(){
		p.Raw.Subscribe(func(e stream.Event[domain.Notification]) {
			switch e.Kind {
			case stream.KindNext:
				l.Info().Str("notification", e.Value.String()).Msg("original stream")
			case stream.KindEnd:
				l.Info().Msg("stream ended")
			}
		}),
		stream.OnValue(p.Lengths, func(n int) {
			p.metrics.LengthEmitted()
			l.Info().Int("length", n).Msg("message length")
		}),
		stream.OnValue(p.Totals, func(total int) {
			p.metrics.SetCumulativeLength(total)
			l.Info().Int("total", total).Msg("cumulative length")
		}),
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
