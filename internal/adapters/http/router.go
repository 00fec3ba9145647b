package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/wikistream/internal/adapters/feed"
	"github.com/dkeye/wikistream/internal/config"
	"github.com/dkeye/wikistream/internal/metric"
)

func newEngine(cfg *config.Config, m *metric.Metrics) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))
	return r
}

// SetupRouter wires the feed server routes.
// - GET /ws/feed replays the feed script over a websocket
// - GET /healthz, GET /metrics
func SetupRouter(ctx context.Context, cfg *config.Config, ctl *feed.Controller, m *metric.Metrics) *gin.Engine {
	r := newEngine(cfg, m)

	r.GET("/ws/feed", func(c *gin.Context) {
		ctl.HandleFeed(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

// MetricsRouter exposes only health and metrics, for the client process.
func MetricsRouter(cfg *config.Config, m *metric.Metrics) *gin.Engine {
	return newEngine(cfg, m)
}
