package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/wikistream/internal/adapters/http"
	"github.com/dkeye/wikistream/internal/adapters/ws"
	"github.com/dkeye/wikistream/internal/app"
	"github.com/dkeye/wikistream/internal/config"
	"github.com/dkeye/wikistream/internal/domain"
	"github.com/dkeye/wikistream/internal/metric"
	"github.com/dkeye/wikistream/internal/stream"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog early so flag and config errors are readable.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	fs := config.Flags("wikistream")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("bad flags")
	}
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg, os.Stdout)
	if cfg.File == "" {
		log.Debug().Msg("no config file, using defaults")
	} else {
		log.Debug().Str("file", cfg.File).Msg("loaded config")
	}

	policy, err := ws.ParseDecodePolicy(cfg.DecodeErrors)
	if err != nil {
		log.Fatal().Err(err).Msg("bad decode_errors")
	}

	m := metric.New()
	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: router.MetricsRouter(cfg, m),
		}
		g.Go(func() error {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// The pipeline is observing before the first frame can arrive.
	raw := stream.NewSubject[domain.Notification]()
	stop := app.NewPipeline(raw, m).Observe(log.Logger)

	log.Info().Str("address", cfg.Address).Msg("instantiating client")
	src := ws.Open(ctx, cfg.Address,
		ws.WithDecodePolicy(policy),
		ws.WithHandshakeTimeout(cfg.HandshakeTimeout),
		ws.WithMetrics(m),
		ws.WithSubscriber(raw.Emit),
	)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case <-src.Done():
	}
	stop()
	src.Dispose()
	src.Wait()

	cancel()
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("metrics server error")
	}
	log.Info().Str("state", src.State().String()).Msg("exited")
}
