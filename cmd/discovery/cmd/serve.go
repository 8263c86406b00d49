package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/discovery/internal/metrics"
	chiTransport "github.com/kailas-cloud/discovery/internal/transport/chi"
	natsTransport "github.com/kailas-cloud/discovery/internal/transport/nats"
	"github.com/kailas-cloud/discovery/internal/transport/providers"
	healthuc "github.com/kailas-cloud/discovery/internal/usecase/health"
	"github.com/kailas-cloud/discovery/internal/usecase/projection"
	searchuc "github.com/kailas-cloud/discovery/internal/usecase/search"
	"github.com/kailas-cloud/discovery/internal/version"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API and consume provider lifecycle events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger
	logger.Info("Starting discovery server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("events_enabled", cfg.Events.Enabled),
	)

	metrics.RegisterHTTPMetrics()

	// Event consumer: projector fed by JetStream
	var consumer *natsTransport.Consumer
	var events healthuc.EventsChecker
	if cfg.Events.Enabled {
		snapshots, err := snapshotSource(a)
		if err != nil {
			return err
		}
		projector := projection.New(a.index, snapshots, a.invalidator(), logger.Named("projector"))

		consumer, err = natsTransport.NewConsumer(natsTransport.Config{
			URL:          cfg.Events.URL,
			Stream:       cfg.Events.Stream,
			Subjects:     cfg.Events.Subjects,
			Durable:      cfg.Events.Durable,
			MaxDeliver:   cfg.Events.MaxDeliver,
			AckWait:      time.Duration(cfg.Events.AckWaitSec) * time.Second,
			NakDelay:     time.Duration(cfg.Events.NakDelaySec) * time.Second,
			CreateStream: cfg.Events.CreateStream,
		}, projector, logger.Named("events"))
		if err != nil {
			return err
		}
		defer consumer.Close()
		events = consumer
	}

	searchSvc := searchuc.New(a.index, a.searchCache(), a.cacheTTL())
	healthSvc := healthuc.New(a.pinger, a.index, events)
	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	if consumer != nil {
		g.Go(func() error { return consumer.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// snapshotSource picks the providers module client when configured, otherwise
// the snapshot carried by each event.
func snapshotSource(a *app) (projection.SnapshotSource, error) {
	if a.cfg.Providers.BaseURL == "" {
		a.logger.Info("Using event-carried provider snapshots")
		return projection.EventSnapshots{}, nil
	}
	c, err := providers.NewClient(providers.Config{
		BaseURL: a.cfg.Providers.BaseURL,
		APIKey:  a.cfg.Providers.APIKey,
		Timeout: time.Duration(a.cfg.Providers.TimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("Fetching provider snapshots", zap.String("base_url", a.cfg.Providers.BaseURL))
	return c, nil
}
