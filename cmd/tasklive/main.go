package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tasklive/internal/config"
	"github.com/gosuda/tasklive/internal/realtime"
	"github.com/gosuda/tasklive/internal/server"
	"github.com/gosuda/tasklive/internal/store/postgres"
	redisstore "github.com/gosuda/tasklive/internal/store/redis"
	"github.com/gosuda/tasklive/internal/tracker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	if cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Migrate {
		if err := postgres.Migrate(ctx, store.Pool()); err != nil {
			return err
		}
	}

	registry := realtime.NewRegistry(cfg.Realtime.SendTimeout)

	// Endpoint-originated events go through the relay when Redis is
	// configured so peer instances see them too.
	var out realtime.Broadcaster = registry
	if cfg.Redis.Addr != "" {
		topic, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, realtime.RelayChannel)
		if err != nil {
			return err
		}
		defer topic.Close()

		relay := realtime.NewRelay(registry, topic)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("relay stopped")
			}
		}()
		out = relay
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis relay enabled")
	}

	svc := tracker.NewService(store, out)

	// Database notifications are already seen by every instance, so they
	// only fan out locally.
	listener := realtime.NewListener(
		postgres.NewNotifier(store.Pool()),
		registry,
		cfg.Realtime.ListenerRetryBase,
		cfg.Realtime.ListenerRetryCap,
	)
	go listener.Run(ctx)

	srv := server.New(ctx, cfg, svc, registry)

	go func() {
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
}
