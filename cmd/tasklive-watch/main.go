package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/tasklive/internal/client"
	"github.com/gosuda/tasklive/internal/event"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		url        string
		resources  []string
		base       time.Duration
		backoffCap time.Duration
		keepAlive  time.Duration
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "tasklive-watch",
		Short: "Follow a tasklive server's push channel and mirror its collections",
		Long: `Connects to the push channel, fetches the requested collections and
applies every change event to a local cache, reconnecting with capped
exponential backoff whenever the connection drops.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tracked, err := parseResources(resources)
			if err != nil {
				return err
			}

			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return watch(ctx, url, client.Options{
				Base:      base,
				Cap:       backoffCap,
				KeepAlive: keepAlive,
				Resources: tracked,
			})
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "ws://localhost:8080/ws", "Push channel URL")
	cmd.Flags().StringSliceVarP(&resources, "resource", "r", []string{"projects"}, "Collections to fetch on connect (projects, tasks, comments)")
	cmd.Flags().DurationVar(&base, "base", time.Second, "Initial reconnect delay")
	cmd.Flags().DurationVar(&backoffCap, "cap", 30*time.Second, "Maximum reconnect delay")
	cmd.Flags().DurationVar(&keepAlive, "keepalive", client.DefaultKeepAlive, "Ping interval while connected")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every received message, not only snapshots")

	return cmd
}

func parseResources(names []string) ([]event.Resource, error) {
	out := make([]event.Resource, 0, len(names))
	for _, name := range names {
		r, ok := event.ParseResource(name)
		if !ok {
			return nil, fmt.Errorf("unknown resource %q", name)
		}
		out = append(out, r)
	}
	return out, nil
}

// messageLevel keeps full snapshots visible at info; every other message is
// only logged with --verbose.
func messageLevel(typ string) zerolog.Level {
	if _, kind, ok := event.ParseType(typ); ok && kind == event.KindData {
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}

func watch(ctx context.Context, url string, opts client.Options) error {
	cache := client.NewCache()

	opts.OnStatus = func(s client.Status) {
		log.Info().Str("status", string(s)).Msg("connection status")
	}
	opts.OnReconnect = func(attempt int, delay time.Duration) {
		log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnect scheduled")
	}

	handler := client.HandlerFunc(func(env event.Envelope) {
		cache.Handle(env)
		log.WithLevel(messageLevel(env.Type)).
			Str("type", env.Type).
			Int("projects", len(cache.Projects())).
			Int("tasks", len(cache.Tasks())).
			Int("comments", len(cache.Comments())).
			Msg("cache")
	})

	m := client.NewManager(url, handler, opts)
	m.Start()
	log.Info().Str("url", url).Msg("watching")

	<-ctx.Done()
	m.Stop()
	return nil
}
