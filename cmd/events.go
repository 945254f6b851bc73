/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hirehub/apiserver/config"
	"github.com/hirehub/apiserver/internal/mq"
)

// eventsCmd groups commands that work with the domain event stream.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect domain events",
}

var watchChannels []string

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log every event published on the given channels",
	Long: `Subscribe to the configured broker and log each event until interrupted.

	hirehub events watch --channel job.applied
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := setupLogger(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ, logger)
		if err != nil {
			return fmt.Errorf("open message queue: %w", err)
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not set")
		}
		defer broker.Close()

		return watch(ctx, broker, watchChannels, logger)
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)

	eventsWatchCmd.Flags().StringSliceVar(&watchChannels, "channel",
		[]string{mq.ChannelJobApplied, mq.ChannelAccountDeleted}, "channels to subscribe to")
}

// watch blocks until ctx is done or a subscription fails.
func watch(ctx context.Context, broker *mq.MQ, channels []string, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		once sync.Once
		werr error
	)
	for _, channel := range channels {
		channel := channel
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := broker.Subscribe(ctx, channel, logEvent(channel, logger))
			if err != nil && !errors.Is(err, context.Canceled) {
				once.Do(func() {
					werr = fmt.Errorf("subscribe %s: %w", channel, err)
					cancel()
				})
			}
		}()
	}
	wg.Wait()
	return werr
}

func logEvent(channel string, logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, event mq.Event) error {
		logger.InfoContext(ctx, "event received",
			"channel", channel,
			"id", event.ID,
			"occurred_at", event.OccurredAt,
			"payload", string(event.Payload),
		)
		return nil
	}
}
