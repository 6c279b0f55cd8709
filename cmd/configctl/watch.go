// File: cuculi/config/cmd/configctl/watch.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cuculi/config"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		debounce time.Duration
		notify   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the configuration on every source change until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			l, err := opts.newLoader()
			if err != nil {
				return err
			}
			defer l.Close()

			snap, err := l.Load(ctx, opts.env)
			if err != nil {
				return err
			}

			events, cancel, err := l.Subscribe()
			if err != nil {
				return err
			}
			defer cancel()

			watchOpts := config.DefaultWatchOptions()
			watchOpts.PollInterval = interval
			watchOpts.Debounce = debounce
			if notify {
				watchOpts.Mode = config.ModeNotify
			}
			if err := l.Watch(ctx, watchOpts); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "watching %s (env %q, revision %d), press Ctrl+C to stop\n",
				opts.configDir(), snap.Environment(), snap.Revision())

			return watchLoop(ctx, l, events, opts.logger, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", config.DefaultPollInterval, "poll interval")
	cmd.Flags().DurationVar(&debounce, "debounce", config.DefaultDebounce, "wait this long after the last change before reloading")
	cmd.Flags().BoolVar(&notify, "notify", false, "use filesystem notifications, polling as a fallback")
	return cmd
}

// watchLoop reports events until ctx is done or the subscription closes.
func watchLoop(ctx context.Context, l *config.Loader, events <-chan config.Event, logger *zap.Logger, emit func(string)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			emit("stopped")
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case config.EventChanged:
				value, err := l.Get(ev.Path)
				if err != nil {
					emit(fmt.Sprintf("r%d %s removed", ev.Revision, ev.Path))
					continue
				}
				emit(fmt.Sprintf("r%d %s = %v", ev.Revision, ev.Path, value))
			case config.EventReloadFailed:
				logger.Warn("reload rejected, keeping previous configuration",
					zap.Uint64("revision", ev.Revision), zap.Error(ev.Err))
			case config.EventSourceRemoved:
				logger.Warn("base source removed", zap.String("path", ev.Path))
			}
		}
	}
}
