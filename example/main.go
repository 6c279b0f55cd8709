// File: cuculi/config/example/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cuculi/config"
	"github.com/cuculi/config/internal/logging"
	"github.com/cuculi/config/settings"
)

// Run from a directory holding config/settings.yaml, optionally with
// config/environments/<APP_ENV>.yaml next to it. Edit either file while the
// example runs to see the reload.
func main() {
	logger, err := logging.New(logging.DefaultConfig())
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader, err := config.NewBuilder().
		WithDiscovery("nudge").
		WithEnvironment(os.Getenv("APP_ENV")).
		WithLogger(logger).
		WithValidator(settings.Validator()).
		BuildContext(ctx)
	if err != nil {
		if errors.Is(err, config.ErrSourceNotFound) {
			logger.Fatal("no configuration found, create config/settings.yaml", zap.Error(err))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	defer loader.Close()

	current, err := settings.Load(loader)
	if err != nil {
		logger.Fatal("invalid settings", zap.Error(err))
	}
	logSettings(logger, current)

	changes, cancel, err := loader.Subscribe()
	if err != nil {
		logger.Fatal("subscribe failed", zap.Error(err))
	}
	defer cancel()

	watchOpts := config.DefaultWatchOptions()
	watchOpts.Mode = config.ModeNotify
	if err := loader.Watch(ctx, watchOpts); err != nil {
		logger.Fatal("watch failed", zap.Error(err))
	}

	logger.Info("watching for configuration changes, press Ctrl+C to exit")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return

		case ev, ok := <-changes:
			if !ok {
				return
			}
			handleChange(logger, loader, ev)

		case <-ticker.C:
			port, _ := loader.Int64("server.port")
			logger.Info("server still running", zap.Int64("port", port), zap.Uint64("revision", loader.Snapshot().Revision()))
		}
	}
}

func handleChange(logger *zap.Logger, loader *config.Loader, ev config.Event) {
	switch ev.Kind {
	case config.EventSourceRemoved:
		logger.Warn("base configuration was deleted, keeping the last good values", zap.String("path", ev.Path))
	case config.EventReloadFailed:
		logger.Warn("reload rejected", zap.Error(ev.Err))
	case config.EventChanged:
		value, _ := loader.Get(ev.Path)
		logger.Info("configuration changed", zap.String("path", ev.Path), zap.Any("value", value))

		switch ev.Path {
		case "server.port":
			logger.Info("port changed, server restart required")
		case "database.uri":
			logger.Info("database URI changed, reconnection required")
		case "app.log_level":
			level, _ := loader.String("app.log_level")
			logger.Info("log level changed", zap.Stringer("level", logging.ParseLevel(level)))
		}
	}
}

func logSettings(logger *zap.Logger, s *settings.Settings) {
	logger.Info("current configuration",
		zap.String("app", s.App.Name),
		zap.String("environment", s.App.Environment),
		zap.String("listen", s.Server.Address()),
		zap.String("database", s.Database.Name),
		zap.String("model", s.OpenAI.Model),
		zap.Int("top_k", s.Scoring.TopK))
}

// Example config/settings.yaml:
/*
app:
  name: nudge
  log_level: info
server:
  host: localhost
  port: 8080
  read_timeout: 15s
database:
  uri: ${MONGODB_URI}
  name: cuculi
openai:
  api_key: ${OPENAI_API_KEY}
  model: gpt-4o-mini
scoring:
  similarity_threshold: 0.75
  top_k: 10
*/
