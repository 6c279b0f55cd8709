// File: cuculi/config/cmd/configctl/root.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cuculi/config"
	"github.com/cuculi/config/internal/logging"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	dir       string
	name      string
	env       string
	logLevel  string
	logFormat string
	logger    *zap.Logger
}

func newRootCommand(version, commit, date string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "configctl",
		Short: "Inspect and watch layered service configuration",
		Long: `configctl loads a configuration directory the same way the services do:
the base source, the environment override from environments/<env>, and
${VAR} references resolved from the process environment or .env.

It prints single values or the whole effective configuration, validates it
against the service settings, and can watch the sources for changes.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Config{
				Level:  opts.logLevel,
				Format: opts.logFormat,
				Output: "stderr",
			})
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.dir, "dir", "d", "", "configuration directory (default: discovered, then ./config)")
	flags.StringVarP(&opts.name, "name", "n", config.DefaultName, "base source name without extension")
	flags.StringVarP(&opts.env, "env", "e", "", "environment override to apply")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(
		newGetCommand(opts),
		newDumpCommand(opts),
		newEnvsCommand(opts),
		newCheckCommand(opts),
		newDebugCommand(opts),
		newWatchCommand(opts),
	)

	return rootCmd
}

func (o *rootOptions) configDir() string {
	return config.DiscoverDir("configctl", o.dir)
}

// newLoader creates a loader from the persistent flags. extra options are
// applied last.
func (o *rootOptions) newLoader(extra ...config.Option) (*config.Loader, error) {
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []config.Option{
		config.WithDir(o.configDir()),
		config.WithName(o.name),
		config.WithLogger(logger),
	}
	return config.New(append(opts, extra...)...)
}
