// File: cuculi/config/cmd/configctl/commands.go
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuculi/config"
	"github.com/cuculi/config/settings"
)

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value and the source that supplied it",
		Example: `  configctl get db.host --env production
  configctl get database`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.newLoader()
			if err != nil {
				return err
			}
			defer l.Close()

			snap, err := l.Load(cmd.Context(), opts.env)
			if err != nil {
				return err
			}

			key := args[0]
			value, err := snap.Get(key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch v := value.(type) {
			case map[string]any, []any:
				data, err := yaml.Marshal(v)
				if err != nil {
					return err
				}
				fmt.Fprint(out, string(data))
			default:
				fmt.Fprintln(out, v)
			}

			if origin, ok := snap.Origin(key); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "# from %s\n", origin)
			}
			return nil
		},
	}
}

func newDumpCommand(opts *rootOptions) *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print or write the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.newLoader()
			if err != nil {
				return err
			}
			defer l.Close()

			snap, err := l.Load(cmd.Context(), opts.env)
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := snap.WriteFile(outPath, format); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
				return nil
			}
			return snap.Encode(cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", config.FormatYAML, "output format (yaml, toml, json)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file atomically instead of stdout")
	return cmd
}

func newEnvsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "envs",
		Short: "List environments with an override source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := config.Environments(opts.configDir(), nil)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration against the service settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.newLoader(config.WithValidator(settings.Validator()))
			if err != nil {
				return err
			}
			defer l.Close()

			snap, err := l.Load(cmd.Context(), opts.env)
			if err != nil {
				return err
			}

			warnings := snap.Warnings()
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
			}
			if strict && len(warnings) > 0 {
				return errors.New("configuration has warnings")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d keys from %s\n", len(snap.Keys()), describeSources(snap))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings, such as a missing environment override, as errors")
	return cmd
}

func newDebugCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Print every value with the source that supplied it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.newLoader()
			if err != nil {
				return err
			}
			defer l.Close()

			snap, err := l.Load(cmd.Context(), opts.env)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), snap.Debug())
			return nil
		},
	}
}

func describeSources(snap *config.Snapshot) string {
	var present []string
	for _, st := range snap.Sources() {
		if st.Present {
			present = append(present, st.Origin)
		}
	}
	return strings.Join(present, ", ")
}
