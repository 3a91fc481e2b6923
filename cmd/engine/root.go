package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	DataDir    string
	ConfigPath string
	LogLevel   string
	LogJSON    bool
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "workorder-engine",
		Short:         "Email to work-order ingestion engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultDir := os.Getenv("WORKORDER_DATA_DIR")
	if defaultDir == "" {
		defaultDir = "."
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", defaultDir, "directory for the config document and database (env WORKORDER_DATA_DIR)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config document path (default <data-dir>/config.json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.LogJSON, "log-json", false, "log JSON lines instead of console output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

func (o *RootOptions) configPath() string {
	if o.ConfigPath != "" {
		return o.ConfigPath
	}
	return filepath.Join(o.DataDir, "config.json")
}

// resolve makes a relative path from the config document relative to the
// data directory.
func (o *RootOptions) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.DataDir, p)
}
