package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GL1KK/redisfirstapp/internal/app"
	"github.com/GL1KK/redisfirstapp/internal/config"
	"github.com/GL1KK/redisfirstapp/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "randomdata",
		Short:         server.Title,
		Long:          "Serves random numbers and users, cached in Redis with a TTL.",
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().String("config", "", "optional YAML config file")
	cmd.Flags().String("host", "", "HTTP bind host (env HOST, default 0.0.0.0)")
	cmd.Flags().Int("port", 0, "HTTP bind port (env PORT, default 8000)")
	cmd.Flags().String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	log, flush, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer flush()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	return a.Run(cmd.Context())
}

// applyFlags lets explicitly set flags win over file and environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("host") {
		cfg.HTTP.Host, _ = fl.GetString("host")
	}
	if fl.Changed("port") {
		cfg.HTTP.Port, _ = fl.GetInt("port")
	}
	if fl.Changed("log-level") {
		cfg.Log.Level, _ = fl.GetString("log-level")
	}
	return cfg.Validate()
}
