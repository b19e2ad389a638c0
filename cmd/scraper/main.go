package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"duapune-scraper/internal/app"
	"duapune-scraper/internal/config"
	"duapune-scraper/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "duapune-scraper",
		Short:        "Crawl duapune.com job listings and export them as structured records",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithFlags(cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	c, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Error("failed to init container", zap.Error(err))
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	res, err := c.Pipeline().Run(ctx)
	if res != nil {
		renderReport(os.Stdout, res)
	}
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return err
	}
	return nil
}
