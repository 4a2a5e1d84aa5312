package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"ddrelay/internal/scheduler"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the forum and post new diaries on every interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := ctx.cfg, ctx.logger

			app, err := bootstrap(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			logger.Info("starting ddrelay",
				"front_page", cfg.Forum.FrontPageURL,
				"interval", cfg.Sync.Interval,
				"subreddits", len(cfg.Subreddits),
				"storage", cfg.Storage.Driver,
			)

			sched := scheduler.NewScheduler(app.pipeline, cfg.Sync.Interval, cfg.Sync.TickTimeout, logger)
			if err := sched.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}

func newOnceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single detection and posting tick",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd.Context(), ctx.cfg, ctx.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			_, err = app.pipeline.Run(cmd.Context())
			return err
		},
	}
}
