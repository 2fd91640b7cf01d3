package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"surgitrack/internal/controller"
	"surgitrack/internal/controller/sessionlock"
	"surgitrack/internal/logging"
	"surgitrack/internal/notifications"
	"surgitrack/internal/statusapi"
)

const serveLogCapacity = 1024

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session controller behind the local status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock, err := sessionlock.Acquire(cfg.SessionLockPath())
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			hub := logging.NewStreamHub(serveLogCapacity)
			logger, err := ctx.newLogger(hub)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			client, err := ctx.newClient(nil)
			if err != nil {
				return err
			}
			source, err := ctx.newSource(client, logger)
			if err != nil {
				return err
			}

			ctlOpts := controller.Options{
				Client:   client,
				Source:   source,
				Logger:   logger,
				Notifier: notifications.NewService(cfg),
				Limits:   cfg.Upload,
			}
			apiOpts := statusapi.Options{
				Bind:   cfg.StatusAPI.Bind,
				Logs:   hub,
				Logger: logger,
			}
			if trimmed := strings.TrimSpace(bind); trimmed != "" {
				apiOpts.Bind = trimmed
			}
			store, err := ctx.openHistory(runCtx)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			if store != nil {
				defer store.Close()
				ctlOpts.Recorder = store
				apiOpts.History = store
			}

			ctl, err := controller.New(ctlOpts)
			if err != nil {
				return err
			}
			defer ctl.Close()
			apiOpts.Session = ctl

			srv, err := statusapi.New(apiOpts)
			if err != nil {
				return err
			}
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status API listening on http://%s (analysis service %s)\n", srv.Addr(), client.BaseURL())

			<-runCtx.Done()
			srv.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override [status_api] bind address")
	return cmd
}
