package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"surgitrack/internal/analysisapi"
	"surgitrack/internal/config"
	"surgitrack/internal/controller"
	"surgitrack/internal/controller/sessionlock"
	"surgitrack/internal/notifications"
	"surgitrack/internal/progress"
	"surgitrack/internal/session"
	"surgitrack/internal/timeline"
)

type submitResult struct {
	Phase   string           `json:"phase"`
	Summary timeline.Summary `json:"summary"`
	Session session.State    `json:"session"`
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var noProgress bool
	var noHistory bool
	var mode string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "submit <video>",
		Short: "Upload a video and follow its analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(mode) != "" {
				parsed, err := progress.ParseMode(mode)
				if err != nil {
					return err
				}
				cfg.Progress.Mode = string(parsed)
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}

			lock, err := sessionlock.Acquire(cfg.SessionLockPath())
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if timeout > 0 {
				var cancelTimeout context.CancelFunc
				runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
				defer cancelTimeout()
			}

			logger, err := ctx.newLogger(nil)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			out := cmd.OutOrStdout()
			pal := paletteFor(out)
			var uploadProgress analysisapi.ProgressFunc
			if !jsonOutput && !noProgress && paletteFor(cmd.ErrOrStderr()).color {
				uploadProgress = newUploadBar(cmd.ErrOrStderr())
			}
			client, err := ctx.newClient(uploadProgress)
			if err != nil {
				return err
			}
			source, err := ctx.newSource(client, logger)
			if err != nil {
				return err
			}

			opts := controller.Options{
				Client:   client,
				Source:   source,
				Logger:   logger,
				Notifier: notifications.NewService(cfg),
				Limits:   cfg.Upload,
			}
			if !noHistory {
				store, err := ctx.openHistory(runCtx)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				if store != nil {
					defer store.Close()
					opts.Recorder = store
				}
			}

			ctl, err := controller.New(opts)
			if err != nil {
				return err
			}
			defer ctl.Close()

			if err := ctl.Select(path); err != nil {
				return err
			}
			selected := ctl.Snapshot().File

			var renderWG sync.WaitGroup
			if !jsonOutput {
				for _, line := range pal.header("SurgiTrack") {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintf(out, "Submitting %s (%s) to %s\n", selected.Name, humanize.Bytes(uint64(max(selected.Size, 0))), client.BaseURL())

				updates, stop := ctl.Subscribe()
				defer stop()
				renderer := newStepRenderer(pal)
				renderWG.Add(1)
				go func() {
					defer renderWG.Done()
					for state := range updates {
						for _, line := range renderer.update(state) {
							fmt.Fprintln(out, line)
						}
					}
				}()
			}

			submitErr := ctl.SubmitFile(runCtx)
			final := ctl.Snapshot()
			if submitErr == nil {
				final, err = ctl.Wait(runCtx)
				if err != nil {
					_ = ctl.Close()
					renderWG.Wait()
					return fmt.Errorf("waiting for analysis: %w", err)
				}
			}
			_ = ctl.Close()
			renderWG.Wait()

			if jsonOutput {
				if err := writeJSON(cmd, submitResult{
					Phase:   final.Phase(),
					Summary: final.Events.Summary(),
					Session: final,
				}); err != nil {
					return err
				}
			} else {
				renderOutcome(out, final, pal)
			}

			if final.Failed() {
				return errors.New(final.Error)
			}
			if submitErr != nil {
				return submitErr
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the final session as JSON")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the upload progress bar")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this session in the history ledger")
	cmd.Flags().StringVar(&mode, "mode", "", "Override [progress] mode (simulated or polling)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort if the analysis has not finished within this duration")
	return cmd
}

func renderOutcome(out io.Writer, state session.State, pal palette) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Session %s: %s\n", shortID(state.ID), phaseTitle(state.Phase()))
	if state.Failed() {
		fmt.Fprintln(out, pal.line("Error", badgeError, state.Error))
		return
	}
	if state.JobID != "" {
		fmt.Fprintf(out, "Job: %s\n", state.JobID)
	}
	if state.Events.Empty() {
		fmt.Fprintln(out, pal.line("Timeline", badgeWarn, "no tool events detected"))
		return
	}
	fmt.Fprintln(out, renderTimeline(state.Events, pal))
}

func newUploadBar(w io.Writer) analysisapi.ProgressFunc {
	return func(total int64) io.Writer {
		return progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Uploading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
