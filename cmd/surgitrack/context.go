package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"surgitrack/internal/analysisapi"
	"surgitrack/internal/config"
	"surgitrack/internal/history"
	"surgitrack/internal/logging"
	"surgitrack/internal/progress"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// newLogger builds the configured logger, optionally publishing to hub.
func (c *commandContext) newLogger(hub *logging.StreamHub) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return logging.WithStream(logger, hub), nil
}

// newClient builds the analysis client. uploadProgress may be nil.
func (c *commandContext) newClient(uploadProgress analysisapi.ProgressFunc) (*analysisapi.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := []analysisapi.Option{analysisapi.WithTimeout(cfg.RequestTimeout())}
	if uploadProgress != nil {
		opts = append(opts, analysisapi.WithUploadProgress(uploadProgress))
	}
	return analysisapi.New(cfg.API.BaseURL, opts...)
}

// newSource selects the progress source configured in [progress].
func (c *commandContext) newSource(client progress.StatusFetcher, logger *slog.Logger) (progress.Source, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	mode, err := progress.ParseMode(cfg.Progress.Mode)
	if err != nil {
		return nil, err
	}
	if mode == progress.ModePolling {
		return progress.NewPolling(client, progress.PollingOptions{
			Interval: cfg.PollInterval(),
			FPS:      cfg.Progress.FPS,
			Logger:   logger,
		}), nil
	}
	extract, detect, track := cfg.StageDelays()
	return progress.NewSimulated(progress.SimulatedOptions{
		ExtractDelay: extract,
		DetectDelay:  detect,
		TrackDelay:   track,
		Logger:       logger,
	}), nil
}

// openHistory returns nil without error when the ledger is disabled.
func (c *commandContext) openHistory(ctx context.Context) (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(ctx, cfg)
	if errors.Is(err, history.ErrDisabled) {
		return nil, nil
	}
	return store, err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
