package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateProgress(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateStatusAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", c.API.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("api.base_url has no host: %q", c.API.BaseURL)
	}
	if c.API.RequestTimeout < 0 {
		return errors.New("api.request_timeout must be zero or positive")
	}
	return nil
}

func (c *Config) validateProgress() error {
	switch c.Progress.Mode {
	case ModeSimulated, ModePolling:
	default:
		return fmt.Errorf("progress.mode must be %q or %q, got %q", ModeSimulated, ModePolling, c.Progress.Mode)
	}
	p := c.Progress
	if p.ExtractDelayMS <= 0 || p.DetectDelayMS <= 0 || p.TrackDelayMS <= 0 {
		return errors.New("progress delays must be positive")
	}
	if p.ExtractDelayMS >= p.DetectDelayMS || p.DetectDelayMS >= p.TrackDelayMS {
		return errors.New("progress delays must increase: extract_delay_ms < detect_delay_ms < track_delay_ms")
	}
	if p.PollIntervalMS <= 0 {
		return errors.New("progress.poll_interval_ms must be positive")
	}
	if p.FPS <= 0 {
		return errors.New("progress.fps must be positive")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxSizeBytes() == 0 {
		return errors.New("upload.max_size must be greater than zero")
	}
	if c.Upload.EnforceConstraints && len(c.Upload.AllowedExtensions) == 0 {
		return errors.New("upload.allowed_extensions must list at least one extension when enforce_constraints is on")
	}
	if c.Upload.MaxFPS <= 0 {
		return errors.New("upload.max_fps must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if !strings.Contains(c.Notifications.NtfyTopic, "://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL (e.g. https://ntfy.sh/topic), got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateStatusAPI() error {
	if _, _, err := net.SplitHostPort(c.StatusAPI.Bind); err != nil {
		return fmt.Errorf("status_api.bind: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
