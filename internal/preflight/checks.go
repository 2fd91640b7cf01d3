package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"surgitrack/internal/analysisapi"
	"surgitrack/internal/config"
)

const serviceCheckTimeout = 10 * time.Second

// CheckAnalysisService requests the remote service root once, without
// retries, and reports the round-trip latency.
func CheckAnalysisService(ctx context.Context, baseURL string, pinger Pinger) Result {
	const name = "Analysis service"
	if pinger == nil {
		return Result{Name: name, Detail: "client unavailable"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	root, latency, err := pinger.Ping(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", baseURL, summarizeError(err))}
	}
	detail := fmt.Sprintf("%s reachable in %s", baseURL, latency.Round(time.Millisecond))
	if msg := strings.TrimSpace(root.Message); msg != "" {
		detail += fmt.Sprintf(" (%s)", msg)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckNotifications reports whether ntfy notifications are configured.
func CheckNotifications(cfg *config.Config) Result {
	const name = "Notifications"
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Notifications.NtfyTopic}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	if code := analysisapi.StatusCode(err); code != 0 {
		return fmt.Sprintf("status %d", code)
	}
	return analysisapi.Cause(err)
}
