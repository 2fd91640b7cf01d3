package preflight_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"surgitrack/internal/analysisapi"
	"surgitrack/internal/config"
	"surgitrack/internal/preflight"
	"surgitrack/internal/services"
)

type stubPinger struct {
	root    analysisapi.RootResponse
	latency time.Duration
	err     error
}

func (s stubPinger) Ping(context.Context) (analysisapi.RootResponse, time.Duration, error) {
	return s.root, s.latency, s.err
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckAnalysisService(t *testing.T) {
	ok := preflight.CheckAnalysisService(context.Background(), "https://example.test", stubPinger{
		root:    analysisapi.RootResponse{Message: "StudyForge API is running!"},
		latency: 42 * time.Millisecond,
	})
	if !ok.Passed || !strings.Contains(ok.Detail, "42ms") || !strings.Contains(ok.Detail, "running") {
		t.Fatalf("unexpected result: %+v", ok)
	}

	failed := preflight.CheckAnalysisService(context.Background(), "https://example.test", stubPinger{
		err: &analysisapi.StatusError{Stage: "health", StatusCode: 503},
	})
	if failed.Passed || !strings.Contains(failed.Detail, "status 503") {
		t.Fatalf("unexpected result: %+v", failed)
	}

	timeout := preflight.CheckAnalysisService(context.Background(), "https://example.test", stubPinger{
		err: services.Wrap(services.ErrTimeout, "health", "GET /", "request failed", context.DeadlineExceeded),
	})
	if timeout.Passed || !strings.Contains(timeout.Detail, "timed out") {
		t.Fatalf("unexpected result: %+v", timeout)
	}
}

func TestRunAllSkipsMissingLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = ""
	results := preflight.RunAll(context.Background(), &cfg, stubPinger{})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %+v", len(results), results)
	}
	if !preflight.AllPassed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
}

func TestCheckUpload(t *testing.T) {
	limits := config.Default().Upload
	if err := preflight.CheckUpload(limits, "clip.avi", 50_000_000); err != nil {
		t.Fatalf("expected no check when constraints are off, got %v", err)
	}

	limits.EnforceConstraints = true
	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr bool
	}{
		{"mp4 within limit", "case.MP4", 5_000_000, false},
		{"wrong extension", "case.mov", 1_000, true},
		{"too large", "case.mp4", 10_000_001, true},
		{"exactly at limit", "case.mp4", 10_000_000, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := preflight.CheckUpload(limits, tc.file, tc.size)
			if tc.wantErr && !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
