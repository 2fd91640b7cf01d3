package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"surgitrack/internal/config"
	"surgitrack/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	analysis   *httptest.Server
	uploads    *atomic.Int32
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("SURGITRACK_BASE_URL", "")
	t.Setenv("SURGITRACK_NTFY_TOPIC", "")

	env := &cliTestEnv{baseDir: base, uploads: &atomic.Int32{}}
	env.analysis = newAnalysisStub(t, env.uploads)

	env.cfg = testsupport.NewConfig(t, testsupport.WithBaseURL(env.analysis.URL))
	env.configPath = filepath.Join(base, "config.toml")
	writeTestConfig(t, env.configPath, env.cfg)
	return env
}

func newAnalysisStub(t *testing.T, uploads *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "stub analysis service"})
	})
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		_ = json.NewEncoder(w).Encode(map[string]string{"file_key": "abc123"})
	})
	mux.HandleFunc("POST /process", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("file_key") != "abc123" {
			http.Error(w, "unknown key", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-1"})
	})
	mux.HandleFunc("GET /jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"job_id":"job-1","status":"completed","result":{"fps":30,"transitions":[
			{"frame":30,"object":"Needle driver","state":"off_tray","confidence":0.93},
			{"frame":90,"object":"Needle driver","state":"on_tray","confidence":0.9}
		]}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[api]
base_url = %q

[paths]
state_dir = %q
log_dir = %q

[progress]
mode = %q
extract_delay_ms = %d
detect_delay_ms = %d
track_delay_ms = %d
poll_interval_ms = %d

[history]
enabled = %t
path = %q

[status_api]
bind = %q

[logging]
level = "error"
`,
		cfg.API.BaseURL,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Progress.Mode,
		cfg.Progress.ExtractDelayMS,
		cfg.Progress.DetectDelayMS,
		cfg.Progress.TrackDelayMS,
		cfg.Progress.PollIntervalMS,
		cfg.History.Enabled,
		cfg.History.Path,
		cfg.StatusAPI.Bind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
