package analysisapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"surgitrack/internal/analysisapi"
	"surgitrack/internal/services"
	"surgitrack/internal/timeline"
)

func newClient(t *testing.T, srv *httptest.Server, opts ...analysisapi.Option) *analysisapi.Client {
	t.Helper()
	client, err := analysisapi.New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewDefaultsBaseURL(t *testing.T) {
	client, err := analysisapi.New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.BaseURL() != analysisapi.DefaultBaseURL {
		t.Fatalf("base url = %s", client.BaseURL())
	}
	if _, err := analysisapi.New("http://"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestUploadSendsMultipartFile(t *testing.T) {
	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotBody = string(data)
		_ = json.NewEncoder(w).Encode(map[string]string{"file_key": "abc123"})
	}))
	defer srv.Close()

	dir := t.TempDir()
	videoPath := filepath.Join(dir, "case.mp4")
	if err := os.WriteFile(videoPath, []byte("video-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var progress bytes.Buffer
	var gotTotal int64
	client := newClient(t, srv, analysisapi.WithUploadProgress(func(total int64) io.Writer {
		gotTotal = total
		return &progress
	}))

	key, err := client.UploadFile(context.Background(), videoPath)
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("file key = %q", key)
	}
	if gotName != "case.mp4" || gotBody != "video-bytes" {
		t.Fatalf("server saw name=%q body=%q", gotName, gotBody)
	}
	if gotTotal != int64(len("video-bytes")) || progress.String() != "video-bytes" {
		t.Fatalf("progress total=%d bytes=%q", gotTotal, progress.String())
	}
}

func TestUploadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).Upload(context.Background(), "case.mp4", strings.NewReader("x"), 1)
	if !errors.Is(err, services.ErrRemoteStatus) {
		t.Fatalf("expected remote status error, got %v", err)
	}
	if analysisapi.StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("status code = %d", analysisapi.StatusCode(err))
	}
	if got := analysisapi.Cause(err); got != "upload returned status 500" {
		t.Fatalf("cause = %q", got)
	}
}

func TestUploadMissingFileKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv).Upload(context.Background(), "case.mp4", strings.NewReader("x"), 1)
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestUploadFileMissing(t *testing.T) {
	client, err := analysisapi.New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartProcessingEscapesFileKey(t *testing.T) {
	var gotKey, gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/process" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.URL.Query().Get("file_key")
		gotRaw = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-1"})
	}))
	defer srv.Close()

	jobID, err := newClient(t, srv).StartProcessing(context.Background(), "uploads/a b&c.mp4")
	if err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if jobID != "job-1" {
		t.Fatalf("job id = %q", jobID)
	}
	if gotKey != "uploads/a b&c.mp4" {
		t.Fatalf("server decoded key %q", gotKey)
	}
	if strings.Contains(gotRaw, " ") || strings.Count(gotRaw, "&") != 0 {
		t.Fatalf("query not escaped: %q", gotRaw)
	}
}

func TestStartProcessingTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := analysisapi.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.StartProcessing(context.Background(), "abc123")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := newClient(t, srv, analysisapi.WithTimeout(50*time.Millisecond))
	_, err := client.StartProcessing(context.Background(), "abc123")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestJobStatusDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/job-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(analysisapi.JobStatus{
			Status: "COMPLETED",
			Result: &analysisapi.JobResult{Events: timeline.DemoEvents()},
		})
	}))
	defer srv.Close()

	status, err := newClient(t, srv).JobStatus(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	if status.State() != analysisapi.JobCompleted || status.JobID != "job-1" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Result == nil || len(status.Result.Events) != 6 {
		t.Fatalf("unexpected result: %+v", status.Result)
	}
}

func TestJobStatusRequiresID(t *testing.T) {
	client, err := analysisapi.New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.JobStatus(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"StudyForge API is running!"}`))
	}))
	defer srv.Close()

	root, latency, err := newClient(t, srv).Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if root.Message != "StudyForge API is running!" || latency <= 0 {
		t.Fatalf("unexpected ping result %+v %v", root, latency)
	}
}

func TestParseJobState(t *testing.T) {
	if state, ok := analysisapi.ParseJobState(" Tracking "); !ok || state != analysisapi.JobTracking {
		t.Fatalf("got %s %v", state, ok)
	}
	if state, ok := analysisapi.ParseJobState("weird"); ok || state != analysisapi.JobProcessing {
		t.Fatalf("got %s %v", state, ok)
	}
}
