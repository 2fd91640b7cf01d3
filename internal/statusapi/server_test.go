package statusapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"surgitrack/internal/controller"
	"surgitrack/internal/history"
	"surgitrack/internal/logging"
	"surgitrack/internal/progress"
	"surgitrack/internal/services"
	"surgitrack/internal/session"
	"surgitrack/internal/statusapi"
	"surgitrack/internal/testsupport"
)

type fakeSession struct {
	mu        sync.Mutex
	state     session.State
	submitErr error
	submitted []string
	resets    int
}

func newFakeSession() *fakeSession {
	return &fakeSession{state: session.New("sess-1")}
}

func (f *fakeSession) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSession) Submit(ctx context.Context, path string) (session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.state, f.submitErr
	}
	f.submitted = append(f.submitted, path)
	f.state.File = session.NewFile(path, 1, "video/mp4")
	f.state.Loading = true
	f.state.Cursor = session.CursorUploading
	return f.state, nil
}

func (f *fakeSession) Reset() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	next := session.New("sess-2")
	next.Generation = f.state.Generation + 1
	f.state = next
	return next
}

func newServer(t *testing.T, opts statusapi.Options) *statusapi.Server {
	t.Helper()
	srv, err := statusapi.New(opts)
	if err != nil {
		t.Fatalf("statusapi.New: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := newServer(t, statusapi.Options{Session: newFakeSession(), Now: func() time.Time { return fixed }})

	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[statusapi.HealthResponse](t, rec)
	if body.Status != "healthy" || body.Service != "SurgiTrack Frontend" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Timestamp != "2026-03-01T12:00:00Z" {
		t.Fatalf("timestamp = %q", body.Timestamp)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestSessionSnapshot(t *testing.T) {
	srv := newServer(t, statusapi.Options{Session: newFakeSession()})

	rec := do(t, srv.Handler(), http.MethodGet, "/api/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Phase   string `json:"phase"`
		Session struct {
			ID    string `json:"id"`
			Steps []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"steps"`
		} `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Phase != "idle" || body.Session.ID != "sess-1" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if len(body.Session.Steps) != 6 || body.Session.Steps[0].Status != "pending" {
		t.Fatalf("unexpected steps %+v", body.Session.Steps)
	}
}

func TestSubmitSelectsAndStarts(t *testing.T) {
	sess := newFakeSession()
	srv := newServer(t, statusapi.Options{Session: sess})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/session", `{"path":"/videos/case.mp4"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := decode[statusapi.SessionResponse](t, rec)
	if body.Phase != "uploading" || body.Session.File.Name != "case.mp4" {
		t.Fatalf("unexpected response %s", rec.Body.String())
	}
	if len(sess.submitted) != 1 || sess.submitted[0] != "/videos/case.mp4" {
		t.Fatalf("submitted %v", sess.submitted)
	}
}

// gatedClient blocks uploads until release is closed.
type gatedClient struct {
	mu       sync.Mutex
	uploaded []string
	release  chan struct{}
}

func (g *gatedClient) UploadFile(ctx context.Context, path string) (string, error) {
	g.mu.Lock()
	g.uploaded = append(g.uploaded, path)
	g.mu.Unlock()
	select {
	case <-g.release:
		return "abc123", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedClient) StartProcessing(ctx context.Context, fileKey string) (string, error) {
	return "job-1", nil
}

func (g *gatedClient) paths() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.uploaded...)
}

func TestConcurrentSubmitKeepsFirstFile(t *testing.T) {
	dir := t.TempDir()
	first := testsupport.WriteVideo(t, dir, "a.mp4", 128)
	second := testsupport.WriteVideo(t, dir, "b.mp4", 128)

	client := &gatedClient{release: make(chan struct{})}
	ctl, err := controller.New(controller.Options{
		Client: client,
		Source: progress.NewSimulated(progress.SimulatedOptions{
			ExtractDelay: time.Millisecond,
			DetectDelay:  2 * time.Millisecond,
			TrackDelay:   3 * time.Millisecond,
		}),
	})
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	t.Cleanup(func() { _ = ctl.Close() })
	srv := newServer(t, statusapi.Options{Session: ctl})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/session", `{"path":"`+first+`"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first submit status = %d body=%s", rec.Code, rec.Body.String())
	}
	if body := decode[statusapi.SessionResponse](t, rec); body.Session.File.Name != "a.mp4" {
		t.Fatalf("first submit file = %q", body.Session.File.Name)
	}

	rec = do(t, srv.Handler(), http.MethodPost, "/api/session", `{"path":"`+second+`"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second submit status = %d body=%s", rec.Code, rec.Body.String())
	}
	if body := decode[statusapi.ErrorResponse](t, rec); body.Error.Code != "session_active" {
		t.Fatalf("second submit code = %q", body.Error.Code)
	}

	close(client.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	final, err := ctl.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !final.Done() || final.File.Name != "a.mp4" {
		t.Fatalf("final phase %s file %q", final.Phase(), final.File.Name)
	}
	if got := client.paths(); len(got) != 1 || got[0] != first {
		t.Fatalf("uploaded %v, want only %s", got, first)
	}
}

func TestSubmitMapsSelectErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
		code   string
	}{
		{name: "bad json", body: `{`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "no file", err: session.ErrNoFile, body: `{"path":""}`, status: http.StatusBadRequest, code: "invalid_file"},
		{
			name:   "validation",
			err:    services.Wrap(services.ErrValidation, "upload", "preflight", "unsupported file type", nil),
			body:   `{"path":"/x.avi"}`,
			status: http.StatusBadRequest,
			code:   "invalid_file",
		},
		{name: "active", err: session.ErrActive, body: `{"path":"/x.mp4"}`, status: http.StatusConflict, code: "session_active"},
		{name: "closed", err: controller.ErrClosed, body: `{"path":"/x.mp4"}`, status: http.StatusServiceUnavailable, code: "shutting_down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newFakeSession()
			sess.submitErr = tt.err
			srv := newServer(t, statusapi.Options{Session: sess})

			rec := do(t, srv.Handler(), http.MethodPost, "/api/session", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			body := decode[statusapi.ErrorResponse](t, rec)
			if body.Error.Code != tt.code {
				t.Fatalf("code = %q, want %q", body.Error.Code, tt.code)
			}
		})
	}
}

func TestResetEndpoint(t *testing.T) {
	sess := newFakeSession()
	srv := newServer(t, statusapi.Options{Session: sess})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/session/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[statusapi.SessionResponse](t, rec)
	if body.Session.ID != "sess-2" || body.Session.Generation != 1 {
		t.Fatalf("unexpected reset response %s", rec.Body.String())
	}
	if sess.resets != 1 {
		t.Fatalf("resets = %d", sess.resets)
	}
}

func TestLogsEndpoint(t *testing.T) {
	hub := logging.NewStreamHub(16)
	for _, msg := range []string{"one", "two", "three"} {
		hub.Publish(logging.LogEvent{Level: "info", Message: msg})
	}
	srv := newServer(t, statusapi.Options{Session: newFakeSession(), Logs: hub})

	rec := do(t, srv.Handler(), http.MethodGet, "/api/logs?since=1&limit=1", "")
	body := decode[statusapi.LogStreamResponse](t, rec)
	if len(body.Events) != 1 || body.Events[0].Message != "two" || body.Next != 2 {
		t.Fatalf("unexpected since response %+v", body)
	}

	rec = do(t, srv.Handler(), http.MethodGet, "/api/logs?tail=1&limit=2", "")
	body = decode[statusapi.LogStreamResponse](t, rec)
	if len(body.Events) != 2 || body.Events[1].Message != "three" || body.Next != 3 {
		t.Fatalf("unexpected tail response %+v", body)
	}

	rec = do(t, srv.Handler(), http.MethodGet, "/api/logs?since=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad since, got %d", rec.Code)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	state := session.New("hist-0001")
	state.File = session.NewFile("/videos/case.mp4", 10, "video/mp4")
	if err := store.Record(context.Background(), state); err != nil {
		t.Fatalf("Record: %v", err)
	}
	srv := newServer(t, statusapi.Options{Session: newFakeSession(), History: store})

	rec := do(t, srv.Handler(), http.MethodGet, "/api/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decode[statusapi.HistoryListResponse](t, rec)
	if len(list.Sessions) != 1 || list.Sessions[0].SessionID != "hist-0001" {
		t.Fatalf("unexpected list %s", rec.Body.String())
	}

	rec = do(t, srv.Handler(), http.MethodGet, "/api/history/hist", "")
	entry := decode[history.Entry](t, rec)
	if entry.FileName != "case.mp4" {
		t.Fatalf("unexpected entry %s", rec.Body.String())
	}

	rec = do(t, srv.Handler(), http.MethodGet, "/api/history/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHistoryDisabled(t *testing.T) {
	srv := newServer(t, statusapi.Options{Session: newFakeSession()})
	rec := do(t, srv.Handler(), http.MethodGet, "/api/history", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when history is disabled, got %d", rec.Code)
	}
}

func TestStartServesOnBind(t *testing.T) {
	srv := newServer(t, statusapi.Options{Bind: "127.0.0.1:0", Session: newFakeSession()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestNewRequiresSession(t *testing.T) {
	if _, err := statusapi.New(statusapi.Options{}); err == nil {
		t.Fatal("expected error without session")
	}
}
