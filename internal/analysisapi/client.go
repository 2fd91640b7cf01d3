package analysisapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"surgitrack/internal/services"
)

// DefaultBaseURL is the deployment used when no base URL is configured.
const DefaultBaseURL = "https://ai-study-buddy-pnyu.onrender.com"

const (
	stageUpload  = "upload"
	stageProcess = "process"
	stageStatus  = "status"
	stageHealth  = "health"

	uploadField = "file"
)

// ProgressFunc returns a writer that receives a copy of the uploaded bytes.
// total is the file size, or -1 when unknown.
type ProgressFunc func(total int64) io.Writer

// Client calls the remote analysis service.
type Client struct {
	base     *url.URL
	http     *http.Client
	progress ProgressFunc
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUploadProgress reports upload bytes to the writer returned by fn.
func WithUploadProgress(fn ProgressFunc) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// New builds a client for baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "api", "parse base url", "invalid base url", err)
	}
	if base.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api", "parse base url", "base url has no host", nil)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved service root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// UploadFile opens path and uploads it. It returns the remote file key.
func (c *Client) UploadFile(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, stageUpload, "open file", "cannot read file", err)
	}
	defer f.Close()
	size := int64(-1)
	if info, statErr := f.Stat(); statErr == nil {
		size = info.Size()
	}
	return c.Upload(ctx, filepath.Base(filePath), f, size)
}

// Upload posts r as multipart field "file" named name and returns the
// remote file key.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if c.progress != nil {
		if w := c.progress(size); w != nil {
			r = io.TeeReader(r, w)
		}
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeFilePart(form, name, r))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload", nil), pr)
	if err != nil {
		_ = pr.Close()
		return "", services.Wrap(services.ErrTransport, stageUpload, "build request", "", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var payload UploadResponse
	if err := c.do(req, stageUpload, &payload); err != nil {
		_ = pr.Close()
		return "", err
	}
	if strings.TrimSpace(payload.FileKey) == "" {
		return "", services.Wrap(services.ErrDecode, stageUpload, "decode response", "response missing file_key", nil)
	}
	return payload.FileKey, nil
}

func writeFilePart(form *multipart.Writer, name string, r io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, name))
	header.Set("Content-Type", contentTypeFor(name))
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return form.Close()
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}

// StartProcessing asks the service to process fileKey and returns the job id.
func (c *Client) StartProcessing(ctx context.Context, fileKey string) (string, error) {
	query := url.Values{}
	query.Set("file_key", fileKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/process", query), nil)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, stageProcess, "build request", "", err)
	}
	req.Header.Set("Accept", "application/json")

	var payload ProcessResponse
	if err := c.do(req, stageProcess, &payload); err != nil {
		return "", err
	}
	return payload.JobID, nil
}

// JobStatus fetches the remote status of jobID.
func (c *Client) JobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return JobStatus{}, services.Wrap(services.ErrValidation, stageStatus, "fetch job", "job id is required", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/jobs/"+url.PathEscape(jobID), nil), nil)
	if err != nil {
		return JobStatus{}, services.Wrap(services.ErrTransport, stageStatus, "build request", "", err)
	}
	req.Header.Set("Accept", "application/json")

	var payload JobStatus
	if err := c.do(req, stageStatus, &payload); err != nil {
		return JobStatus{}, err
	}
	if payload.JobID == "" {
		payload.JobID = jobID
	}
	return payload, nil
}

// Ping requests the service root and reports the round-trip latency.
func (c *Client) Ping(ctx context.Context) (RootResponse, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/", nil), nil)
	if err != nil {
		return RootResponse{}, 0, services.Wrap(services.ErrTransport, stageHealth, "build request", "", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	var payload RootResponse
	err = c.do(req, stageHealth, &payload)
	return payload, time.Since(start), err
}

func (c *Client) endpoint(p string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + p
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(req *http.Request, stage string, out any) error {
	operation := req.Method + " " + req.URL.Path
	resp, err := c.http.Do(req)
	if err != nil {
		marker := services.ErrTransport
		if isTimeout(err) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, stage, operation, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Stage: stage, StatusCode: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrDecode, stage, operation, "invalid response body", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
