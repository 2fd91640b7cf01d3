package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"surgitrack/internal/config"
)

const userAgent = "SurgiTrack-Go/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventSessionCompleted Event = "session_completed"
	EventSessionFailed    Event = "session_failed"
	EventTest             Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service publishes session events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.Completed,
		errors:    cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	completed bool
	errors    bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	switch event {
	case EventSessionCompleted:
		if !n.completed {
			return nil
		}
	case EventSessionFailed:
		if !n.errors {
			return nil
		}
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unsupported notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventSessionCompleted:
		file := stringValue(payload, "file", "video")
		body := fmt.Sprintf("✅ Analysis complete: %s", file)
		if count, ok := payload["events"]; ok {
			body = fmt.Sprintf("%s\nEvents: %v", body, count)
		}
		if duration := stringValue(payload, "duration", ""); duration != "" {
			body = fmt.Sprintf("%s\nDuration: %s", body, duration)
		}
		return message{
			title:    "SurgiTrack - Analysis Complete",
			body:     body,
			tags:     []string{"surgitrack", "session", "completed"},
			priority: "high",
		}, true
	case EventSessionFailed:
		file := stringValue(payload, "file", "video")
		reason := stringValue(payload, "error", "unknown")
		return message{
			title:    "SurgiTrack - Error",
			body:     fmt.Sprintf("❌ %s: %s", file, reason),
			tags:     []string{"surgitrack", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "SurgiTrack - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"surgitrack", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func stringValue(payload Payload, key, fallback string) string {
	if payload == nil {
		return fallback
	}
	raw, ok := payload[key]
	if !ok || raw == nil {
		return fallback
	}
	value := strings.TrimSpace(fmt.Sprint(raw))
	if value == "" {
		return fallback
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
