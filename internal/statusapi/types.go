package statusapi

import (
	"surgitrack/internal/history"
	"surgitrack/internal/logging"
	"surgitrack/internal/session"
	"surgitrack/internal/timeline"
)

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// SessionResponse wraps a snapshot with derived fields.
type SessionResponse struct {
	Phase   string           `json:"phase"`
	Summary timeline.Summary `json:"summary"`
	Session session.State    `json:"session"`
}

// SubmitRequest selects and submits a local file.
type SubmitRequest struct {
	Path string `json:"path"`
}

// LogStreamResponse carries log events after a sequence number.
type LogStreamResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// HistoryListResponse lists recorded sessions.
type HistoryListResponse struct {
	Sessions []history.Entry `json:"sessions"`
}

// ErrorBody is the standard error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func newSessionResponse(state session.State) SessionResponse {
	return SessionResponse{
		Phase:   state.Phase(),
		Summary: state.Events.Summary(),
		Session: state,
	}
}
