package statusapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"surgitrack/internal/controller"
	"surgitrack/internal/history"
	"surgitrack/internal/services"
	"surgitrack/internal/session"
)

const defaultHistoryLimit = 20

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, newSessionResponse(s.session.Snapshot()))
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "request body must be JSON with a path")
		return
	}
	state, err := s.session.Submit(s.submitContext(), req.Path)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoFile), errors.Is(err, services.ErrValidation):
			writeError(c, http.StatusBadRequest, "invalid_file", services.Details(err).Message)
		case errors.Is(err, session.ErrActive):
			writeError(c, http.StatusConflict, "session_active", "a session is already running; reset it first")
		case errors.Is(err, controller.ErrClosed):
			writeError(c, http.StatusServiceUnavailable, "shutting_down", "the session controller is shutting down")
		default:
			writeError(c, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	c.JSON(http.StatusAccepted, newSessionResponse(state))
}

func (s *Server) handleReset(c *gin.Context) {
	c.JSON(http.StatusOK, newSessionResponse(s.session.Reset()))
}

func (s *Server) handleLogs(c *gin.Context) {
	if s.logs == nil {
		c.JSON(http.StatusOK, LogStreamResponse{})
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	if truthy(c.Query("tail")) {
		events := s.logs.Tail(limit)
		var next uint64
		if len(events) > 0 {
			next = events[len(events)-1].Sequence
		}
		c.JSON(http.StatusOK, LogStreamResponse{Events: events, Next: next})
		return
	}
	var since uint64
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_since", "since must be a non-negative integer")
			return
		}
	}
	events, next := s.logs.Since(since, limit)
	c.JSON(http.StatusOK, LogStreamResponse{Events: events, Next: next})
}

func (s *Server) handleHistoryList(c *gin.Context) {
	if s.history == nil {
		writeError(c, http.StatusNotFound, "history_disabled", "history is disabled")
		return
	}
	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	entries, err := s.history.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "history_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, HistoryListResponse{Sessions: entries})
}

func (s *Server) handleHistoryItem(c *gin.Context) {
	if s.history == nil {
		writeError(c, http.StatusNotFound, "history_disabled", "history is disabled")
		return
	}
	entry, err := s.history.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, history.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, history.ErrAmbiguous):
		writeError(c, http.StatusBadRequest, "ambiguous_id", err.Error())
	case err != nil:
		writeError(c, http.StatusInternalServerError, "history_error", err.Error())
	default:
		c.JSON(http.StatusOK, entry)
	}
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return value, nil
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
