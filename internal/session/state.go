package session

import (
	"path/filepath"
	"strings"

	"surgitrack/internal/pipeline"
	"surgitrack/internal/timeline"
)

// Cursor positions shown by the presentation layer.
const (
	CursorForm      = 0
	CursorUploading = 1
	CursorUploaded  = 2
	CursorComplete  = 5
)

// File describes the video chosen for submission.
type File struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// NewFile builds a File for path, deriving the display name from it.
func NewFile(path string, size int64, contentType string) File {
	path = strings.TrimSpace(path)
	name := ""
	if path != "" {
		name = filepath.Base(path)
	}
	return File{Path: path, Name: name, Size: size, ContentType: contentType}
}

// IsZero reports whether no file is set.
func (f File) IsZero() bool {
	return f.Path == ""
}

// State is one snapshot of a submission session.
type State struct {
	ID         string            `json:"id"`
	Generation uint64            `json:"generation"`
	File       File              `json:"file"`
	FileKey    string            `json:"file_key,omitempty"`
	JobID      string            `json:"job_id,omitempty"`
	Cursor     int               `json:"cursor"`
	Error      string            `json:"error,omitempty"`
	Loading    bool              `json:"loading"`
	Steps      pipeline.Steps    `json:"steps"`
	Events     timeline.Timeline `json:"events"`
}

// New returns the initial state for a session identified by id.
func New(id string) State {
	return State{
		ID:     id,
		Steps:  pipeline.NewSteps(),
		Events: timeline.Timeline{},
	}
}

// Terminal reports whether the session finished or failed.
func (s State) Terminal() bool {
	return s.Steps.Terminal()
}

// Done reports whether processing completed.
func (s State) Done() bool {
	return s.Steps.Done()
}

// Failed reports whether any step is in error.
func (s State) Failed() bool {
	return s.Steps.Halted()
}

// Idle reports whether the session is still on the upload form with no
// request in flight.
func (s State) Idle() bool {
	return s.Cursor == CursorForm && !s.Loading && !s.Failed()
}

// Phase returns a short label for the session position.
func (s State) Phase() string {
	switch {
	case s.Done():
		return "completed"
	case s.Failed():
		return "failed"
	case s.Cursor == CursorForm && s.File.IsZero():
		return "idle"
	case s.Cursor == CursorForm:
		return "ready"
	case s.Cursor == CursorUploading:
		return "uploading"
	default:
		return "processing"
	}
}
