package session

import (
	"errors"
	"fmt"
	"strings"

	"surgitrack/internal/pipeline"
	"surgitrack/internal/timeline"
)

var (
	ErrStale   = errors.New("action belongs to a previous session generation")
	ErrNoFile  = errors.New("no file selected")
	ErrActive  = errors.New("session already started")
	ErrUnknown = errors.New("unknown action")
	ErrTick    = errors.New("unknown progress tick")
)

// Action is a single state change.
type Action interface {
	apply(State) (State, error)
}

// SelectFile records the file to submit. Only allowed on the upload form.
type SelectFile struct{ File File }

// UploadStarted marks the start of the upload request.
type UploadStarted struct{}

// UploadSucceeded stores the key returned by the remote service.
type UploadSucceeded struct{ FileKey string }

// UploadFailed records an upload failure with its cause.
type UploadFailed struct{ Cause string }

// ProcessingStarted marks the start of the processing request.
type ProcessingStarted struct{}

// ProcessingAccepted stores the job id returned by the remote service.
type ProcessingAccepted struct{ JobID string }

// ProcessingFailed records a processing failure on the current stage.
type ProcessingFailed struct{ Cause string }

// StageTick advances the remote stages. Tick 1 finishes extraction, tick 2
// finishes detection and tick 3 finishes tracking and completes the run with
// Events.
type StageTick struct {
	Tick   int
	Events timeline.Timeline
}

// Settled clears the loading flag once a submit call returns.
type Settled struct{}

// Reset discards everything and starts a new generation under ID.
type Reset struct{ ID string }

// Apply returns the state that results from applying action to s. Actions
// stamped with a generation other than s.Generation fail with ErrStale,
// except Reset which is always accepted. On error s is returned unchanged.
func Apply(s State, generation uint64, action Action) (State, error) {
	if action == nil {
		return s, ErrUnknown
	}
	if _, ok := action.(Reset); !ok && generation != s.Generation {
		return s, fmt.Errorf("%w: got %d, current %d", ErrStale, generation, s.Generation)
	}
	next, err := action.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

func (a SelectFile) apply(s State) (State, error) {
	if a.File.IsZero() {
		return s, ErrNoFile
	}
	if !s.Idle() {
		return s, ErrActive
	}
	s.File = a.File
	return s, nil
}

func (UploadStarted) apply(s State) (State, error) {
	if s.File.IsZero() {
		return s, ErrNoFile
	}
	if !s.Idle() {
		return s, ErrActive
	}
	steps, err := s.Steps.Advance(pipeline.StepUpload, pipeline.StatusProcessing)
	if err != nil {
		return s, err
	}
	s.Steps = steps
	s.Error = ""
	s.Loading = true
	s.Cursor = CursorUploading
	return s, nil
}

func (a UploadSucceeded) apply(s State) (State, error) {
	steps, err := s.Steps.AdvanceAll(
		pipeline.Change{Step: pipeline.StepUpload, Status: pipeline.StatusCompleted},
		pipeline.Change{Step: pipeline.StepValidate, Status: pipeline.StatusCompleted},
	)
	if err != nil {
		return s, err
	}
	s.Steps = steps
	s.FileKey = a.FileKey
	s.Cursor = CursorUploaded
	return s, nil
}

func (a UploadFailed) apply(s State) (State, error) {
	steps, err := s.Steps.Advance(pipeline.StepUpload, pipeline.StatusError)
	if err != nil {
		return s, err
	}
	s.Steps = steps
	s.Error = failureMessage("Upload failed", a.Cause)
	return s, nil
}

func (ProcessingStarted) apply(s State) (State, error) {
	steps, err := s.Steps.Advance(pipeline.StepExtract, pipeline.StatusProcessing)
	if err != nil {
		return s, err
	}
	s.Steps = steps
	return s, nil
}

func (a ProcessingAccepted) apply(s State) (State, error) {
	if s.Steps.Status(pipeline.StepExtract) != pipeline.StatusProcessing {
		return s, fmt.Errorf("%w: processing not started", pipeline.ErrOutOfOrder)
	}
	s.JobID = a.JobID
	return s, nil
}

func (a ProcessingFailed) apply(s State) (State, error) {
	current, ok := s.Steps.Current()
	if !ok {
		return s, fmt.Errorf("%w: run already complete", pipeline.ErrOutOfOrder)
	}
	steps, err := s.Steps.Advance(current.ID, pipeline.StatusError)
	if err != nil {
		return s, err
	}
	s.Steps = steps
	s.Error = failureMessage("Processing failed", a.Cause)
	return s, nil
}

func (a StageTick) apply(s State) (State, error) {
	var changes []pipeline.Change
	switch a.Tick {
	case 1:
		changes = []pipeline.Change{
			{Step: pipeline.StepExtract, Status: pipeline.StatusCompleted},
			{Step: pipeline.StepDetect, Status: pipeline.StatusProcessing},
		}
	case 2:
		changes = []pipeline.Change{
			{Step: pipeline.StepDetect, Status: pipeline.StatusCompleted},
			{Step: pipeline.StepTrack, Status: pipeline.StatusProcessing},
		}
	case 3:
		changes = []pipeline.Change{
			{Step: pipeline.StepTrack, Status: pipeline.StatusCompleted},
			{Step: pipeline.StepComplete, Status: pipeline.StatusCompleted},
		}
	default:
		return s, fmt.Errorf("%w: %d", ErrTick, a.Tick)
	}
	steps, err := s.Steps.AdvanceAll(changes...)
	if err != nil {
		return s, err
	}
	s.Steps = steps
	if a.Tick == 3 {
		s.Cursor = CursorComplete
		s.Events = a.Events
	}
	return s, nil
}

func (Settled) apply(s State) (State, error) {
	s.Loading = false
	return s, nil
}

func (a Reset) apply(s State) (State, error) {
	next := New(a.ID)
	next.Generation = s.Generation + 1
	return next, nil
}

func failureMessage(prefix, cause string) string {
	cause = strings.TrimSpace(cause)
	if cause == "" {
		cause = "unknown error"
	}
	return prefix + ": " + cause
}
