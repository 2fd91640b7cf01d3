package analysisapi

import (
	"strings"

	"surgitrack/internal/timeline"
)

// JobState is the remote lifecycle reported for a processing job.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobExtracting JobState = "extracting"
	JobDetecting  JobState = "detecting"
	JobTracking   JobState = "tracking"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// ParseJobState normalizes a remote status string. Unknown values map to
// JobProcessing with ok set to false.
func ParseJobState(value string) (JobState, bool) {
	state := JobState(strings.ToLower(strings.TrimSpace(value)))
	switch state {
	case JobQueued, JobProcessing, JobExtracting, JobDetecting, JobTracking, JobCompleted, JobFailed:
		return state, true
	default:
		return JobProcessing, false
	}
}

// UploadResponse is the body returned by POST /upload.
type UploadResponse struct {
	FileKey string `json:"file_key"`
}

// ProcessResponse is the body returned by POST /process.
type ProcessResponse struct {
	JobID string `json:"job_id"`
}

// JobResult carries the tracker output of a finished job. Either the
// finished events or the raw tray transitions may be present.
type JobResult struct {
	Events      []timeline.Event      `json:"events,omitempty"`
	Transitions []timeline.Transition `json:"transitions,omitempty"`
	FPS         float64               `json:"fps,omitempty"`
}

// JobStatus is the body returned by GET /jobs/{id}.
type JobStatus struct {
	JobID  string     `json:"job_id"`
	Status string     `json:"status"`
	Result *JobResult `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// State returns the parsed job status.
func (s JobStatus) State() JobState {
	state, _ := ParseJobState(s.Status)
	return state
}

// RootResponse is the body returned by GET / on the remote service.
type RootResponse struct {
	Message string `json:"message"`
}
