package pipeline

import "strings"

// StepID identifies one stage of the pipeline.
type StepID string

const (
	StepUpload   StepID = "upload"
	StepValidate StepID = "validate"
	StepExtract  StepID = "extract"
	StepDetect   StepID = "detect"
	StepTrack    StepID = "track"
	StepComplete StepID = "complete"
)

// Status represents the lifecycle of a single step.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

var stepOrder = []StepID{
	StepUpload,
	StepValidate,
	StepExtract,
	StepDetect,
	StepTrack,
	StepComplete,
}

var stepIndex = func() map[StepID]int {
	idx := make(map[StepID]int, len(stepOrder))
	for i, id := range stepOrder {
		idx[id] = i
	}
	return idx
}()

var statusSet = map[Status]struct{}{
	StatusPending:    {},
	StatusProcessing: {},
	StatusCompleted:  {},
	StatusError:      {},
}

type stepText struct {
	name        string
	description string
}

var stepTexts = map[StepID]stepText{
	StepUpload:   {name: "Upload Video", description: "Upload your surgical video file"},
	StepValidate: {name: "Validate", description: "Check file format and specifications"},
	StepExtract:  {name: "Extract Frames", description: "Extract individual frames from video"},
	StepDetect:   {name: "Detect Objects", description: "Identify surgical tools in frames"},
	StepTrack:    {name: "Track Events", description: "Track tool movements and events"},
	StepComplete: {name: "Complete", description: "Generate timeline results"},
}

// Step is a single pipeline stage with its display text and status.
type Step struct {
	ID          StepID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// AllStepIDs returns the ordered list of known step identifiers.
func AllStepIDs() []StepID {
	cp := make([]StepID, len(stepOrder))
	copy(cp, stepOrder)
	return cp
}

// ParseStepID converts a string into a known StepID.
func ParseStepID(value string) (StepID, bool) {
	normalized := StepID(strings.ToLower(strings.TrimSpace(value)))
	_, ok := stepIndex[normalized]
	return normalized, ok
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Index returns the zero-based pipeline position of id, or -1 when unknown.
func (id StepID) Index() int {
	if i, ok := stepIndex[id]; ok {
		return i
	}
	return -1
}

// IsTerminal reports whether no further transition may leave this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}
