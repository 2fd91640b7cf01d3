package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownStep       = errors.New("unknown step")
	ErrOutOfOrder        = errors.New("step is not the current stage")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrHalted            = errors.New("pipeline halted by error")
)

// Steps is the ordered, immutable set of pipeline steps.
type Steps struct {
	items []Step
}

// NewSteps returns all six steps in pending status.
func NewSteps() Steps {
	items := make([]Step, 0, len(stepOrder))
	for _, id := range stepOrder {
		text := stepTexts[id]
		items = append(items, Step{
			ID:          id,
			Name:        text.name,
			Description: text.description,
			Status:      StatusPending,
		})
	}
	return Steps{items: items}
}

// List returns a copy of the steps in pipeline order.
func (s Steps) List() []Step {
	s = s.orInitial()
	cp := make([]Step, len(s.items))
	copy(cp, s.items)
	return cp
}

// Get returns the step with the given id.
func (s Steps) Get(id StepID) (Step, bool) {
	s = s.orInitial()
	i := id.Index()
	if i < 0 {
		return Step{}, false
	}
	return s.items[i], true
}

// Status returns the status of id, or the empty status for unknown ids.
func (s Steps) Status(id StepID) Status {
	step, ok := s.Get(id)
	if !ok {
		return ""
	}
	return step.Status
}

// Current returns the first step that is not completed. ok is false once
// every step has completed.
func (s Steps) Current() (Step, bool) {
	s = s.orInitial()
	for _, step := range s.items {
		if step.Status != StatusCompleted {
			return step, true
		}
	}
	return Step{}, false
}

// Processing returns the ids of steps currently in processing status.
func (s Steps) Processing() []StepID {
	s = s.orInitial()
	var ids []StepID
	for _, step := range s.items {
		if step.Status == StatusProcessing {
			ids = append(ids, step.ID)
		}
	}
	return ids
}

// CompletedPrefix returns how many leading steps are completed.
func (s Steps) CompletedPrefix() int {
	s = s.orInitial()
	n := 0
	for _, step := range s.items {
		if step.Status != StatusCompleted {
			break
		}
		n++
	}
	return n
}

// Halted reports whether any step is in error.
func (s Steps) Halted() bool {
	_, ok := s.Failed()
	return ok
}

// Failed returns the step in error, if any.
func (s Steps) Failed() (Step, bool) {
	s = s.orInitial()
	for _, step := range s.items {
		if step.Status == StatusError {
			return step, true
		}
	}
	return Step{}, false
}

// Done reports whether the final step completed.
func (s Steps) Done() bool {
	return s.Status(StepComplete) == StatusCompleted
}

// Terminal reports whether the pipeline accepts no further transitions.
func (s Steps) Terminal() bool {
	return s.Done() || s.Halted()
}

// Advance applies a single status change to id and returns the new set.
//
// Only the current stage may change. Accepted changes are pending to
// processing, pending or processing to completed, and pending or processing
// to error. The receiver is never modified.
func (s Steps) Advance(id StepID, status Status) (Steps, error) {
	s = s.orInitial()
	i := id.Index()
	if i < 0 {
		return s, fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}
	if _, ok := statusSet[status]; !ok {
		return s, fmt.Errorf("%w: %s -> %q", ErrInvalidTransition, id, status)
	}
	if failed, ok := s.Failed(); ok {
		return s, fmt.Errorf("%w: %s failed", ErrHalted, failed.ID)
	}
	current, ok := s.Current()
	if !ok || current.ID != id {
		currentID := StepID("none")
		if ok {
			currentID = current.ID
		}
		return s, fmt.Errorf("%w: %s (current %s)", ErrOutOfOrder, id, currentID)
	}
	if !allowed(current.Status, status) {
		return s, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, id, current.Status, status)
	}

	next := make([]Step, len(s.items))
	copy(next, s.items)
	next[i].Status = status
	return Steps{items: next}, nil
}

// AdvanceAll applies each change in order. On the first rejected change the
// original set is returned with that error.
func (s Steps) AdvanceAll(changes ...Change) (Steps, error) {
	out := s
	for _, change := range changes {
		var err error
		out, err = out.Advance(change.Step, change.Status)
		if err != nil {
			return s, err
		}
	}
	return out, nil
}

// Change is a single requested step transition.
type Change struct {
	Step   StepID
	Status Status
}

func allowed(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCompleted || to == StatusError
	case StatusProcessing:
		return to == StatusCompleted || to == StatusError
	default:
		return false
	}
}

// orInitial lets the zero Steps value behave like NewSteps.
func (s Steps) orInitial() Steps {
	if len(s.items) == 0 {
		return NewSteps()
	}
	return s
}

// MarshalJSON encodes the steps as an ordered array.
func (s Steps) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes an array produced by MarshalJSON. Steps missing from
// the array stay pending; display text always comes from the step table.
func (s *Steps) UnmarshalJSON(data []byte) error {
	var decoded []Step
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	next := NewSteps()
	for _, step := range decoded {
		i := step.ID.Index()
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownStep, step.ID)
		}
		if _, ok := statusSet[step.Status]; !ok {
			return fmt.Errorf("%w: %s -> %q", ErrInvalidTransition, step.ID, step.Status)
		}
		next.items[i].Status = step.Status
	}
	*s = next
	return nil
}
