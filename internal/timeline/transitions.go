package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// TrayState is the position of a tracked object relative to the tray.
type TrayState string

const (
	OnTray  TrayState = "on_tray"
	OffTray TrayState = "off_tray"
)

var ErrFPS = errors.New("fps must be positive")

// Transition is one per-frame observation of a tracked object as emitted by
// the remote tracker.
type Transition struct {
	Frame      int       `json:"frame"`
	Object     string    `json:"object"`
	State      TrayState `json:"state"`
	Confidence float64   `json:"confidence"`
}

// FromTransitions derives a timeline from tracker observations. Every object
// starts on the tray; a change to off_tray becomes "<Object> picked up" and a
// change back becomes "<Object> placed back". Observations that repeat the
// previous state are ignored. Objects that change on the same frame each
// produce an event, in input order.
func FromTransitions(transitions []Transition, fps float64) (Timeline, error) {
	if fps <= 0 {
		return Timeline{}, ErrFPS
	}
	ordered := make([]Transition, len(transitions))
	copy(ordered, transitions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Frame < ordered[j].Frame
	})

	previous := make(map[string]TrayState)
	events := make([]Event, 0, len(ordered))
	for _, tr := range ordered {
		object := strings.TrimSpace(tr.Object)
		if object == "" || (tr.State != OnTray && tr.State != OffTray) {
			continue
		}
		prev, ok := previous[object]
		if !ok {
			prev = OnTray
		}
		if tr.State == prev {
			continue
		}
		previous[object] = tr.State
		verb := actionPlacement
		if tr.State == OffTray {
			verb = actionPickup
		}
		events = append(events, Event{
			Frame:      tr.Frame,
			Timestamp:  FormatTimestamp(tr.Frame, fps),
			Action:     object + " " + verb,
			Confidence: tr.Confidence,
		})
	}
	return New(events)
}

// DecodeTransitions reads tracker observations from JSON. Both a bare array
// and an object with "transitions" and an optional "fps" are accepted; fps is
// zero when the input does not carry one.
func DecodeTransitions(r io.Reader) ([]Transition, float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read transitions: %w", err)
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		var wrapper struct {
			Transitions []Transition `json:"transitions"`
			FPS         float64      `json:"fps"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, 0, fmt.Errorf("decode transitions: %w", err)
		}
		return wrapper.Transitions, wrapper.FPS, nil
	}
	var transitions []Transition
	if err := json.Unmarshal(data, &transitions); err != nil {
		return nil, 0, fmt.Errorf("decode transitions: %w", err)
	}
	return transitions, 0, nil
}
