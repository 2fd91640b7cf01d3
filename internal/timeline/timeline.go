package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

var (
	ErrFrameOrder = errors.New("events must be in frame order")
	ErrFrame      = errors.New("event frame must be non-negative")
	ErrConfidence = errors.New("event confidence must be within [0, 1]")
	ErrAction     = errors.New("event action is required")
)

const noDuration = "N/A"

// Timeline is an immutable, validated sequence of events.
type Timeline struct {
	events []Event
}

// Summary holds the aggregates displayed with a timeline.
type Summary struct {
	Count                    int     `json:"count"`
	Duration                 string  `json:"duration"`
	AverageConfidence        float64 `json:"average_confidence"`
	AverageConfidencePercent int     `json:"average_confidence_percent"`
	Pickups                  int     `json:"pickups"`
	Placements               int     `json:"placements"`
}

// New validates events and returns a Timeline holding a copy of them. Frames
// must not decrease; several events may share a frame.
func New(events []Event) (Timeline, error) {
	prev := -1
	for i, event := range events {
		if event.Frame < 0 {
			return Timeline{}, fmt.Errorf("event %d: %w (frame %d)", i, ErrFrame, event.Frame)
		}
		if event.Frame < prev {
			return Timeline{}, fmt.Errorf("event %d: %w (frame %d after %d)", i, ErrFrameOrder, event.Frame, prev)
		}
		if math.IsNaN(event.Confidence) || event.Confidence < 0 || event.Confidence > 1 {
			return Timeline{}, fmt.Errorf("event %d: %w (%v)", i, ErrConfidence, event.Confidence)
		}
		if strings.TrimSpace(event.Action) == "" {
			return Timeline{}, fmt.Errorf("event %d: %w", i, ErrAction)
		}
		prev = event.Frame
	}
	cp := make([]Event, len(events))
	copy(cp, events)
	return Timeline{events: cp}, nil
}

// Demo returns the fixture timeline used by simulated processing.
func Demo() Timeline {
	return Timeline{events: DemoEvents()}
}

// DemoEvents returns the fixed set of six events produced by simulated
// processing.
func DemoEvents() []Event {
	return []Event{
		{Frame: 45, Timestamp: "00:03", Action: "Scalpel picked up", Confidence: 0.94},
		{Frame: 180, Timestamp: "00:12", Action: "Forceps picked up", Confidence: 0.87},
		{Frame: 320, Timestamp: "00:21", Action: "Scalpel placed back", Confidence: 0.92},
		{Frame: 480, Timestamp: "00:32", Action: "Scissors picked up", Confidence: 0.89},
		{Frame: 620, Timestamp: "00:41", Action: "Forceps placed back", Confidence: 0.91},
		{Frame: 750, Timestamp: "00:50", Action: "Scissors placed back", Confidence: 0.88},
	}
}

// Events returns a copy of the events in frame order.
func (t Timeline) Events() []Event {
	cp := make([]Event, len(t.events))
	copy(cp, t.events)
	return cp
}

// Count returns the number of events.
func (t Timeline) Count() int {
	return len(t.events)
}

// Empty reports whether the timeline has no events.
func (t Timeline) Empty() bool {
	return len(t.events) == 0
}

// Duration returns the timestamp of the last event, or "N/A" when empty.
func (t Timeline) Duration() string {
	if len(t.events) == 0 {
		return noDuration
	}
	return t.events[len(t.events)-1].Timestamp
}

// AverageConfidence returns the mean confidence, or 0 when empty.
func (t Timeline) AverageConfidence() float64 {
	if len(t.events) == 0 {
		return 0
	}
	var sum float64
	for _, event := range t.events {
		sum += event.Confidence
	}
	return sum / float64(len(t.events))
}

// AverageConfidencePercent returns the mean confidence as a rounded percent.
func (t Timeline) AverageConfidencePercent() int {
	return int(math.Round(t.AverageConfidence() * 100))
}

// CountKind returns how many events are of the given kind.
func (t Timeline) CountKind(kind Kind) int {
	n := 0
	for _, event := range t.events {
		if event.Kind() == kind {
			n++
		}
	}
	return n
}

// Summary collects the display aggregates.
func (t Timeline) Summary() Summary {
	return Summary{
		Count:                    t.Count(),
		Duration:                 t.Duration(),
		AverageConfidence:        t.AverageConfidence(),
		AverageConfidencePercent: t.AverageConfidencePercent(),
		Pickups:                  t.CountKind(KindPickup),
		Placements:               t.CountKind(KindPlacement),
	}
}

// MarshalJSON encodes the timeline as its event array.
func (t Timeline) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Events())
}

// UnmarshalJSON decodes an event array and validates it.
func (t *Timeline) UnmarshalJSON(data []byte) error {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return err
	}
	parsed, err := New(events)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Decode reads a timeline from JSON. Both a bare event array and an object
// with an "events" field are accepted.
func Decode(r io.Reader) (Timeline, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Timeline{}, fmt.Errorf("read timeline: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Events Timeline `json:"events"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return Timeline{}, fmt.Errorf("decode timeline: %w", err)
		}
		return wrapper.Events, nil
	}
	var tl Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return Timeline{}, fmt.Errorf("decode timeline: %w", err)
	}
	return tl, nil
}
