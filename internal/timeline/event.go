package timeline

import (
	"fmt"
	"math"
	"strings"
)

// Kind classifies an event action.
type Kind string

const (
	KindPickup    Kind = "pickup"
	KindPlacement Kind = "placement"
	KindOther     Kind = "other"
)

// Band classifies an event confidence.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

const (
	actionPickup    = "picked up"
	actionPlacement = "placed back"

	highConfidence   = 0.9
	mediumConfidence = 0.8
)

// Event is a single detected tool action.
type Event struct {
	Frame      int     `json:"frame"`
	Timestamp  string  `json:"timestamp"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// Kind reports whether the action picks a tool up or places it back.
func (e Event) Kind() Kind {
	action := strings.ToLower(e.Action)
	switch {
	case strings.Contains(action, actionPickup):
		return KindPickup
	case strings.Contains(action, actionPlacement):
		return KindPlacement
	default:
		return KindOther
	}
}

// Band buckets the confidence for display.
func (e Event) Band() Band {
	switch {
	case e.Confidence >= highConfidence:
		return BandHigh
	case e.Confidence >= mediumConfidence:
		return BandMedium
	default:
		return BandLow
	}
}

// Percent returns the confidence as a rounded whole percentage.
func (e Event) Percent() int {
	return int(math.Round(e.Confidence * 100))
}

// FormatTimestamp renders the mm:ss position of frame in a video recorded
// at fps frames per second. Partial seconds are truncated.
func FormatTimestamp(frame int, fps float64) string {
	if frame < 0 || fps <= 0 {
		return "00:00"
	}
	seconds := int(float64(frame) / fps)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
