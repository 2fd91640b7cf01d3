package progress

import (
	"context"
	"fmt"
	"strings"

	"surgitrack/internal/timeline"
)

// FinalTick is the tick that completes a run.
const FinalTick = 3

// Update is one stage tick. Events is set only on FinalTick.
type Update struct {
	Tick   int
	Events timeline.Timeline
}

// Emit receives updates in tick order.
type Emit func(Update)

// Source drives the remote stages of one job. Run blocks until the final
// tick was emitted, the job failed or ctx was cancelled. A cancelled run
// returns ctx.Err().
type Source interface {
	Name() string
	Run(ctx context.Context, jobID string, emit Emit) error
}

// Mode selects a Source implementation.
type Mode string

const (
	ModeSimulated Mode = "simulated"
	ModePolling   Mode = "polling"
)

// ParseMode normalizes a configured progress mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeSimulated:
		return ModeSimulated, nil
	case ModePolling:
		return ModePolling, nil
	default:
		return "", fmt.Errorf("unknown progress mode %q", value)
	}
}
