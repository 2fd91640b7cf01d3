package progress

import (
	"context"
	"log/slog"
	"time"

	"surgitrack/internal/logging"
	"surgitrack/internal/timeline"
)

// Default offsets from the moment processing was accepted.
const (
	DefaultExtractDelay = 2 * time.Second
	DefaultDetectDelay  = 5 * time.Second
	DefaultTrackDelay   = 8 * time.Second
)

// Simulated replays a fixed timer script. The remote service offers no
// progress feed in this mode, so each stage completes at a fixed offset and
// the final tick carries a fixture timeline.
type Simulated struct {
	delays [FinalTick]time.Duration
	events timeline.Timeline
	logger *slog.Logger
}

// SimulatedOptions configures a Simulated source. Zero delays use the
// defaults; a nil Events uses the demo fixture.
type SimulatedOptions struct {
	ExtractDelay time.Duration
	DetectDelay  time.Duration
	TrackDelay   time.Duration
	Events       *timeline.Timeline
	Logger       *slog.Logger
}

// NewSimulated builds a timer-driven source.
func NewSimulated(opts SimulatedOptions) *Simulated {
	delays := [FinalTick]time.Duration{
		orDefault(opts.ExtractDelay, DefaultExtractDelay),
		orDefault(opts.DetectDelay, DefaultDetectDelay),
		orDefault(opts.TrackDelay, DefaultTrackDelay),
	}
	events := timeline.Demo()
	if opts.Events != nil {
		events = *opts.Events
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Simulated{
		delays: delays,
		events: events,
		logger: logging.NewComponentLogger(logger, "progress-simulated"),
	}
}

// Name identifies the source in logs.
func (s *Simulated) Name() string { return string(ModeSimulated) }

// Delays returns the offsets of the three ticks.
func (s *Simulated) Delays() []time.Duration {
	return []time.Duration{s.delays[0], s.delays[1], s.delays[2]}
}

// Run arms one timer per tick, all measured from the start of Run.
func (s *Simulated) Run(ctx context.Context, jobID string, emit Emit) error {
	logger := logging.WithContext(ctx, s.logger)
	start := time.Now()
	timer := time.NewTimer(s.delays[0])
	defer timer.Stop()

	for i := range FinalTick {
		if i > 0 {
			timer.Reset(time.Until(start.Add(s.delays[i])))
		}
		select {
		case <-ctx.Done():
			logger.Debug("simulated progress cancelled", logging.Int("next_tick", i+1))
			return ctx.Err()
		case <-timer.C:
		}
		update := Update{Tick: i + 1}
		if update.Tick == FinalTick {
			update.Events = s.events
		}
		logger.Debug("simulated stage tick",
			logging.JobID(jobID),
			logging.Int("tick", update.Tick),
			logging.Duration("elapsed", time.Since(start)),
		)
		emit(update)
	}
	return nil
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
