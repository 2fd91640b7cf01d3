package progress

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"surgitrack/internal/analysisapi"
	"surgitrack/internal/logging"
	"surgitrack/internal/services"
	"surgitrack/internal/timeline"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultFPS          = 15
)

// StatusFetcher looks up a remote job.
type StatusFetcher interface {
	JobStatus(ctx context.Context, jobID string) (analysisapi.JobStatus, error)
}

// Polling queries the job status endpoint at a fixed interval and emits the
// ticks implied by each answer.
type Polling struct {
	fetcher  StatusFetcher
	interval time.Duration
	fps      float64
	logger   *slog.Logger
}

// PollingOptions configures a Polling source.
type PollingOptions struct {
	Interval time.Duration
	FPS      float64
	Logger   *slog.Logger
}

// NewPolling builds a status-polling source.
func NewPolling(fetcher StatusFetcher, opts PollingOptions) *Polling {
	interval := orDefault(opts.Interval, DefaultPollInterval)
	fps := opts.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Polling{
		fetcher:  fetcher,
		interval: interval,
		fps:      fps,
		logger:   logging.NewComponentLogger(logger, "progress-polling"),
	}
}

// Name identifies the source in logs.
func (p *Polling) Name() string { return string(ModePolling) }

// Run polls until the job completes or fails. Fetch errors end the run;
// requests are never retried.
func (p *Polling) Run(ctx context.Context, jobID string, emit Emit) error {
	if strings.TrimSpace(jobID) == "" {
		return services.Wrap(services.ErrValidation, "status", "poll job", "service returned no job id", nil)
	}
	logger := logging.WithContext(ctx, p.logger).With(logging.JobID(jobID))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	emitted := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := p.fetcher.JobStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		state := status.State()
		logger.Debug("job status", logging.String("status", string(state)), logging.Int("emitted", emitted))

		if state == analysisapi.JobFailed {
			msg := strings.TrimSpace(status.Error)
			if msg == "" {
				msg = "remote job failed"
			}
			return services.Wrap(services.ErrRemoteStatus, "status", "poll job", "", errors.New(msg))
		}

		reached := ticksFor(state)
		var events timeline.Timeline
		if reached == FinalTick {
			events, err = p.timelineFrom(status.Result)
			if err != nil {
				return services.Wrap(services.ErrDecode, "status", "build timeline", "invalid job result", err)
			}
		}
		for emitted < reached {
			emitted++
			update := Update{Tick: emitted}
			if emitted == FinalTick {
				update.Events = events
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			emit(update)
		}
		if emitted == FinalTick {
			return nil
		}
	}
}

// ticksFor returns how many stage ticks a remote state implies.
func ticksFor(state analysisapi.JobState) int {
	switch state {
	case analysisapi.JobDetecting:
		return 1
	case analysisapi.JobTracking:
		return 2
	case analysisapi.JobCompleted:
		return FinalTick
	default:
		return 0
	}
}

func (p *Polling) timelineFrom(result *analysisapi.JobResult) (timeline.Timeline, error) {
	if result == nil {
		return timeline.Timeline{}, nil
	}
	if len(result.Events) > 0 {
		return timeline.New(result.Events)
	}
	fps := result.FPS
	if fps <= 0 {
		fps = p.fps
	}
	return timeline.FromTransitions(result.Transitions, fps)
}
