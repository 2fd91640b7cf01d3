package controller

import (
	"context"
	"time"

	"surgitrack/internal/logging"
	"surgitrack/internal/notifications"
	"surgitrack/internal/pipeline"
	"surgitrack/internal/services"
	"surgitrack/internal/session"
)

const finishTimeout = 15 * time.Second

// logTransitions emits one lifecycle record per step whose status changed.
func (c *Controller) logTransitions(prev, next session.State) {
	if prev.ID != next.ID {
		return
	}
	ctx := services.WithSessionID(context.Background(), next.ID)
	for _, step := range next.Steps.List() {
		before := prev.Steps.Status(step.ID)
		if before == step.Status {
			continue
		}
		logger := logging.WithContext(logging.WithStage(ctx, string(step.ID)), c.logger)
		switch step.Status {
		case pipeline.StatusProcessing:
			logger.Info("stage started",
				logging.String(logging.FieldEventType, "stage_start"),
				logging.String("step", step.Name),
			)
		case pipeline.StatusCompleted:
			logger.Info("stage completed",
				logging.String(logging.FieldEventType, "stage_complete"),
				logging.String("step", step.Name),
			)
		case pipeline.StatusError:
			logger.Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.String("step", step.Name),
				logging.String("error_message", next.Error),
			)
		}
	}
}

// finish logs the outcome of a terminal session and hands it to the
// recorder and notifier. Their failures are logged only.
func (c *Controller) finish(state session.State) {
	ctx, cancel := context.WithTimeout(services.WithSessionID(context.WithoutCancel(c.root), state.ID), finishTimeout)
	defer cancel()
	logger := logging.WithContext(ctx, c.logger)

	event := notifications.EventSessionCompleted
	payload := notifications.Payload{"file": state.File.Name}
	if state.Done() {
		summary := state.Events.Summary()
		logger.Info("session completed",
			logging.String(logging.FieldEventType, "session_complete"),
			logging.File(state.File.Name),
			logging.JobID(state.JobID),
			logging.Int("events", summary.Count),
			logging.String("duration", summary.Duration),
			logging.Int("avg_confidence_pct", summary.AverageConfidencePercent),
		)
		payload["events"] = summary.Count
		payload["duration"] = summary.Duration
	} else {
		event = notifications.EventSessionFailed
		logger.Error("session failed",
			logging.String(logging.FieldEventType, "session_failure"),
			logging.File(state.File.Name),
			logging.String("error_message", state.Error),
		)
		payload["error"] = state.Error
	}

	if c.recorder != nil {
		if err := c.recorder.Record(ctx, state); err != nil {
			logger.Warn("failed to record session", logging.Error(err))
		}
	}
	if err := c.notifier.Publish(ctx, event, payload); err != nil {
		logger.Debug("session notification failed", logging.Error(err))
	}
}
