package controller

import (
	"context"
	"errors"

	"surgitrack/internal/analysisapi"
	"surgitrack/internal/logging"
	"surgitrack/internal/progress"
	"surgitrack/internal/services"
	"surgitrack/internal/session"
)

// SubmitFile uploads the selected file and, on success, requests processing
// before returning. Failures are stored in the session state and returned.
func (c *Controller) SubmitFile(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	gen := c.generation()
	state, err := c.commit(gen, session.UploadStarted{})
	if err != nil {
		return err
	}
	return c.upload(ctx, gen, state)
}

// Submit selects path and marks its upload started in one transition, then
// runs the upload and processing request in the background. The returned
// state already shows the upload in flight; a concurrent caller that loses
// the race gets ErrSessionActive. The background work stops on Reset, Close
// or when ctx is done.
func (c *Controller) Submit(ctx context.Context, path string) (session.State, error) {
	file, err := c.inspect(path)
	if err != nil {
		return session.State{}, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return session.State{}, ErrClosed
	}
	prev := c.state
	gen := prev.Generation
	selected, err := session.Apply(prev, gen, session.SelectFile{File: file})
	if err != nil {
		c.mu.Unlock()
		return prev, err
	}
	next, err := session.Apply(selected, gen, session.UploadStarted{})
	if err != nil {
		c.mu.Unlock()
		return prev, err
	}
	c.state = next
	c.broadcastLocked(next)
	runCtx, cancel := context.WithCancel(c.sessCtx)
	c.wg.Add(1)
	c.mu.Unlock()

	c.logTransitions(prev, next)
	stop := context.AfterFunc(ctx, cancel)
	go func() {
		defer c.wg.Done()
		defer cancel()
		defer stop()
		if err := c.upload(runCtx, gen, next); err != nil {
			logging.WithContext(services.WithSessionID(runCtx, next.ID), c.logger).Debug("submission ended with error", logging.Error(err))
		}
	}()
	return next, nil
}

// upload runs the remote calls for a session whose upload was just marked
// started under gen.
func (c *Controller) upload(ctx context.Context, gen uint64, state session.State) error {
	defer func() {
		_, _ = c.commit(gen, session.Settled{})
	}()

	ctx = services.WithSessionID(ctx, state.ID)
	fileKey, err := c.client.UploadFile(ctx, state.File.Path)
	if err != nil {
		if _, cerr := c.commit(gen, session.UploadFailed{Cause: analysisapi.Cause(err)}); errors.Is(cerr, session.ErrStale) {
			return ErrSessionReset
		}
		return err
	}
	if _, err := c.commit(gen, session.UploadSucceeded{FileKey: fileKey}); err != nil {
		return stale(err)
	}
	return c.startProcessing(ctx, gen, fileKey)
}

// StartProcessing requests processing of an uploaded file and starts the
// progress source for the returned job.
func (c *Controller) StartProcessing(ctx context.Context, fileKey string) error {
	if c.isClosed() {
		return ErrClosed
	}
	state := c.Snapshot()
	return c.startProcessing(services.WithSessionID(ctx, state.ID), state.Generation, fileKey)
}

func (c *Controller) startProcessing(ctx context.Context, gen uint64, fileKey string) error {
	if _, err := c.commit(gen, session.ProcessingStarted{}); err != nil {
		return stale(err)
	}
	jobID, err := c.client.StartProcessing(ctx, fileKey)
	if err != nil {
		if _, cerr := c.commit(gen, session.ProcessingFailed{Cause: analysisapi.Cause(err)}); errors.Is(cerr, session.ErrStale) {
			return ErrSessionReset
		}
		return err
	}
	if _, err := c.commit(gen, session.ProcessingAccepted{JobID: jobID}); err != nil {
		return stale(err)
	}
	return c.launch(gen, jobID)
}

// launch runs the progress source under the session context captured for
// gen. Ticks from a reset session are dropped by the reducer.
func (c *Controller) launch(gen uint64, jobID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.Generation != gen {
		c.mu.Unlock()
		return ErrSessionReset
	}
	sessionID := c.state.ID
	ctx := services.WithSessionID(c.sessCtx, sessionID)
	c.wg.Add(1)
	c.mu.Unlock()

	logger := logging.WithContext(ctx, c.logger).With(
		logging.JobID(jobID),
		logging.String("source", c.source.Name()),
	)
	logger.Debug("progress source started")

	go func() {
		defer c.wg.Done()
		err := c.source.Run(ctx, jobID, func(update progress.Update) {
			if _, err := c.commit(gen, session.StageTick{Tick: update.Tick, Events: update.Events}); err != nil {
				logger.Debug("progress tick dropped", logging.Int("tick", update.Tick), logging.Error(err))
			}
		})
		switch {
		case err == nil:
			logger.Debug("progress source finished")
		case ctx.Err() != nil:
			logger.Debug("progress source cancelled")
		default:
			if _, cerr := c.commit(gen, session.ProcessingFailed{Cause: analysisapi.Cause(err)}); cerr != nil {
				logger.Debug("progress failure dropped", logging.Error(cerr))
			}
		}
	}()
	return nil
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func stale(err error) error {
	if errors.Is(err, session.ErrStale) {
		return ErrSessionReset
	}
	return err
}
