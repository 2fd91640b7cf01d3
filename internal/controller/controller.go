package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"surgitrack/internal/config"
	"surgitrack/internal/logging"
	"surgitrack/internal/notifications"
	"surgitrack/internal/preflight"
	"surgitrack/internal/progress"
	"surgitrack/internal/services"
	"surgitrack/internal/session"
)

var (
	ErrNoFile        = session.ErrNoFile
	ErrSessionActive = session.ErrActive
	ErrSessionReset  = errors.New("session was reset")
	ErrClosed        = errors.New("controller closed")
)

// Client performs the two remote calls of a submission.
type Client interface {
	UploadFile(ctx context.Context, path string) (string, error)
	StartProcessing(ctx context.Context, fileKey string) (string, error)
}

// Recorder persists terminal sessions.
type Recorder interface {
	Record(ctx context.Context, state session.State) error
}

// Options configures a Controller. Client and Source are required.
type Options struct {
	Client   Client
	Source   progress.Source
	Logger   *slog.Logger
	Recorder Recorder
	Notifier notifications.Service
	Limits   config.Upload
	NewID    func() string
}

// Controller drives a single submission session.
type Controller struct {
	client   Client
	source   progress.Source
	logger   *slog.Logger
	recorder Recorder
	notifier notifications.Service
	limits   config.Upload
	newID    func() string

	root       context.Context
	rootCancel context.CancelFunc

	mu         sync.Mutex
	state      session.State
	sessCtx    context.Context
	sessCancel context.CancelFunc
	changed    chan struct{}
	subs       map[uint64]chan session.State
	nextSub    uint64
	closed     bool

	wg sync.WaitGroup
}

// New builds a controller holding a fresh session.
func New(opts Options) (*Controller, error) {
	if opts.Client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "controller", "init", "analysis client is required", nil)
	}
	if opts.Source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "controller", "init", "progress source is required", nil)
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}

	root, rootCancel := context.WithCancel(context.Background())
	sessCtx, sessCancel := context.WithCancel(root)
	c := &Controller{
		client:     opts.Client,
		source:     opts.Source,
		logger:     logging.NewComponentLogger(opts.Logger, "controller"),
		recorder:   opts.Recorder,
		notifier:   notifier,
		limits:     opts.Limits,
		newID:      newID,
		root:       root,
		rootCancel: rootCancel,
		state:      session.New(newID()),
		sessCtx:    sessCtx,
		sessCancel: sessCancel,
		changed:    make(chan struct{}),
		subs:       make(map[uint64]chan session.State),
	}
	return c, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel receiving a snapshot after every transition
// and a function that stops delivery. Slow readers only see the latest
// snapshot. The channel is closed by cancel or Close.
func (c *Controller) Subscribe() (<-chan session.State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan session.State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Wait blocks until the session is terminal and no submit call is in
// flight, or ctx is done.
func (c *Controller) Wait(ctx context.Context) (session.State, error) {
	for {
		c.mu.Lock()
		state := c.state
		changed := c.changed
		closed := c.closed
		c.mu.Unlock()

		if state.Terminal() && !state.Loading {
			return state, nil
		}
		if closed {
			return state, ErrClosed
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-changed:
		}
	}
}

// Select records the file to submit.
func (c *Controller) Select(path string) error {
	file, err := c.inspect(path)
	if err != nil {
		return err
	}
	_, err = c.commit(c.generation(), session.SelectFile{File: file})
	return err
}

// inspect stats path and applies the upload limits.
func (c *Controller) inspect(path string) (session.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return session.File{}, ErrNoFile
	}
	info, err := os.Stat(path)
	if err != nil {
		return session.File{}, services.Wrap(services.ErrValidation, "upload", "select file", "cannot read file", err)
	}
	if info.IsDir() {
		return session.File{}, services.Wrap(services.ErrValidation, "upload", "select file", fmt.Sprintf("%s is a directory", path), nil)
	}
	if err := preflight.CheckUpload(c.limits, info.Name(), info.Size()); err != nil {
		return session.File{}, err
	}
	return session.NewFile(path, info.Size(), mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))), nil
}

// Reset cancels any in-flight progress and starts a new empty session.
func (c *Controller) Reset() session.State {
	c.mu.Lock()
	prev := c.state
	c.sessCancel()
	c.sessCtx, c.sessCancel = context.WithCancel(c.root)
	next, _ := session.Apply(prev, prev.Generation, session.Reset{ID: c.newID()})
	c.state = next
	c.broadcastLocked(next)
	c.mu.Unlock()

	c.logger.Info("session reset",
		logging.String(logging.FieldEventType, "session_reset"),
		logging.String("previous_session", prev.ID),
		logging.String(logging.FieldSessionID, next.ID),
		logging.Uint64("generation", next.Generation),
	)
	return next
}

// Close cancels all progress, waits for it and for pending history and
// notification hand-offs to stop, and closes subscriber channels. The
// controller rejects further submissions.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.rootCancel()
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	close(c.changed)
	c.changed = make(chan struct{})
	return nil
}

func (c *Controller) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Generation
}

// commit applies action under the lock and publishes the result.
func (c *Controller) commit(generation uint64, action session.Action) (session.State, error) {
	c.mu.Lock()
	prev := c.state
	next, err := session.Apply(prev, generation, action)
	if err != nil {
		c.mu.Unlock()
		return prev, err
	}
	c.state = next
	c.broadcastLocked(next)
	finishing := !prev.Terminal() && next.Terminal()
	async := finishing && !c.closed
	if async {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	c.logTransitions(prev, next)
	switch {
	case async:
		go func() {
			defer c.wg.Done()
			c.finish(next)
		}()
	case finishing:
		c.finish(next)
	}
	return next, nil
}

func (c *Controller) broadcastLocked(state session.State) {
	close(c.changed)
	c.changed = make(chan struct{})
	for _, ch := range c.subs {
		select {
		case ch <- state:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}
