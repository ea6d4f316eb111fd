// Package recording implements the session state machine that decides when
// sensor samples are written to disk.
package recording

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/fakeyudi/gaslog/internal/sessionlog"
	"github.com/fakeyudi/gaslog/internal/state"
)

// DefaultMetric is the header of the value column.
const DefaultMetric = "O2 Level"

// ErrClosed is returned by Start once the controller has been closed.
var ErrClosed = errors.New("recording: controller closed")

// maxNameAttempts bounds the suffixes tried when two sessions start within
// the same second.
const maxNameAttempts = 100

// Observer receives notifications about controller activity.
type Observer interface {
	Transition(action string, applied bool)
	RowAppended()
	RecordingState(st state.Status)
}

// Options configures a Controller.
type Options struct {
	Dir      string // directory holding session files
	Metric   string // value column header; DefaultMetric when empty
	Clock    clockwork.Clock
	History  HistoryStore // optional; persisted on every stop
	Logger   *slog.Logger
	Observer Observer // optional
}

// Controller is the recording state machine. Every transition and every row
// append runs under one mutex, so once Stop returns no further row can be
// written to the stopped session's file.
type Controller struct {
	mu     sync.Mutex
	status state.Status // Idle, Active or Paused
	writer *sessionlog.Writer
	closed bool

	store   *state.Store
	dir     string
	metric  string
	clock   clockwork.Clock
	history HistoryStore
	logger  *slog.Logger
	obs     Observer
}

// NewController returns an Idle controller that records into opts.Dir,
// creating the directory if needed.
func NewController(store *state.Store, opts Options) (*Controller, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	c := &Controller{
		store:   store,
		dir:     opts.Dir,
		metric:  opts.Metric,
		clock:   opts.Clock,
		history: opts.History,
		logger:  opts.Logger,
		obs:     opts.Observer,
	}
	if c.metric == "" {
		c.metric = DefaultMetric
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.obs == nil {
		c.obs = nopObserver{}
	}
	c.obs.RecordingState(state.Idle)
	return c, nil
}

// State returns the controller's live state.
func (c *Controller) State() state.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Dispatch runs the transition named by a.
func (c *Controller) Dispatch(a Action) (bool, error) {
	switch a {
	case ActionStart:
		return c.Start()
	case ActionPause:
		return c.Pause(), nil
	case ActionResume:
		return c.Resume(), nil
	case ActionStop:
		return c.Stop()
	}
	return false, nil
}

// Start opens a new session and creates its file with the header row.
// It is a no-op unless the controller is Idle, and fails with ErrClosed
// after Close.
func (c *Controller) Start() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.obs.Transition(string(ActionStart), false)
		return false, ErrClosed
	}
	if c.status != state.Idle {
		c.obs.Transition(string(ActionStart), false)
		return false, nil
	}

	now := c.clock.Now()
	id, path, w, err := c.create(now.Unix())
	if err != nil {
		return false, fmt.Errorf("start session: %w", err)
	}

	c.writer = w
	c.setStatus(state.Active)
	c.store.BeginSession(state.Session{ID: id, Status: state.Active, CreatedAt: now, Path: path})
	c.obs.Transition(string(ActionStart), true)
	c.logger.Info("Recording started", "session", id, "path", path)
	return true, nil
}

// Pause suspends appends. It is a no-op unless the controller is Active.
func (c *Controller) Pause() bool {
	return c.move(ActionPause, state.Active, state.Paused)
}

// Resume re-enables appends. It is a no-op unless the controller is Paused.
func (c *Controller) Resume() bool {
	return c.move(ActionResume, state.Paused, state.Active)
}

// Stop closes the open session, archives it into the history and persists
// the history. It is a no-op when Idle. The transition always happens; the
// returned error reports a failed close or history save.
func (c *Controller) Stop() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop()
}

// Close stops the open session, if any, and refuses every later Start,
// Pause and Resume. Stop after Close stays a no-op.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	_, err := c.stop()
	return err
}

func (c *Controller) stop() (bool, error) {
	if c.status == state.Idle {
		c.obs.Transition(string(ActionStop), false)
		return false, nil
	}

	closeErr := c.writer.Close()
	c.writer = nil
	c.setStatus(state.Idle)

	done, _ := c.store.ArchiveCurrent()
	c.obs.Transition(string(ActionStop), true)
	c.logger.Info("Recording stopped", "session", done.ID)

	var saveErr error
	if c.history != nil {
		saveErr = c.history.Save(c.store.History())
	}
	if err := errors.Join(closeErr, saveErr); err != nil {
		return true, fmt.Errorf("stop session %s: %w", done.ID, err)
	}
	return true, nil
}

// Append writes smp to the open session's file if, and only if, the
// controller is Active. It reports whether a row was written.
func (c *Controller) Append(smp state.Sample) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != state.Active {
		return false, nil
	}
	if err := c.writer.Append(smp.Timestamp, smp.Value); err != nil {
		return false, err
	}
	c.obs.RowAppended()
	return true, nil
}

func (c *Controller) move(a Action, from, to state.Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.status != from {
		c.obs.Transition(string(a), false)
		return false
	}
	c.setStatus(to)
	c.store.SetCurrentStatus(to)
	c.obs.Transition(string(a), true)
	if sess, ok := c.store.CurrentSession(); ok {
		c.logger.Info("Recording "+to.String(), "session", sess.ID)
	}
	return true
}

func (c *Controller) setStatus(st state.Status) {
	c.status = st
	c.obs.RecordingState(st)
}

// create allocates a file name derived from unix and creates the file. When
// the name is taken it tries data_<unix>_1.csv, data_<unix>_2.csv, ...
func (c *Controller) create(unix int64) (id, path string, w *sessionlog.Writer, err error) {
	for n := 0; n < maxNameAttempts; n++ {
		id = fmt.Sprintf("data_%d.csv", unix)
		if n > 0 {
			id = fmt.Sprintf("data_%d_%d.csv", unix, n)
		}
		path = filepath.Join(c.dir, id)
		w, err = sessionlog.Create(path, c.metric)
		if err == nil {
			return id, path, w, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", nil, err
		}
	}
	return "", "", nil, fmt.Errorf("no free file name for timestamp %d", unix)
}

type nopObserver struct{}

func (nopObserver) Transition(string, bool)     {}
func (nopObserver) RowAppended()                {}
func (nopObserver) RecordingState(state.Status) {}
