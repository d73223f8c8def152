package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/qepting91/undercurrent/internal/config"
	"github.com/qepting91/undercurrent/internal/domain"
)

// Observer receives a session snapshot after every visible state change.
type Observer func(domain.Session)

// Streamer runs the remote analysis phase over an acquired dataset.
// *analysis.StreamConsumer is the production implementation.
type Streamer interface {
	Run(ctx context.Context, result *domain.AcquisitionResult, subreddits []string, observe func(domain.ProgressEvent)) (json.RawMessage, error)
}

// Controller owns the analysis session state machine: idle -> loading ->
// done|error, back to idle on cancel or reset. At most one run is live;
// starting a new one cancels and mutes the previous run before it proceeds.
type Controller struct {
	source   domain.Source
	stream   Streamer
	store    *SnapshotStore
	weight   float64
	logger   *slog.Logger
	observer Observer

	mu     sync.Mutex
	state  domain.Session
	cancel context.CancelFunc
	// gen identifies the live run; callbacks carrying a stale gen are
	// dropped, so a superseded run can never mutate visible state.
	gen uint64
}

func NewController(source domain.Source, stream Streamer, store *SnapshotStore, cfg config.Config, logger *slog.Logger, observer Observer) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	w := cfg.AcquisitionWeight
	if w <= 0 || w >= 1 {
		w = 0.3
	}
	return &Controller{
		source:   source,
		stream:   stream,
		store:    store,
		weight:   w,
		logger:   logger,
		observer: observer,
		state:    domain.Session{Status: domain.StatusIdle},
	}
}

// Session returns a snapshot of the current state.
func (c *Controller) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start launches a new run, superseding any run still in flight. It returns
// immediately; progress and the terminal state arrive via the observer.
func (c *Controller) Start(req domain.AnalysisRequest) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = domain.Session{Status: domain.StatusLoading, Stage: domain.StageStarted}
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)

	go c.run(ctx, gen, req)
}

// Cancel aborts the live run, if any, and returns the session to idle.
// A cancelled run surfaces nothing.
func (c *Controller) Cancel() {
	c.toIdle()
}

// Reset clears all visible state back to idle, cancelling any live run.
func (c *Controller) Reset() {
	c.toIdle()
}

func (c *Controller) toIdle() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.state = domain.Session{Status: domain.StatusIdle}
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)
}

// LoadPrecomputed installs an already-computed result, skipping both the
// acquisition and remote phases. Any live run is superseded first.
func (c *Controller) LoadPrecomputed(payload json.RawMessage) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.state = domain.Session{
		Status:   domain.StatusDone,
		Progress: 1,
		Stage:    domain.StageComplete,
		Message:  "Loaded precomputed analysis",
		Result:   payload,
	}
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)
}

// LoadCached serves a still-fresh snapshot for the requested namespaces.
// Returns false when nothing cached, leaving the state untouched.
func (c *Controller) LoadCached(subreddits []string) bool {
	if c.store == nil {
		return false
	}
	payload, ok := c.store.Load(Key(subreddits))
	if !ok {
		return false
	}
	c.LoadPrecomputed(payload)
	return true
}

func (c *Controller) run(ctx context.Context, gen uint64, req domain.AnalysisRequest) {
	result, err := c.source.Fetch(ctx, req, func(p float64, msg string) {
		c.update(gen, func(s *domain.Session) {
			s.Stage = domain.StageFetching
			s.Message = msg
			raise(s, p*c.weight)
		})
	})
	if err != nil {
		c.fail(gen, err)
		return
	}

	payload, err := c.stream.Run(ctx, result, req.Subreddits, func(ev domain.ProgressEvent) {
		c.update(gen, func(s *domain.Session) {
			if ev.Stage != "" && ev.Stage != domain.StageResults {
				s.Stage = ev.Stage
			}
			if ev.Message != "" {
				s.Message = ev.Message
			}
			if ev.Progress > 0 {
				raise(s, c.weight+ev.Progress*(1-c.weight))
			}
		})
	})
	if err != nil {
		c.fail(gen, err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	c.state = domain.Session{
		Status:   domain.StatusDone,
		Progress: 1,
		Stage:    domain.StageComplete,
		Message:  "Analysis complete",
		Result:   payload,
	}
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)

	if c.store != nil {
		c.store.Save(Key(req.Subreddits), payload)
	}
}

func (c *Controller) update(gen uint64, mutate func(*domain.Session)) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	mutate(&c.state)
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Controller) fail(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	if errors.Is(err, context.Canceled) {
		// Cancellation is not a failure: quietly back to idle.
		c.state = domain.Session{Status: domain.StatusIdle}
	} else {
		c.logger.Error("analysis run failed", "err", err)
		c.state = domain.Session{
			Status:   domain.StatusError,
			Progress: c.state.Progress,
			Stage:    domain.StageError,
			Message:  err.Error(),
			Err:      err,
		}
	}
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Controller) notify(s domain.Session) {
	if c.observer != nil {
		c.observer(s)
	}
}

// raise moves progress forward only; it never exceeds 1.
func raise(s *domain.Session, p float64) {
	if p > 1 {
		p = 1
	}
	if p > s.Progress {
		s.Progress = p
	}
}
