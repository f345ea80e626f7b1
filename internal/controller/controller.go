// Package controller orchestrates one scrape job at a time: submission,
// status tracking through the merged push/poll channel, the one-shot results
// fetch on completion, and history refreshes on either terminal outcome.
package controller

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kbscrape/scrape-cli/internal/model"
	"github.com/kbscrape/scrape-cli/internal/status"
	"github.com/kbscrape/scrape-cli/pkg/scrapeapi"
)

// genericErrorMessage is shown when the engine reports an error status with
// no message of its own.
const genericErrorMessage = "scraping job failed"

// Engine is the slice of the API the controller needs.
type Engine interface {
	CreateJob(ctx context.Context, cfg model.JobConfig) (*scrapeapi.CreateJobResponse, error)
	GetJobResults(ctx context.Context, id string) (*model.JobResult, error)
}

// HistoryRefresher re-reads the recent-jobs cache after a job ends.
type HistoryRefresher interface {
	Refresh(ctx context.Context) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithZeroProgressOnError selects what happens to the progress bar when the
// engine reports an error: true shows the engine's (typically zero) value,
// false freezes the last known progress. The engine's own UI zeroes it, so
// that is the default.
func WithZeroProgressOnError(zero bool) Option {
	return func(c *Controller) {
		c.zeroOnError = zero
	}
}

// Controller tracks at most one active job. It is the single idempotent,
// order-tolerant funnel for status updates from both transports.
type Controller struct {
	engine      Engine
	channel     *status.Channel
	history     HistoryRefresher
	sink        func(model.JobStatus)
	zeroOnError bool

	mu           sync.Mutex
	jobID        string
	handle       *status.Handle
	lastStatus   model.Status
	lastProgress int
	terminal     bool
	results      *model.JobResult
	done         chan struct{}
}

// New creates a controller. sink receives each distinct status the UI
// should display; history may be nil.
func New(engine Engine, channel *status.Channel, history HistoryRefresher, sink func(model.JobStatus), opts ...Option) *Controller {
	c := &Controller{
		engine:      engine,
		channel:     channel,
		history:     history,
		sink:        sink,
		zeroOnError: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit creates the job on the engine and starts tracking it. Any
// previously tracked job's channel is closed first; the controller owns
// exactly one active job. A local starting status is synthesized before any
// server-sourced update so the consumer never sees a blank state.
func (c *Controller) Submit(ctx context.Context, cfg model.JobConfig) (string, error) {
	c.detach()

	resp, err := c.engine.CreateJob(ctx, cfg)
	if err != nil {
		return "", eris.Wrap(err, "controller: submit job")
	}
	if !resp.Success {
		if resp.Error != "" {
			return "", eris.Errorf("controller: job rejected: %s", resp.Error)
		}
		return "", eris.New("controller: job rejected")
	}

	c.mu.Lock()
	c.jobID = resp.JobID
	c.lastStatus = ""
	c.lastProgress = 0
	c.terminal = false
	c.results = nil
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.onStatus(ctx, model.JobStatus{
		JobID:    resp.JobID,
		Status:   model.StatusStarting,
		Message:  "Submitting job...",
		Progress: 0,
	})

	c.mu.Lock()
	c.handle = c.channel.Open(ctx, resp.JobID, func(st model.JobStatus) {
		c.onStatus(ctx, st)
	})
	c.mu.Unlock()

	return resp.JobID, nil
}

// Track attaches to an already-submitted job without creating one, for
// resuming observation of a job id obtained elsewhere. The same single
// active job rule applies.
func (c *Controller) Track(ctx context.Context, jobID string) {
	c.detach()

	c.mu.Lock()
	c.jobID = jobID
	c.lastStatus = ""
	c.lastProgress = 0
	c.terminal = false
	c.results = nil
	c.done = make(chan struct{})
	c.handle = c.channel.Open(ctx, jobID, func(st model.JobStatus) {
		c.onStatus(ctx, st)
	})
	c.mu.Unlock()
}

// onStatus applies the controller-side invariants: stale job ids are
// dropped, terminal state is sticky, progress is clamped to [0,100] and
// never decreases while the job is active, and duplicate snapshots are not
// re-emitted.
func (c *Controller) onStatus(ctx context.Context, st model.JobStatus) {
	c.mu.Lock()

	if st.JobID != c.jobID || c.terminal {
		c.mu.Unlock()
		return
	}

	progress := clamp(st.Progress)
	switch st.Status {
	case model.StatusCompleted:
		progress = 100
	case model.StatusError:
		if c.zeroOnError {
			progress = clamp(st.Progress)
		} else {
			progress = c.lastProgress
		}
		if st.Message == "" {
			st.Message = genericErrorMessage
		}
	default:
		if progress < c.lastProgress {
			progress = c.lastProgress
		}
	}

	if st.Status == c.lastStatus && progress == c.lastProgress {
		c.mu.Unlock()
		return
	}

	st.Progress = progress
	c.lastStatus = st.Status
	c.lastProgress = progress
	isTerminal := st.Status.IsTerminal()
	if isTerminal {
		c.terminal = true
	}
	done := c.done
	c.mu.Unlock()

	if c.sink != nil {
		c.sink(st)
	}

	if !isTerminal {
		return
	}

	if st.Status == model.StatusCompleted {
		if _, err := c.FetchResults(ctx, st.JobID); err != nil {
			zap.L().Warn("results fetch failed", zap.String("job_id", st.JobID), zap.Error(err))
		}
	}
	c.refreshHistory(ctx)

	if done != nil {
		close(done)
	}
}

// FetchResults performs the one-shot results request. Failure is surfaced
// to the caller but never alters job state; the job is already terminal.
func (c *Controller) FetchResults(ctx context.Context, jobID string) (*model.JobResult, error) {
	res, err := c.engine.GetJobResults(ctx, jobID)
	if err != nil {
		return nil, eris.Wrap(err, "controller: fetch results")
	}
	c.mu.Lock()
	if jobID == c.jobID {
		c.results = res
	}
	c.mu.Unlock()
	return res, nil
}

func (c *Controller) refreshHistory(ctx context.Context) {
	if c.history == nil {
		return
	}
	if err := c.history.Refresh(ctx); err != nil {
		zap.L().Warn("history refresh failed", zap.Error(err))
	}
}

// Results returns the fetched results for the active job, if any.
func (c *Controller) Results() *model.JobResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}

// Done returns a channel closed once the active job reaches a terminal
// status or is superseded by another Submit/Track. Returns nil before the
// first Submit and after Close.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Close stops tracking the active job and releases any Done waiters.
func (c *Controller) Close() {
	c.detach()
}

// detach stops tracking the current job and unblocks anyone waiting on its
// Done channel. The handle is closed first, and outside the controller lock:
// status callbacks run under the handle's own lock and take the controller
// lock, so closing under it would invert the two. Once Close returns no
// further callback can fire, which makes the terminal check below
// race-free: either the job already ended (onStatus closed done) or it never
// will on this handle (we close it here).
func (c *Controller) detach() {
	c.mu.Lock()
	handle := c.handle
	c.handle = nil
	c.mu.Unlock()

	if handle != nil {
		handle.Close()
	}

	c.mu.Lock()
	if c.done != nil && !c.terminal {
		close(c.done)
	}
	c.done = nil
	c.mu.Unlock()
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
