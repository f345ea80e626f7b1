// Package status merges the engine's push and poll status deliveries for a
// single job into one observed stream. The load-bearing invariants live
// here: events for other job ids are discarded, and polling stops at the
// first terminal status or after a hard timeout. Everything else (progress
// clamping, sticky terminal state) belongs to the controller.
package status

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kbscrape/scrape-cli/internal/model"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 5 * time.Minute
)

// Poller is the pull half of the transport: one status snapshot per call.
type Poller interface {
	GetJobStatus(ctx context.Context, id string) (*model.JobStatus, error)
}

// PushTransport is the push half: a subscription carrying updates for all
// jobs on the engine. Filtering by job id happens in the channel.
type PushTransport interface {
	Subscribe(ctx context.Context) (<-chan model.JobStatus, error)
}

// Option configures a Channel.
type Option func(*Channel)

// WithPollInterval overrides the poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Channel) {
		c.pollInterval = d
	}
}

// WithTimeout overrides the polling ceiling. After this duration without a
// terminal status the poll loop stops; no error is synthesized and the
// consumer simply receives no further poll-sourced updates.
func WithTimeout(d time.Duration) Option {
	return func(c *Channel) {
		c.timeout = d
	}
}

// Channel produces handles that track one job each.
type Channel struct {
	poller       Poller
	push         PushTransport
	pollInterval time.Duration
	timeout      time.Duration
}

// NewChannel creates a status channel factory over the given transports.
// push may be nil, in which case handles operate poll-only.
func NewChannel(poller Poller, push PushTransport, opts ...Option) *Channel {
	c := &Channel{
		poller:       poller,
		push:         push,
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Non-positive intervals would panic time.NewTicker; fall back to the
	// defaults instead of letting a bad option take the process down.
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	return c
}

// Handle is one open subscription for a single job id. Close is idempotent
// and guarantees no onUpdate invocation happens after it returns.
type Handle struct {
	jobID  string
	cancel context.CancelFunc

	stopPoll context.CancelFunc

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// Open starts tracking jobID. Every accepted status, from either transport,
// is handed to onUpdate from a single dispatch goroutine, so invocations
// never interleave. Updates carrying a different job id are discarded;
// matching updates are forwarded without dedup — the consumer must be
// idempotent.
func (c *Channel) Open(ctx context.Context, jobID string, onUpdate func(model.JobStatus)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	pollCtx, stopPoll := context.WithTimeout(ctx, c.timeout)

	h := &Handle{
		jobID:    jobID,
		cancel:   cancel,
		stopPoll: stopPoll,
	}

	updates := make(chan model.JobStatus, 16)

	// Push producer. A failed subscribe or a dropped connection degrades
	// the handle to poll-only; the poll loop keeps running regardless.
	if c.push != nil {
		go func() {
			events, err := c.push.Subscribe(ctx)
			if err != nil {
				zap.L().Debug("push subscribe failed, poll-only",
					zap.String("job_id", jobID), zap.Error(err))
				return
			}
			for ev := range events {
				select {
				case updates <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Poll producer. A failed poll is swallowed and retried next tick.
	go func() {
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
			}

			st, err := c.poller.GetJobStatus(pollCtx, jobID)
			if err != nil {
				zap.L().Debug("status poll failed, will retry",
					zap.String("job_id", jobID), zap.Error(err))
				continue
			}
			// Discard responses that resolve after close or timeout.
			select {
			case updates <- *st:
			case <-pollCtx.Done():
				return
			}
		}
	}()

	// Single consumer: the merge gate.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-updates:
				if st.JobID != jobID {
					continue
				}
				h.deliver(st, onUpdate)
				if st.Status.IsTerminal() {
					// Job is done: stop polling. The push subscription
					// stays open but nothing relevant arrives anymore.
					stopPoll()
				}
			}
		}
	}()

	return h
}

// deliver invokes onUpdate under the handle lock so Close can guarantee no
// callback runs after it returns.
func (h *Handle) deliver(st model.JobStatus, onUpdate func(model.JobStatus)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	onUpdate(st)
}

// Close stops all activity for the handle. Safe to call multiple times.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		h.stopPoll()
		h.cancel()
	})
}
