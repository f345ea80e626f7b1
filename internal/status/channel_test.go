package status

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbscrape/scrape-cli/internal/model"
)

// fakePoller returns scripted statuses and counts calls.
type fakePoller struct {
	mu       sync.Mutex
	statuses []model.JobStatus
	idx      int
	err      error
	calls    atomic.Int32
}

func (p *fakePoller) GetJobStatus(ctx context.Context, id string) (*model.JobStatus, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.statuses[p.idx]
	if p.idx < len(p.statuses)-1 {
		p.idx++
	}
	return &st, nil
}

// fakePush delivers a fixed script of push events.
type fakePush struct {
	events []model.JobStatus
}

func (f *fakePush) Subscribe(ctx context.Context) (<-chan model.JobStatus, error) {
	ch := make(chan model.JobStatus)
	go func() {
		defer close(ch)
		for _, ev := range f.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

type recorder struct {
	mu   sync.Mutex
	seen []model.JobStatus
}

func (r *recorder) onUpdate(st model.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, st)
}

func (r *recorder) snapshot() []model.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.JobStatus, len(r.seen))
	copy(out, r.seen)
	return out
}

func running(id string, progress int) model.JobStatus {
	return model.JobStatus{JobID: id, Status: model.StatusRunning, Progress: progress}
}

func TestChannel_FiltersOtherJobIDs(t *testing.T) {
	push := &fakePush{events: []model.JobStatus{
		running("other", 10),
		running("J1", 20),
		running("other", 30),
	}}
	poller := &fakePoller{statuses: []model.JobStatus{running("J1", 20)}}

	rec := &recorder{}
	ch := NewChannel(poller, push, WithPollInterval(time.Hour))
	h := ch.Open(context.Background(), "J1", rec.onUpdate)
	defer h.Close()

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)

	for _, st := range rec.snapshot() {
		assert.Equal(t, "J1", st.JobID)
	}
}

func TestChannel_TerminalStopsPolling(t *testing.T) {
	poller := &fakePoller{statuses: []model.JobStatus{
		{JobID: "J1", Status: model.StatusCompleted, Progress: 100},
	}}

	rec := &recorder{}
	ch := NewChannel(poller, nil, WithPollInterval(10*time.Millisecond))
	h := ch.Open(context.Background(), "J1", rec.onUpdate)
	defer h.Close()

	require.Eventually(t, func() bool {
		seen := rec.snapshot()
		return len(seen) > 0 && seen[0].Status == model.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	// Give the loop time to settle, then verify no further polls fire.
	time.Sleep(30 * time.Millisecond)
	before := poller.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, poller.calls.Load(), "poll timer still firing after terminal status")
}

func TestChannel_PollErrorsAreRetried(t *testing.T) {
	poller := &fakePoller{err: assert.AnError}

	rec := &recorder{}
	ch := NewChannel(poller, nil, WithPollInterval(5*time.Millisecond))
	h := ch.Open(context.Background(), "J1", rec.onUpdate)
	defer h.Close()

	require.Eventually(t, func() bool {
		return poller.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestChannel_ForwardsDuplicatesUnconditionally(t *testing.T) {
	push := &fakePush{events: []model.JobStatus{
		running("J1", 40),
		running("J1", 40),
	}}
	poller := &fakePoller{statuses: []model.JobStatus{running("J1", 40)}}

	rec := &recorder{}
	ch := NewChannel(poller, push, WithPollInterval(time.Hour))
	h := ch.Open(context.Background(), "J1", rec.onUpdate)
	defer h.Close()

	// No dedup at the channel layer: both push copies arrive.
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestChannel_CloseIsIdempotentAndStopsDelivery(t *testing.T) {
	poller := &fakePoller{statuses: []model.JobStatus{running("J1", 10)}}

	rec := &recorder{}
	ch := NewChannel(poller, nil, WithPollInterval(5*time.Millisecond))
	h := ch.Open(context.Background(), "J1", rec.onUpdate)

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) > 0
	}, time.Second, 5*time.Millisecond)

	h.Close()
	h.Close()

	count := len(rec.snapshot())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, len(rec.snapshot()), "updates delivered after Close")
}

func TestChannel_TimeoutCancelsPolling(t *testing.T) {
	poller := &fakePoller{statuses: []model.JobStatus{running("J1", 10)}}

	rec := &recorder{}
	ch := NewChannel(poller, nil,
		WithPollInterval(5*time.Millisecond),
		WithTimeout(30*time.Millisecond),
	)
	h := ch.Open(context.Background(), "J1", rec.onUpdate)
	defer h.Close()

	time.Sleep(60 * time.Millisecond)
	before := poller.calls.Load()
	time.Sleep(50 * time.Millisecond)
	// No error is synthesized; polling just stops.
	assert.Equal(t, before, poller.calls.Load(), "poll timer still firing after timeout ceiling")
}

func TestChannel_PushFailureDegradesToPollOnly(t *testing.T) {
	poller := &fakePoller{statuses: []model.JobStatus{running("J1", 25)}}

	rec := &recorder{}
	ch := NewChannel(poller, failingPush{}, WithPollInterval(5*time.Millisecond))
	h := ch.Open(context.Background(), "J1", rec.onUpdate)
	defer h.Close()

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) > 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 25, rec.snapshot()[0].Progress)
}

type failingPush struct{}

func (failingPush) Subscribe(ctx context.Context) (<-chan model.JobStatus, error) {
	return nil, assert.AnError
}

func TestNewChannel_NonPositiveDurationsFallBack(t *testing.T) {
	ch := NewChannel(&fakePoller{}, nil, WithPollInterval(0), WithTimeout(-time.Second))
	assert.Equal(t, defaultPollInterval, ch.pollInterval)
	assert.Equal(t, defaultTimeout, ch.timeout)
}

func TestChannel_OpenWithZeroIntervalDoesNotPanic(t *testing.T) {
	poller := &fakePoller{statuses: []model.JobStatus{running("J1", 10)}}
	ch := NewChannel(poller, nil, WithPollInterval(0))

	h := ch.Open(context.Background(), "J1", func(model.JobStatus) {})
	h.Close()
}
