// Package tracking reconciles the asynchronous push-event stream for one
// backend job into a typed stage machine for display. Events may arrive
// late or duplicated; the tracker applies a monotonic percent guard and
// ignores everything after a terminal stage.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adpulse/dashcore/internal/core/domain"
	"github.com/adpulse/dashcore/internal/infra/stream"
	"github.com/adpulse/dashcore/internal/metrics"
)

// ResultsFetcher retrieves the final job payload after completion. The
// payload is opaque to the tracker and passed through to the caller.
type ResultsFetcher interface {
	Results(ctx context.Context, jobID string) (json.RawMessage, error)
}

// Callbacks are invoked from the tracker's event loop. They must not call
// back into the tracker.
type Callbacks struct {
	// OnTransition fires on every applied stage change, including
	// generating → generating progress updates.
	OnTransition func(Transition)

	// OnResult fires exactly once, after the completion fetch. A fetch
	// failure is reported here; the tracker stays completed either way.
	OnResult func(jobID string, result json.RawMessage, err error)
}

// Tracker follows one job id on the push channel.
type Tracker struct {
	jobID   string
	ownerID string
	source  stream.Source
	fetcher ResultsFetcher
	cb      Callbacks
	log     *slog.Logger

	mu        sync.Mutex
	stage     Stage
	percent   int
	message   string
	cancelled bool
	sub       stream.Subscription
	done      chan struct{}
}

// NewTracker creates a tracker in the idle stage. Nothing is subscribed
// until Start.
func NewTracker(jobID, ownerID string, source stream.Source, fetcher ResultsFetcher, cb Callbacks) *Tracker {
	return &Tracker{
		jobID:   jobID,
		ownerID: ownerID,
		source:  source,
		fetcher: fetcher,
		cb:      cb,
		log:     slog.Default().With("job_id", jobID),
		stage:   domain.JobStageIdle,
		done:    make(chan struct{}),
	}
}

// Start subscribes to the job's topic and moves the tracker to generating.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return fmt.Errorf("tracker for job %s is cancelled", t.jobID)
	}
	if t.stage != domain.JobStageIdle {
		t.mu.Unlock()
		return fmt.Errorf("tracker for job %s already started", t.jobID)
	}

	sub, err := t.source.Subscribe(ctx, stream.JobTopic(t.jobID))
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("subscribe job %s: %w", t.jobID, err)
	}
	t.sub = sub
	t.transitionLocked(domain.JobStageGenerating, 0, "")
	t.mu.Unlock()

	go t.consume(ctx, sub)
	return nil
}

// Cancel detaches the tracker synchronously. Events delivered after Cancel
// returns cause no state mutation and no side effect.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	sub := t.sub
	if t.stage != domain.JobStageCompleted && t.stage != domain.JobStageFailed {
		close(t.done)
	}
	t.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Done is closed when the tracker reaches a terminal stage or is cancelled.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Snapshot returns the current job view.
func (t *Tracker) Snapshot() domain.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.Job{
		ID:       t.jobID,
		OwnerID:  t.ownerID,
		Stage:    t.stage,
		Percent:  t.percent,
		Message:  t.message,
		Terminal: t.stage.IsTerminal(),
	}
}

func (t *Tracker) consume(ctx context.Context, sub stream.Subscription) {
	for ev := range sub.Events() {
		var pe domain.ProgressEvent
		if err := json.Unmarshal(ev.Data, &pe); err != nil {
			t.log.Warn("dropping malformed progress event", "error", err)
			metrics.ProgressEventsDropped.WithLabelValues("malformed").Inc()
			continue
		}
		t.apply(ctx, pe)
	}
}

// apply processes one progress event. All stage decisions happen under the
// lock so a Cancel that has already returned always wins over a queued event.
func (t *Tracker) apply(ctx context.Context, ev domain.ProgressEvent) {
	t.mu.Lock()

	if t.cancelled || t.stage.IsTerminal() {
		t.mu.Unlock()
		metrics.ProgressEventsDropped.WithLabelValues("terminal").Inc()
		return
	}

	if ev.Failed() {
		t.transitionLocked(domain.JobStageFailed, t.percent, ev.Message)
		close(t.done)
		sub := t.sub
		t.mu.Unlock()

		t.log.Info("job failed", "message", ev.Message)
		if sub != nil {
			sub.Close()
		}
		return
	}

	// Percent is monotonic non-decreasing; a late or redelivered event is
	// silently dropped.
	if ev.Percent < t.percent {
		t.mu.Unlock()
		metrics.ProgressEventsDropped.WithLabelValues("stale").Inc()
		return
	}

	if ev.Done() {
		t.transitionLocked(domain.JobStageCompleted, 100, ev.Message)
		close(t.done)
		sub := t.sub
		t.mu.Unlock()

		if sub != nil {
			sub.Close()
		}
		t.fetchResults(ctx)
		return
	}

	t.transitionLocked(domain.JobStageGenerating, ev.Percent, ev.Message)
	t.mu.Unlock()
}

// transitionLocked records a stage change and fires the transition callback.
// Caller holds the lock.
func (t *Tracker) transitionLocked(to Stage, percent int, message string) {
	tr := Transition{
		JobID:   t.jobID,
		From:    t.stage,
		To:      to,
		Percent: percent,
		Message: message,
		At:      time.Now(),
	}
	t.stage = to
	t.percent = percent
	if message != "" {
		t.message = message
	}
	metrics.ProgressEventsApplied.Inc()

	if t.cb.OnTransition != nil {
		t.cb.OnTransition(tr)
	}
}

// fetchResults fires the one-shot completion fetch. A failure does not
// revert the completed stage; it is surfaced on the result callback.
func (t *Tracker) fetchResults(ctx context.Context) {
	if t.fetcher == nil {
		return
	}
	result, err := t.fetcher.Results(ctx, t.jobID)
	if err != nil {
		t.log.Warn("results fetch failed", "error", err)
	}
	if t.cb.OnResult != nil {
		t.cb.OnResult(t.jobID, result, err)
	}
}
