package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/slidesage/slidesage/internal/index"
	"github.com/slidesage/slidesage/internal/session"
)

const (
	defaultQueueSize     = 256
	defaultMaxDeliveries = 4
	defaultRedeliverGap  = 250 * time.Millisecond
)

type delivery struct {
	event   PageCreated
	attempt int
}

// Dispatcher consumes object-created notifications, turns page-image keys
// into PageCreated events, and drives the Builder with a bounded worker
// pool. Failed deliveries are redelivered with capped attempts, modeling
// the at-least-once semantics of blob-store event triggers.
type Dispatcher struct {
	builder      *Builder
	workers      int
	maxDelivers  int
	redeliverGap time.Duration

	queue   chan delivery
	pending sync.WaitGroup
	wg      sync.WaitGroup
	timers  sync.WaitGroup
	cancel  context.CancelFunc
}

// NewDispatcher creates a dispatcher with the given worker count.
func NewDispatcher(builder *Builder, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		builder:      builder,
		workers:      workers,
		maxDelivers:  defaultMaxDeliveries,
		redeliverGap: defaultRedeliverGap,
		queue:        make(chan delivery, defaultQueueSize),
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop cancels the workers, waits for them and for any scheduled
// redeliveries to settle, then fails whatever is still queued so a later
// Wait cannot block on deliveries nobody will process.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.timers.Wait()
	for {
		select {
		case <-d.queue:
			d.pending.Done()
		default:
			return
		}
	}
}

// Wait blocks until every submitted event has reached a terminal outcome.
// Intended for tests and graceful drain.
func (d *Dispatcher) Wait() { d.pending.Wait() }

// Submit routes one object-created notification. Keys that are not page
// images are ignored; everything else becomes a PageCreated event.
func (d *Dispatcher) Submit(key string) {
	sid, docID, page, err := session.ParseImageKey(key)
	if err != nil {
		return
	}
	d.Enqueue(PageCreated{
		SessionID:  sid,
		DocumentID: docID,
		PageNumber: page,
		ImageKey:   key,
	})
}

// Enqueue schedules a page-created event for processing.
func (d *Dispatcher) Enqueue(ev PageCreated) {
	d.pending.Add(1)
	d.queue <- delivery{event: ev, attempt: 1}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case del := <-d.queue:
			d.process(ctx, del)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, del delivery) {
	err := d.builder.HandlePageCreated(ctx, del.event)
	if err == nil {
		d.pending.Done()
		return
	}

	ev := del.event
	if permanent(err) {
		log.Error().Err(err).
			Str("session", ev.SessionID).
			Str("document", ev.DocumentID).
			Int("page", ev.PageNumber).
			Msg("page event failed permanently")
		d.pending.Done()
		return
	}

	if del.attempt >= d.maxDelivers {
		log.Error().Err(err).
			Str("session", ev.SessionID).
			Str("document", ev.DocumentID).
			Int("page", ev.PageNumber).
			Int("attempts", del.attempt).
			Msg("page event dropped after redelivery budget")
		d.pending.Done()
		return
	}

	log.Warn().Err(err).
		Str("session", ev.SessionID).
		Int("page", ev.PageNumber).
		Int("attempt", del.attempt).
		Msg("page event failed, scheduling redelivery")

	// Redeliver later without blocking the worker. Stop waits on the timers
	// group before draining the queue, so a redelivery lands either in the
	// queue before the drain or in the cancellation branch, never lost.
	gap := d.redeliverGap * time.Duration(del.attempt)
	d.timers.Add(1)
	time.AfterFunc(gap, func() {
		defer d.timers.Done()
		select {
		case <-ctx.Done():
			d.pending.Done()
			return
		default:
		}
		select {
		case d.queue <- delivery{event: ev, attempt: del.attempt + 1}:
		case <-ctx.Done():
			d.pending.Done()
		}
	})
}

// permanent reports whether retrying the event cannot help: structural
// defects and deleted sessions stay broken no matter how often the event
// is redelivered.
func permanent(err error) bool {
	return errors.Is(err, index.ErrDimensionMismatch) ||
		errors.Is(err, index.ErrCorrupt) ||
		errors.Is(err, index.ErrGone)
}
