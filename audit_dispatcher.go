package identikit

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples flow transitions from sink latency: events queue
// onto a buffered channel and a single worker delivers them, so a slow sink
// never stalls a journey.
type auditDispatcher struct {
	sink       AuditSink
	events     chan AuditEvent
	quit       chan struct{}
	finished   chan struct{}
	dropIfFull bool
	dropped    atomic.Uint64
	closeOnce  sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, buffer),
		quit:       make(chan struct{}),
		finished:   make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	go d.deliver()
	return d
}

func (d *auditDispatcher) deliver() {
	defer close(d.finished)

	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			// flush what was queued before Close
			for len(d.events) > 0 {
				d.sink.Emit(context.Background(), <-d.events)
			}
			return
		}
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	select {
	case <-d.quit:
		return
	default:
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close stops the worker after flushing queued events. Idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.quit)
		<-d.finished
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
