package events

import (
	"context"

	"chatwindow/internal/domain"
	"chatwindow/pkg/logger"
)

// Applier consumes one push event. Implemented by the chat session; called
// from the dispatcher's single loop goroutine, so applies never interleave.
type Applier interface {
	ApplyEvent(kind EventType, msg domain.Message)
}

// Dispatcher fans two independent push streams into one serialized apply
// loop. The streams carry no ordering guarantee relative to each other; the
// cache's freshness rule arbitrates, not arrival order.
type Dispatcher struct {
	created    chan domain.Message
	updated    chan domain.Message
	applier    Applier
	log        *logger.Logger
	onOverflow func()
}

func NewDispatcher(applier Applier, log *logger.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		created: make(chan domain.Message, buffer),
		updated: make(chan domain.Message, buffer),
		applier: applier,
		log:     log,
	}
}

// OnOverflow registers a hook fired when an event is dropped because the
// buffer is full. Callers wire it to a forced re-fetch so a burst cannot
// leave the window stale until the next manual reload.
func (d *Dispatcher) OnOverflow(fn func()) {
	d.onOverflow = fn
}

// Created queues a message-created event. Zero-id messages are dropped as
// malformed. Safe to call after the consumer has torn down; the buffered
// channel absorbs stragglers and Run's context drains interest.
func (d *Dispatcher) Created(msg domain.Message) {
	if msg.ID == "" {
		return
	}
	select {
	case d.created <- msg:
	default:
		d.drop("created", msg.ID)
	}
}

// Updated queues a message-updated event.
func (d *Dispatcher) Updated(msg domain.Message) {
	if msg.ID == "" {
		return
	}
	select {
	case d.updated <- msg:
	default:
		d.drop("updated", msg.ID)
	}
}

func (d *Dispatcher) drop(stream, id string) {
	d.log.Warnf("%s event dropped: buffer full id=%s", stream, id)
	if d.onOverflow != nil {
		d.onOverflow()
	}
}

// Run consumes both streams until ctx is done. Each event is handled to
// completion before the next is read. Applier failures are contained here;
// one bad event never stops the loop.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.created:
			d.apply(MessageCreated, msg)
		case msg := <-d.updated:
			d.apply(MessageUpdated, msg)
		}
	}
}

func (d *Dispatcher) apply(kind EventType, msg domain.Message) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("event apply panic kind=%s id=%s: %v", kind, msg.ID, r)
		}
	}()
	d.applier.ApplyEvent(kind, msg)
}
