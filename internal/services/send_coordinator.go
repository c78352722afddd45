package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"chatwindow/internal/cache"
	"chatwindow/internal/domain"
	chatwindow_errors "chatwindow/pkg/errors"
	"chatwindow/pkg/logger"
)

// Sender is the send collaborator: submits text and resolves asynchronously
// with the server-confirmed message or a failure.
type Sender interface {
	Send(ctx context.Context, text string) (domain.Message, error)
}

type SendState string

const (
	SendStateIdle       SendState = "IDLE"
	SendStateComposing  SendState = "COMPOSING"
	SendStateSubmitting SendState = "SUBMITTING"
	SendStateSettled    SendState = "SETTLED"
)

type SendResult struct {
	Message domain.Message
	Err     error
}

// SendAttempt is one optimistic send. Attempts are independent; there is no
// global submit lock. Each attempt tracks its own trimmed text, which is the
// correlation key for placeholder eviction.
type SendAttempt struct {
	mu     sync.Mutex
	state  SendState
	input  string
	tempID string
	done   chan SendResult
}

func (a *SendAttempt) State() SendState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SetInput records the composer's current text. Non-whitespace input moves
// the attempt from Idle to Composing; clearing it moves it back.
func (a *SendAttempt) SetInput(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != SendStateIdle && a.state != SendStateComposing {
		return
	}
	a.input = text
	if strings.TrimSpace(text) == "" {
		a.state = SendStateIdle
	} else {
		a.state = SendStateComposing
	}
}

// TempID returns the placeholder id once the attempt has been submitted.
func (a *SendAttempt) TempID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tempID
}

// Done resolves with the server ack or the failure that settled the attempt.
func (a *SendAttempt) Done() <-chan SendResult {
	return a.done
}

func (a *SendAttempt) settle(res SendResult) {
	a.mu.Lock()
	a.state = SendStateSettled
	a.mu.Unlock()
	a.done <- res
	close(a.done)
}

// SendCoordinator owns the optimistic half of sending: it places a
// placeholder into the store immediately on submit and reconciles it once
// the server acknowledgment lands.
type SendCoordinator struct {
	store          *cache.Store
	sender         Sender
	log            *logger.Logger
	localSender    domain.Sender
	reconnectDelay time.Duration
	onDisconnect   func()
	now            func() time.Time
}

func NewSendCoordinator(store *cache.Store, sender Sender, log *logger.Logger, localSender domain.Sender, reconnectDelay time.Duration) *SendCoordinator {
	if reconnectDelay <= 0 {
		reconnectDelay = 3 * time.Second
	}
	return &SendCoordinator{
		store:          store,
		sender:         sender,
		log:            log,
		localSender:    localSender,
		reconnectDelay: reconnectDelay,
		now:            time.Now,
	}
}

// OnDisconnect registers the reconnect probe fired after a send failure. The
// probe runs once per failure, after a flat delay.
func (c *SendCoordinator) OnDisconnect(fn func()) {
	c.onDisconnect = fn
}

// NewAttempt returns a fresh attempt in the Idle state.
func (c *SendCoordinator) NewAttempt() *SendAttempt {
	return &SendAttempt{state: SendStateIdle, done: make(chan SendResult, 1)}
}

// Submit sends the attempt's current input. Whitespace-only input is
// rejected without touching the store. Otherwise a placeholder with a temp
// id and Sending status is upserted immediately and the send runs in the
// background; the attempt settles when the ack or failure arrives.
func (c *SendCoordinator) Submit(ctx context.Context, attempt *SendAttempt) error {
	attempt.mu.Lock()
	text := strings.TrimSpace(attempt.input)
	if text == "" {
		attempt.mu.Unlock()
		return chatwindow_errors.ErrEmptyMessage
	}
	if attempt.state == SendStateSubmitting || attempt.state == SendStateSettled {
		attempt.mu.Unlock()
		return chatwindow_errors.ErrInvalidInput
	}
	attempt.state = SendStateSubmitting
	attempt.tempID = domain.NewTempID()
	tempID := attempt.tempID
	attempt.mu.Unlock()

	placeholder := domain.Message{
		ID:        tempID,
		Text:      text,
		Status:    domain.MessageStatusSending,
		UpdatedAt: c.now(),
		Sender:    c.localSender,
	}
	c.store.Apply(func(p domain.MessagePage) domain.MessagePage {
		next, _ := cache.Upsert(p, placeholder)
		return next
	})

	go c.run(ctx, attempt, text, tempID)
	return nil
}

func (c *SendCoordinator) run(ctx context.Context, attempt *SendAttempt, text, tempID string) {
	confirmed, err := c.sender.Send(ctx, text)
	if err != nil {
		c.fail(attempt, tempID, text, err)
		return
	}

	// Eviction must precede the upsert so the confirmed record lands as its
	// own edge instead of colliding with the placeholder.
	c.store.Apply(func(p domain.MessagePage) domain.MessagePage {
		next := cache.EvictTemp(p, text)
		next, applied := cache.Upsert(next, confirmed)
		if !applied {
			c.log.Warnf("stale ack suppressed id=%s", confirmed.ID)
		}
		return next
	})
	attempt.settle(SendResult{Message: confirmed})
}

func (c *SendCoordinator) fail(attempt *SendAttempt, tempID, text string, err error) {
	c.log.Errorf("send failed text_len=%d: %v", len(text), err)

	// The placeholder stays visible but is re-marked so the UI never shows a
	// permanently Sending ghost. The push for this send can beat the ack and
	// supersede the placeholder first; in that case there is nothing left to
	// mark and upserting would resurrect a temp edge beside its replacement.
	failed := domain.Message{
		ID:        tempID,
		Text:      text,
		Status:    domain.MessageStatusFailed,
		UpdatedAt: c.now(),
		Sender:    c.localSender,
	}
	c.store.Apply(func(p domain.MessagePage) domain.MessagePage {
		if !hasEdge(p, tempID) {
			return p
		}
		next, _ := cache.Upsert(p, failed)
		return next
	})

	if c.onDisconnect != nil {
		time.AfterFunc(c.reconnectDelay, c.onDisconnect)
	}
	attempt.settle(SendResult{Err: err})
}

func hasEdge(p domain.MessagePage, id string) bool {
	for _, e := range p.Edges {
		if e.Node.ID == id {
			return true
		}
	}
	return false
}
