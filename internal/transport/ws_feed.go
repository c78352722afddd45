package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"chatwindow/internal/events"
	"chatwindow/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// PushFeed consumes the backend's websocket push stream and routes created
// and updated events into the dispatcher. The two event types arrive on one
// connection but carry no ordering guarantee relative to the send ack path.
type PushFeed struct {
	url            string
	dispatcher     *events.Dispatcher
	log            *logger.Logger
	reconnectDelay time.Duration
}

func NewPushFeed(url string, dispatcher *events.Dispatcher, log *logger.Logger, reconnectDelay time.Duration) *PushFeed {
	if reconnectDelay <= 0 {
		reconnectDelay = 3 * time.Second
	}
	return &PushFeed{
		url:            url,
		dispatcher:     dispatcher,
		log:            log,
		reconnectDelay: reconnectDelay,
	}
}

// Run keeps a connection open until ctx is done, redialing after a flat
// delay on any failure.
func (f *PushFeed) Run(ctx context.Context) {
	for {
		if err := f.connect(ctx); err != nil {
			f.log.Warnf("push feed disconnected: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.reconnectDelay):
		}
	}
}

func (f *PushFeed) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	f.log.Infof("push feed connected url=%s", f.url)

	done := make(chan struct{})
	defer close(done)
	go f.pingLoop(ctx, conn, done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handle(raw)
	}
}

func (f *PushFeed) pingLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *PushFeed) handle(raw []byte) {
	var env events.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Malformed frames are ignored, not errors.
		return
	}
	msg, err := events.DecodeMessage(env)
	if err != nil {
		return
	}
	switch env.Type {
	case events.MessageCreated:
		f.dispatcher.Created(msg)
	case events.MessageUpdated:
		f.dispatcher.Updated(msg)
	default:
		f.log.Warnf("unknown push event type=%s", env.Type)
	}
}
