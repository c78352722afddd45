package services

import (
	"context"
	"sync"
	"time"

	"chatwindow/internal/cache"
	"chatwindow/internal/domain"
	"chatwindow/internal/events"
	"chatwindow/pkg/logger"
)

// PageFetcher is the paginated-read collaborator.
type PageFetcher interface {
	FetchPage(ctx context.Context, count int, after string) (domain.MessagePage, error)
}

// ChatSession is the surface the UI reads from: the reconciled message list,
// loading and has-more flags, the submit entry point, and the new-message
// counter maintained while the viewport is scrolled away from the bottom.
type ChatSession struct {
	store       *cache.Store
	fetcher     PageFetcher
	coordinator *SendCoordinator
	log         *logger.Logger
	pageSize    int
	localSender domain.Sender
	retryDelay  time.Duration

	mu       sync.Mutex
	loading  bool
	atBottom bool
	unread   int
}

func NewChatSession(store *cache.Store, fetcher PageFetcher, coordinator *SendCoordinator, log *logger.Logger, pageSize int, localSender domain.Sender, retryDelay time.Duration) *ChatSession {
	if pageSize <= 0 {
		pageSize = 20
	}
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}
	return &ChatSession{
		store:       store,
		fetcher:     fetcher,
		coordinator: coordinator,
		log:         log,
		pageSize:    pageSize,
		localSender: localSender,
		retryDelay:  retryDelay,
		atBottom:    true,
	}
}

// Load fetches the first page window and replaces whatever is in the store.
func (s *ChatSession) Load(ctx context.Context) error {
	return s.fetch(ctx, "", cache.DirInitial)
}

// LoadMore extends the window past the current end cursor. It is a no-op
// when nothing has loaded yet or the frontier is exhausted.
func (s *ChatSession) LoadMore(ctx context.Context) error {
	page, ok := s.store.GetPage()
	if !ok {
		return s.Load(ctx)
	}
	if !page.PageInfo.HasNextPage {
		return nil
	}
	return s.fetch(ctx, page.PageInfo.EndCursor, cache.DirForward)
}

// Reload forces a full re-fetch of the current window.
func (s *ChatSession) Reload(ctx context.Context) error {
	return s.fetch(ctx, "", cache.DirInitial)
}

func (s *ChatSession) fetch(ctx context.Context, after string, dir cache.Direction) error {
	s.setLoading(true)
	defer s.setLoading(false)

	incoming, err := s.fetcher.FetchPage(ctx, s.pageSize, after)
	if err != nil {
		s.log.Errorf("page fetch failed after=%q: %v", after, err)
		s.scheduleRecover(after, dir)
		return err
	}
	s.store.Merge(incoming, dir)
	return nil
}

// scheduleRecover probes connectivity after a flat delay, then re-fetches
// the page that failed with its original cursor and direction, so a failed
// LoadMore does not collapse the window back to the first page. A single
// retry; the next failure schedules the next one.
func (s *ChatSession) scheduleRecover(after string, dir cache.Direction) {
	time.AfterFunc(s.retryDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.retryDelay*2)
		defer cancel()
		if err := s.fetch(ctx, after, dir); err != nil {
			s.log.Warnf("reconnect probe failed: %v", err)
		}
	})
}

// Messages returns the current ordered list.
func (s *ChatSession) Messages() []domain.Message {
	page, ok := s.store.GetPage()
	if !ok {
		return nil
	}
	return page.Messages()
}

func (s *ChatSession) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *ChatSession) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// HasMore reports whether the forward frontier has further pages.
func (s *ChatSession) HasMore() bool {
	page, ok := s.store.GetPage()
	if !ok {
		return false
	}
	return page.PageInfo.HasNextPage
}

// Submit starts an optimistic send of text and returns the attempt.
func (s *ChatSession) Submit(ctx context.Context, text string) (*SendAttempt, error) {
	attempt := s.coordinator.NewAttempt()
	attempt.SetInput(text)
	if err := s.coordinator.Submit(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// UnreadCount reports remote messages that arrived while scrolled away.
func (s *ChatSession) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// SetAtBottom tracks the viewport. Returning to the bottom clears the
// counter.
func (s *ChatSession) SetAtBottom(atBottom bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atBottom = atBottom
	if atBottom {
		s.unread = 0
	}
}

// ApplyEvent feeds one push event through the reconciliation rules. Created
// events from the local side double as acks: a confirmed copy of an
// in-flight send may arrive here before the send response does, so the
// placeholder for its text is evicted first either way.
func (s *ChatSession) ApplyEvent(kind events.EventType, msg domain.Message) {
	s.store.Apply(func(p domain.MessagePage) domain.MessagePage {
		next := p
		if kind == events.MessageCreated && msg.Sender == s.localSender && !msg.IsTemp() {
			next = cache.EvictTemp(next, msg.Text)
		}
		next, applied := cache.Upsert(next, msg)
		if !applied {
			s.log.Warnf("stale push suppressed kind=%s id=%s", kind, msg.ID)
		}
		return next
	})

	if kind == events.MessageCreated && msg.Sender != s.localSender {
		s.mu.Lock()
		if !s.atBottom {
			s.unread++
		}
		s.mu.Unlock()
	}
}
