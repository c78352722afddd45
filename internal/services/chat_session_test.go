package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwindow/internal/cache"
	"chatwindow/internal/domain"
	"chatwindow/internal/events"
	"chatwindow/internal/services"
	"chatwindow/pkg/logger"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]domain.MessagePage
	fail  bool
	calls int
}

func (f *fakeFetcher) FetchPage(ctx context.Context, count int, after string) (domain.MessagePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return domain.MessagePage{}, errors.New("network down")
	}
	page, ok := f.pages[after]
	if !ok {
		return domain.MessagePage{}, nil
	}
	return page, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func serverMsg(id, text string, sender domain.Sender) domain.Message {
	return domain.Message{
		ID:        id,
		Text:      text,
		Status:    domain.MessageStatusSent,
		UpdatedAt: time.Now(),
		Sender:    sender,
	}
}

func pageOf(info domain.PageInfo, msgs ...domain.Message) domain.MessagePage {
	page := domain.MessagePage{PageInfo: info}
	for _, m := range msgs {
		page.Edges = append(page.Edges, domain.MessageEdge{Node: m, Cursor: "c-" + m.ID})
	}
	return page
}

func newSession(fetcher services.PageFetcher) (*services.ChatSession, *cache.Store) {
	store := cache.NewStore()
	sender := &fakeSender{
		respond: func(text string) (domain.Message, error) { return confirmed("srv", text), nil },
	}
	coordinator := services.NewSendCoordinator(store, sender, logger.NewNop(), domain.SenderAdmin, 10*time.Millisecond)
	session := services.NewChatSession(store, fetcher, coordinator, logger.NewNop(), 2, domain.SenderAdmin, 10*time.Millisecond)
	return session, store
}

func TestSessionLoadAndLoadMore(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]domain.MessagePage{
		"": pageOf(
			domain.PageInfo{HasNextPage: true, EndCursor: "c-2"},
			serverMsg("1", "a", domain.SenderCustomer),
			serverMsg("2", "b", domain.SenderCustomer),
		),
		"c-2": pageOf(
			domain.PageInfo{HasNextPage: false, EndCursor: "c-3"},
			serverMsg("3", "c", domain.SenderCustomer),
		),
	}}
	session, _ := newSession(fetcher)

	require.NoError(t, session.Load(context.Background()))
	assert.Len(t, session.Messages(), 2)
	assert.True(t, session.HasMore())

	require.NoError(t, session.LoadMore(context.Background()))
	msgs := session.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "3", msgs[2].ID, "older page appended at the tail")
	assert.False(t, session.HasMore())

	require.NoError(t, session.LoadMore(context.Background()), "exhausted frontier is a no-op")
	assert.Len(t, session.Messages(), 3)
}

func TestSessionLoadFailureRetries(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]domain.MessagePage{
		"": pageOf(domain.PageInfo{}, serverMsg("1", "a", domain.SenderCustomer)),
	}}
	fetcher.setFail(true)
	session, _ := newSession(fetcher)

	require.Error(t, session.Load(context.Background()))
	fetcher.setFail(false)

	require.Eventually(t, func() bool {
		return len(session.Messages()) == 1
	}, time.Second, 5*time.Millisecond, "probe re-fetches the window after the flat delay")
	assert.GreaterOrEqual(t, fetcher.callCount(), 2)
}

func TestSessionLoadMoreFailureRetainsWindow(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]domain.MessagePage{
		"": pageOf(
			domain.PageInfo{HasNextPage: true, EndCursor: "c-2"},
			serverMsg("1", "a", domain.SenderCustomer),
			serverMsg("2", "b", domain.SenderCustomer),
		),
		"c-2": pageOf(
			domain.PageInfo{HasNextPage: false, EndCursor: "c-3"},
			serverMsg("3", "c", domain.SenderCustomer),
		),
	}}
	session, _ := newSession(fetcher)
	require.NoError(t, session.Load(context.Background()))

	fetcher.setFail(true)
	require.Error(t, session.LoadMore(context.Background()))
	fetcher.setFail(false)

	// The probe retries the failed forward fetch with its cursor; a reload
	// from the top would collapse the window back to two messages.
	require.Eventually(t, func() bool {
		return len(session.Messages()) == 3
	}, time.Second, 5*time.Millisecond)
	msgs := session.Messages()
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, "3", msgs[2].ID)
	assert.False(t, session.HasMore())
}

func TestSessionUnreadCounter(t *testing.T) {
	session, _ := newSession(&fakeFetcher{})
	session.SetAtBottom(false)

	session.ApplyEvent(events.MessageCreated, serverMsg("1", "hi", domain.SenderCustomer))
	assert.Equal(t, 1, session.UnreadCount())

	session.ApplyEvent(events.MessageCreated, serverMsg("2", "mine", domain.SenderAdmin))
	assert.Equal(t, 1, session.UnreadCount(), "local-side creates never count")

	session.ApplyEvent(events.MessageUpdated, serverMsg("1", "hi!", domain.SenderCustomer))
	assert.Equal(t, 1, session.UnreadCount(), "updates never count")

	session.SetAtBottom(true)
	assert.Equal(t, 0, session.UnreadCount())

	session.ApplyEvent(events.MessageCreated, serverMsg("3", "more", domain.SenderCustomer))
	assert.Equal(t, 0, session.UnreadCount(), "at the bottom nothing accrues")
}

func TestSessionCreatedEventEvictsMatchingPlaceholder(t *testing.T) {
	session, store := newSession(&fakeFetcher{})

	placeholder := domain.Message{
		ID:        domain.NewTempID(),
		Text:      "hi",
		Status:    domain.MessageStatusSending,
		UpdatedAt: time.Now(),
		Sender:    domain.SenderAdmin,
	}
	store.Apply(func(p domain.MessagePage) domain.MessagePage {
		next, _ := cache.Upsert(p, placeholder)
		return next
	})

	// The push for our own send can beat the ack; it must still supersede
	// the placeholder.
	session.ApplyEvent(events.MessageCreated, serverMsg("42", "hi", domain.SenderAdmin))

	page, _ := store.GetPage()
	require.Len(t, page.Edges, 1)
	assert.Equal(t, "42", page.Edges[0].Node.ID)
	assert.False(t, page.Edges[0].Node.IsTemp())
}

func TestSessionStalePushSuppressed(t *testing.T) {
	session, store := newSession(&fakeFetcher{})

	t2 := time.Now()
	fresh := domain.Message{ID: "7", Text: "fresh", Status: domain.MessageStatusRead, UpdatedAt: t2, Sender: domain.SenderCustomer}
	session.ApplyEvent(events.MessageCreated, fresh)

	stale := domain.Message{ID: "7", Text: "stale", Status: domain.MessageStatusSent, UpdatedAt: t2.Add(-time.Minute), Sender: domain.SenderCustomer}
	session.ApplyEvent(events.MessageUpdated, stale)

	page, _ := store.GetPage()
	require.Len(t, page.Edges, 1)
	assert.Equal(t, "fresh", page.Edges[0].Node.Text)
	assert.Equal(t, domain.MessageStatusRead, page.Edges[0].Node.Status)
	assert.Equal(t, t2, page.Edges[0].Node.UpdatedAt)
}

func TestSessionSubmitRoundTrip(t *testing.T) {
	session, _ := newSession(&fakeFetcher{})

	attempt, err := session.Submit(context.Background(), "hello")
	require.NoError(t, err)
	res := <-attempt.Done()
	require.NoError(t, res.Err)

	msgs := session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv", msgs[0].ID)
}
