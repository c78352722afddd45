package snapshot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwindow/internal/domain"
	"chatwindow/internal/snapshot"
	"chatwindow/pkg/logger"
)

func openStore(t *testing.T) *snapshot.Store {
	t.Helper()
	s, err := snapshot.Open(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openStore(t)

	page := domain.MessagePage{
		Edges: []domain.MessageEdge{{
			Node: domain.Message{
				ID:        "1",
				Text:      "hello",
				Status:    domain.MessageStatusRead,
				UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				Sender:    domain.SenderCustomer,
			},
			Cursor: "c-1",
		}},
		PageInfo: domain.PageInfo{HasNextPage: true, EndCursor: "c-1"},
	}

	require.NoError(t, s.Save(page))

	got, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, page, got)
}

func TestSnapshotStripsPlaceholders(t *testing.T) {
	s := openStore(t)

	page := domain.MessagePage{Edges: []domain.MessageEdge{
		{Node: domain.Message{ID: "1", Text: "kept", Status: domain.MessageStatusSent, UpdatedAt: time.Now().UTC(), Sender: domain.SenderCustomer}, Cursor: "c-1"},
		{Node: domain.Message{ID: domain.NewTempID(), Text: "in flight", Status: domain.MessageStatusSending, UpdatedAt: time.Now().UTC(), Sender: domain.SenderAdmin}, Cursor: "c-t"},
	}}

	require.NoError(t, s.Save(page))

	got, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Edges, 1)
	assert.Equal(t, "1", got.Edges[0].Node.ID)
}

func TestSnapshotLoadEmpty(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}
