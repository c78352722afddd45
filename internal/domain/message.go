package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempIDPrefix marks client-generated placeholder ids. A message carrying a
// temp id has not been confirmed by the server and is deleted, never updated,
// once its server-side counterpart arrives.
const TempIDPrefix = "temp-"

type Message struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Status    MessageStatus `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
	Sender    Sender        `json:"sender"`
}

// NewTempID returns a fresh placeholder id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTemp reports whether id belongs to a client-side placeholder.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// IsTemp reports whether the message is a client-side placeholder.
func (m Message) IsTemp() bool {
	return IsTemp(m.ID)
}

// MessageEdge pairs a message with the opaque cursor it was paged in under.
// The cursor has no meaning beyond its position in the current page window.
type MessageEdge struct {
	Node   Message `json:"node"`
	Cursor string  `json:"cursor"`
}

type PageInfo struct {
	HasNextPage     bool   `json:"has_next_page"`
	HasPreviousPage bool   `json:"has_previous_page"`
	StartCursor     string `json:"start_cursor"`
	EndCursor       string `json:"end_cursor"`
}

type MessagePage struct {
	Edges    []MessageEdge `json:"edges"`
	PageInfo PageInfo      `json:"page_info"`
}

// Clone returns a copy of the page whose edge slice is independent of the
// receiver's. Node values are copied by value; they are treated as immutable
// per version.
func (p MessagePage) Clone() MessagePage {
	out := p
	out.Edges = make([]MessageEdge, len(p.Edges))
	copy(out.Edges, p.Edges)
	return out
}

// Messages flattens the page into its ordered node list.
func (p MessagePage) Messages() []Message {
	msgs := make([]Message, 0, len(p.Edges))
	for _, e := range p.Edges {
		msgs = append(msgs, e.Node)
	}
	return msgs
}
