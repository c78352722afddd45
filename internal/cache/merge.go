package cache

import (
	"chatwindow/internal/domain"
)

// Direction describes which edge of the page window an incoming page extends.
// Forward loads older messages past the current end cursor; backward loads
// newer ones before the current start cursor. The naming follows scroll
// direction, not array order.
type Direction string

const (
	DirInitial  Direction = "initial"
	DirForward  Direction = "forward"
	DirBackward Direction = "backward"
)

// MergePage combines an incoming page with the existing window. It performs
// no id-based deduplication: the two windows are trusted to be disjoint, and
// cross-window duplicates are resolved later by Upsert when individual
// records arrive.
func MergePage(existing *domain.MessagePage, incoming domain.MessagePage, dir Direction) domain.MessagePage {
	if existing == nil || dir == DirInitial {
		return incoming.Clone()
	}

	switch dir {
	case DirForward:
		// Older messages append at the tail; the forward frontier moves.
		out := domain.MessagePage{
			Edges:    make([]domain.MessageEdge, 0, len(existing.Edges)+len(incoming.Edges)),
			PageInfo: incoming.PageInfo,
		}
		out.Edges = append(out.Edges, existing.Edges...)
		out.Edges = append(out.Edges, incoming.Edges...)
		return out
	case DirBackward:
		// Newer messages prepend; the forward frontier stays where it was.
		out := domain.MessagePage{
			Edges:    make([]domain.MessageEdge, 0, len(existing.Edges)+len(incoming.Edges)),
			PageInfo: incoming.PageInfo,
		}
		out.PageInfo.HasNextPage = existing.PageInfo.HasNextPage
		out.PageInfo.EndCursor = existing.PageInfo.EndCursor
		out.Edges = append(out.Edges, incoming.Edges...)
		out.Edges = append(out.Edges, existing.Edges...)
		return out
	default:
		return incoming.Clone()
	}
}

// Upsert inserts msg as a new trailing edge when its id is unknown, or
// replaces the stored node in place when the incoming version is at least as
// fresh. A strictly older incoming version is discarded and the second return
// value is false.
//
// Equal timestamps count as fresh: the ack path and the push path can carry
// the same instant for the same logical update, and both must land for either
// path to be idempotent.
func Upsert(page domain.MessagePage, msg domain.Message) (domain.MessagePage, bool) {
	for i, edge := range page.Edges {
		if edge.Node.ID != msg.ID {
			continue
		}
		if msg.UpdatedAt.Before(edge.Node.UpdatedAt) {
			return page, false
		}
		out := page.Clone()
		out.Edges[i].Node = msg
		return out, true
	}
	out := page.Clone()
	out.Edges = append(out.Edges, domain.MessageEdge{
		Node:   msg,
		Cursor: CursorForID(msg.ID),
	})
	return out, true
}

// EvictTemp removes every placeholder edge whose text equals the submitted
// text. Placeholders carrying different text belong to other in-flight sends
// and are left alone. A double submit with identical text leaves two matching
// placeholders; both go.
func EvictTemp(page domain.MessagePage, text string) domain.MessagePage {
	out := page.Clone()
	kept := out.Edges[:0]
	for _, edge := range out.Edges {
		if edge.Node.IsTemp() && edge.Node.Text == text {
			continue
		}
		kept = append(kept, edge)
	}
	out.Edges = kept
	return out
}

// CursorForID synthesizes a deterministic cursor for records that arrive
// outside pagination (sends, pushes).
func CursorForID(id string) string {
	return "cursor-" + id
}
