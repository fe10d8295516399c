// Package shadow reconciles locally-known post mutations (like/unlike,
// repost, delete, pin, embed detach) against immutable server snapshots.
//
// A snapshot of a post can be held by many collections at once: feed pages,
// thread trees, search results, quote embeds. The shadow store keeps at most
// one overlay per post URI and merges it onto whichever snapshot a view is
// holding, without ever touching the snapshot itself. Updates fan out to
// every subscriber of the URI, so one like toggle moves every copy of the
// post at once.
package shadow

import (
	"github.com/bluesky-social/skyview/views"
)

// Field is a tri-state overlay field: absent (no override), or defined with
// a value, where the value itself may be nil ("explicitly cleared"). The
// distinction is what lets an unlike override a snapshot that still carries
// the viewer's like.
type Field[T any] struct {
	Defined bool
	Value   T
}

// Set returns a defined field.
func Set[T any](v T) Field[T] {
	return Field[T]{Defined: true, Value: v}
}

// PostShadow is the partial overlay for one post URI. Zero-value fields are
// absent and leave the snapshot alone.
type PostShadow struct {
	// Like is the AT-URI of the viewer's like record, or defined-nil after
	// an unlike.
	Like Field[*string]

	// Repost mirrors Like for the viewer's repost record.
	Repost Field[*string]

	// Pinned overrides the viewer's pinned-post flag.
	Pinned Field[bool]

	// Deleted marks the post locally deleted. Merge returns the tombstone
	// (nil) for it from then on.
	Deleted Field[bool]

	// Embed replaces the snapshot embed, e.g. after the viewer detaches
	// their post from a quote. Applied only when the variant matches the
	// snapshot's; a mismatch falls back to the snapshot value.
	Embed Field[*views.PostView_Embed]
}

// apply merges the defined fields of partial over s, field by field.
// Concurrent updates to different fields therefore never clobber each
// other; same-field writes are last-write-wins in call order.
func (s PostShadow) apply(partial PostShadow) PostShadow {
	if partial.Like.Defined {
		s.Like = partial.Like
	}
	if partial.Repost.Defined {
		s.Repost = partial.Repost
	}
	if partial.Pinned.Defined {
		s.Pinned = partial.Pinned
	}
	if partial.Deleted.Defined {
		s.Deleted = partial.Deleted
	}
	if partial.Embed.Defined {
		s.Embed = partial.Embed
	}
	return s
}

// ScanFunc reports every snapshot of the given post URI a collection
// currently holds. Collections register one at startup so a single update
// can locate all copies without the store importing any of them.
type ScanFunc func(uri string) []*views.PostView

// Store is the overlay cache contract.
type Store interface {
	// Get returns the overlay for uri, if one was ever created.
	Get(uri string) (PostShadow, bool)

	// Update merges partial into the overlay for uri (creating it if
	// absent) and notifies every subscriber of that uri.
	Update(uri string, partial PostShadow)

	// Subscribe registers fn to run on every subsequent Update of uri.
	// The returned func unsubscribes; it is idempotent.
	Subscribe(uri string, fn func(PostShadow)) func()

	// Merge returns a copy of post with the overlay applied, or nil — the
	// deleted-post tombstone — when the overlay marks it deleted. The
	// given snapshot is never modified. With no overlay present the
	// snapshot itself is returned.
	Merge(post *views.PostView) *views.PostView

	// RegisterScanner adds a collection's scan callback.
	RegisterScanner(fn ScanFunc)

	// Occurrences asks every registered scanner for snapshots of uri.
	Occurrences(uri string) []*views.PostView
}

// MergeShadow applies an overlay to a snapshot, returning a new merged view
// or nil as the tombstone. Pure; exported for callers that manage their own
// overlay lookup.
//
// Engagement counts are recomputed by diffing the snapshot's embedded
// viewer-state against the overlay, not by caching deltas: re-running the
// merge against a fresher snapshot whose counts already include the action
// stays correct, because the diff is always relative to that snapshot.
func MergeShadow(post *views.PostView, s PostShadow) *views.PostView {
	if post == nil {
		return nil
	}
	if s.Deleted.Defined && s.Deleted.Value {
		return nil
	}

	out := *post

	var viewer views.ViewerState
	if post.Viewer != nil {
		viewer = *post.Viewer
	}

	var snapLike, snapRepost *string
	if post.Viewer != nil {
		snapLike = post.Viewer.Like
		snapRepost = post.Viewer.Repost
	}
	if s.Like.Defined {
		out.LikeCount = adjustCount(post.LikeCount, snapLike, s.Like.Value)
		viewer.Like = s.Like.Value
	}
	if s.Repost.Defined {
		out.RepostCount = adjustCount(post.RepostCount, snapRepost, s.Repost.Value)
		viewer.Repost = s.Repost.Value
	}

	if s.Pinned.Defined {
		viewer.Pinned = s.Pinned.Value
	}

	if s.Embed.Defined && s.Embed.Value != nil && post.Embed.SameVariant(s.Embed.Value) {
		out.Embed = s.Embed.Value
	}

	out.Viewer = &viewer
	return &out
}

// adjustCount diffs the snapshot's own-record URI against the overlay's,
// flooring the result at zero. A changed record URI counts as a net new
// action: the snapshot count is known to include the old record and not its
// replacement. Once the snapshot catches up (same URI on both sides) the
// diff is zero again. A nil snapshot count is treated as zero.
func adjustCount(count *int64, was, is *string) *int64 {
	var n int64
	if count != nil {
		n = *count
	}
	switch {
	case is != nil && was == nil:
		n++
	case is == nil && was != nil:
		n--
	case is != nil && was != nil && *is != *was:
		n++
	}
	if n < 0 {
		n = 0
	}
	return &n
}
