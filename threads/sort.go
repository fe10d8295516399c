package threads

import (
	"sort"

	"github.com/bluesky-social/skyview/views"
)

// SortOrder selects the within-reply-set ordering preference.
type SortOrder int

const (
	SortOldestFirst SortOrder = iota
	SortNewestFirst
	SortMostLiked

	// SortHot ranks by likes, breaking ties oldest-first.
	SortHot
)

// SortReplies orders every reply set in the thread per the given preference.
// The sort is stable and applied recursively per reply set, never globally:
// a child's position depends only on its siblings. Non-post nodes (not
// found, blocked) sink below post nodes but keep their relative order.
func (t *Thread) SortReplies(order SortOrder) {
	t.sortBelow(t.focalURI, order)
	// parent chain nodes hold exactly one relevant child each; nothing to
	// order above the focal post
}

func (t *Thread) sortBelow(uri string, order SortOrder) {
	n, ok := t.nodes[uri]
	if !ok {
		return
	}
	sort.SliceStable(n.Replies, func(i, j int) bool {
		a, b := t.nodes[n.Replies[i]], t.nodes[n.Replies[j]]
		return t.replyLess(a, b, order)
	})
	for _, child := range n.Replies {
		t.sortBelow(child, order)
	}
}

func (t *Thread) replyLess(a, b *Node, order SortOrder) bool {
	if (a.Kind == NodePost) != (b.Kind == NodePost) {
		return a.Kind == NodePost
	}
	if a.Kind != NodePost || b.Kind != NodePost {
		return false
	}
	switch order {
	case SortNewestFirst:
		return views.PostIndexedAt(a.Post).After(views.PostIndexedAt(b.Post))
	case SortMostLiked:
		return likeCount(a.Post) > likeCount(b.Post)
	case SortHot:
		la, lb := likeCount(a.Post), likeCount(b.Post)
		if la != lb {
			return la > lb
		}
		return views.PostIndexedAt(a.Post).Before(views.PostIndexedAt(b.Post))
	default:
		return views.PostIndexedAt(a.Post).Before(views.PostIndexedAt(b.Post))
	}
}

func likeCount(p *views.PostView) int64 {
	if p.LikeCount == nil {
		return 0
	}
	return *p.LikeCount
}
