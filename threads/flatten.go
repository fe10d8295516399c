package threads

import (
	"github.com/bluesky-social/skyview/views"
)

// labelNoUnauthenticated is the self-label of accounts that opted out of
// being shown to logged-out viewers.
const labelNoUnauthenticated = "!no-unauthenticated"

type RowKind int

const (
	RowPost RowKind = iota
	RowNotFound
	RowBlocked

	// RowReplyPrompt is the compose-a-reply affordance under the focal
	// post.
	RowReplyPrompt

	// RowLoadMore raises the visible-row cap, or expands unfetched
	// replies under the post named by URI. Interaction is client-side; no
	// refetch is implied by the cap variant.
	RowLoadMore

	RowEndOfThread
)

// Row is one renderable line of the flattened thread.
type Row struct {
	Kind RowKind
	URI  string

	// Post is set for RowPost.
	Post *views.PostView

	// Depth mirrors the node depth (parents negative, focal zero).
	Depth int

	// IsHighlighted marks the focal post's row.
	IsHighlighted bool

	// ShowReplyLine is set when a sibling follows beneath this row in
	// tree view, so the renderer draws the continuation line.
	ShowReplyLine bool
}

// ViewPrefs carries the view preferences and session state flattening
// honors.
type ViewPrefs struct {
	// TreeView descends every reply branch; off, only the first branch of
	// each node is followed and siblings are omitted.
	TreeView bool

	Sort SortOrder

	// HasSession is false for logged-out viewers; replies from authors
	// labeled !no-unauthenticated are then omitted subtree-and-all.
	HasSession bool

	// MaxRows caps the visible rows (default 100). Truncation appends a
	// load-more row; raising the cap is the caller re-flattening with a
	// bigger value, not a refetch.
	MaxRows int

	// MaxBranchDepth stops descent below the given reply depth (0 means
	// unlimited), appending a load-more row at the cut.
	MaxBranchDepth int
}

const defaultMaxRows = 100

// Flatten sorts and linearizes the thread: parent chain root-to-parent,
// then the focal post, a reply prompt when the viewer can reply, the reply
// subtree per preferences, and an end-of-thread marker.
func (t *Thread) Flatten(prefs ViewPrefs) []Row {
	t.SortReplies(prefs.Sort)

	var rows []Row
	for _, uri := range t.parentChain {
		n := t.nodes[uri]
		rows = append(rows, t.nodeRow(n))
	}

	focal := t.Focal()
	fr := t.nodeRow(focal)
	fr.IsHighlighted = true
	rows = append(rows, fr)

	if prefs.HasSession && focal.Kind == NodePost && !replyDisabled(focal.Post) {
		rows = append(rows, Row{Kind: RowReplyPrompt, URI: focal.URI})
	}

	rows = t.flattenReplies(rows, focal, prefs)
	rows = append(rows, Row{Kind: RowEndOfThread, URI: t.focalURI})

	maxRows := prefs.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	if len(rows) > maxRows {
		rows = append(rows[:maxRows], Row{Kind: RowLoadMore})
	}
	flattenRows.Add(float64(len(rows)))
	return rows
}

func (t *Thread) flattenReplies(rows []Row, n *Node, prefs ViewPrefs) []Row {
	visible := make([]*Node, 0, len(n.Replies))
	for _, uri := range n.Replies {
		c, ok := t.nodes[uri]
		if !ok {
			continue
		}
		if !prefs.HasSession && authorOptedOut(c) {
			// the whole subtree goes with it
			continue
		}
		visible = append(visible, c)
	}
	// linear view follows the first branch that survived filtering
	if !prefs.TreeView && len(visible) > 1 {
		visible = visible[:1]
	}
	for i, c := range visible {
		r := t.nodeRow(c)
		r.ShowReplyLine = prefs.TreeView && i < len(visible)-1
		rows = append(rows, r)
		if prefs.MaxBranchDepth > 0 && c.Depth >= prefs.MaxBranchDepth && len(c.Replies) > 0 {
			rows = append(rows, Row{Kind: RowLoadMore, URI: c.URI, Depth: c.Depth + 1})
			continue
		}
		rows = t.flattenReplies(rows, c, prefs)
		if c.Kind == NodePost && c.HasMoreReplies && len(c.Replies) == 0 {
			rows = append(rows, Row{Kind: RowLoadMore, URI: c.URI, Depth: c.Depth + 1})
		}
	}
	return rows
}

func (t *Thread) nodeRow(n *Node) Row {
	r := Row{URI: n.URI, Depth: n.Depth}
	switch n.Kind {
	case NodeNotFound:
		r.Kind = RowNotFound
	case NodeBlocked:
		r.Kind = RowBlocked
	default:
		r.Kind = RowPost
		r.Post = n.Post
	}
	return r
}

func replyDisabled(p *views.PostView) bool {
	return p.Viewer != nil && p.Viewer.ReplyDisabled
}

func authorOptedOut(n *Node) bool {
	if n.Kind != NodePost || n.Post.Author == nil {
		return false
	}
	return views.HasLabel(n.Post.Author.Labels, labelNoUnauthenticated)
}
