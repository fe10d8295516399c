// Package threads converts a recursively-fetched reply tree into a flat,
// display-ordered sequence of rows.
//
// The wire shape (views.ThreadViewPost) is a recursive union with direct
// parent/child references. Internally the tree is held as an arena: every
// node lives in one flat map keyed by post URI, and linkage is by URI. That
// kills ownership cycles, makes the whole structure trivially serializable
// in tests, and lets sorting and flattening walk by key lookup.
package threads

import (
	"fmt"

	"github.com/bluesky-social/skyview/views"
)

type NodeKind int

const (
	NodePost NodeKind = iota
	NodeNotFound
	NodeBlocked
)

// Node is one vertex of the assembled thread.
type Node struct {
	Kind NodeKind
	URI  string

	// Post is set for NodePost only.
	Post *views.PostView

	// ParentURI is empty for the top of the fetched parent chain.
	ParentURI string

	// Replies holds child URIs, in current sort order.
	Replies []string

	// Depth is relative to the focal post: parents are negative, the
	// focal post is 0, replies positive.
	Depth int

	// HasMoreReplies is set when the post's reply count exceeds what the
	// tree fetch returned beneath it.
	HasMoreReplies bool

	// HasUnloadedParent is set on the chain top when the post record says
	// it is a reply but no parent was fetched.
	HasUnloadedParent bool
}

// Thread is the assembled arena plus the focal URI the tree was fetched
// around.
type Thread struct {
	nodes    map[string]*Node
	focalURI string

	// parentChain runs root-to-immediate-parent of the focal post.
	parentChain []string
}

// Assemble builds a Thread from the wire tree rooted at the focal post.
// Malformed subtrees (nil or invalid post views) are dropped, never fatal.
func Assemble(tv *views.ThreadViewPost) (*Thread, error) {
	if tv == nil || tv.Post == nil {
		return nil, fmt.Errorf("empty thread view")
	}
	if err := views.ValidatePost(tv.Post); err != nil {
		return nil, fmt.Errorf("focal post invalid: %w", err)
	}

	t := &Thread{
		nodes:    make(map[string]*Node),
		focalURI: tv.Post.Uri,
	}

	focal := &Node{
		Kind:  NodePost,
		URI:   tv.Post.Uri,
		Post:  tv.Post,
		Depth: 0,
	}
	t.nodes[focal.URI] = focal

	t.addParents(focal, tv.Parent)
	t.addReplies(focal, tv.Replies)
	return t, nil
}

// Focal returns the node the thread was fetched around.
func (t *Thread) Focal() *Node {
	return t.nodes[t.focalURI]
}

// Node returns the arena node for uri.
func (t *Thread) Node(uri string) (*Node, bool) {
	n, ok := t.nodes[uri]
	return n, ok
}

// Len reports how many nodes the arena holds.
func (t *Thread) Len() int {
	return len(t.nodes)
}

// ParentChain returns the URIs from the fetched root down to the focal
// post's immediate parent.
func (t *Thread) ParentChain() []string {
	return t.parentChain
}

// addParents walks the parent union chain upward from child, recording each
// ancestor. The chain is single (a post has one parent), never a list. A
// chain that repeats a URI is malformed and the walk stops there.
func (t *Thread) addParents(child *Node, parent *views.ThreadViewPost_Parent) {
	depth := -1
	cur := parent
	for cur != nil {
		var n *Node
		var next *views.ThreadViewPost_Parent
		switch {
		case cur.ThreadViewPost != nil:
			tvp := cur.ThreadViewPost
			if tvp.Post == nil || views.ValidatePost(tvp.Post) != nil {
				threadNodesMalformed.Inc()
				cur = nil
				continue
			}
			n = &Node{
				Kind:  NodePost,
				URI:   tvp.Post.Uri,
				Post:  tvp.Post,
				Depth: depth,
			}
			next = tvp.Parent
		case cur.NotFoundPost != nil:
			n = &Node{Kind: NodeNotFound, URI: cur.NotFoundPost.Uri, Depth: depth}
		case cur.BlockedPost != nil:
			n = &Node{Kind: NodeBlocked, URI: cur.BlockedPost.Uri, Depth: depth}
		default:
			cur = nil
			continue
		}
		// a chain revisiting a URI would overwrite its arena node
		if _, dup := t.nodes[n.URI]; dup {
			threadNodesMalformed.Inc()
			break
		}
		child.ParentURI = n.URI
		n.Replies = []string{child.URI}
		t.nodes[n.URI] = n
		t.parentChain = append([]string{n.URI}, t.parentChain...)
		child = n
		cur = next
		depth--
	}

	// chain top claims a parent its fetch never delivered
	if child.Kind == NodePost && child.ParentURI == "" &&
		child.Post.Record != nil && child.Post.Record.Reply != nil {
		child.HasUnloadedParent = true
	}
}

func (t *Thread) addReplies(parent *Node, replies []*views.ThreadViewPost_Replies) {
	fetched := 0
	for _, r := range replies {
		if r == nil {
			continue
		}
		switch {
		case r.ThreadViewPost != nil:
			tvp := r.ThreadViewPost
			if tvp.Post == nil || views.ValidatePost(tvp.Post) != nil {
				threadNodesMalformed.Inc()
				continue
			}
			if _, dup := t.nodes[tvp.Post.Uri]; dup {
				continue
			}
			n := &Node{
				Kind:      NodePost,
				URI:       tvp.Post.Uri,
				Post:      tvp.Post,
				ParentURI: parent.URI,
				Depth:     parent.Depth + 1,
			}
			t.nodes[n.URI] = n
			parent.Replies = append(parent.Replies, n.URI)
			fetched++
			t.addReplies(n, tvp.Replies)
		case r.NotFoundPost != nil:
			n := &Node{Kind: NodeNotFound, URI: r.NotFoundPost.Uri, ParentURI: parent.URI, Depth: parent.Depth + 1}
			t.nodes[n.URI] = n
			parent.Replies = append(parent.Replies, n.URI)
			fetched++
		case r.BlockedPost != nil:
			n := &Node{Kind: NodeBlocked, URI: r.BlockedPost.Uri, ParentURI: parent.URI, Depth: parent.Depth + 1}
			t.nodes[n.URI] = n
			parent.Replies = append(parent.Replies, n.URI)
			fetched++
		}
	}

	if parent.Kind == NodePost && parent.Post.ReplyCount != nil && int(*parent.Post.ReplyCount) > fetched {
		parent.HasMoreReplies = true
	}
}

// HasBranching reports whether any post in the focal post's reply subtree
// has more than one post reply. Tree view is only visually meaningful when
// it does. Short-circuits on the first branch found.
func (t *Thread) HasBranching() bool {
	return t.branchBelow(t.focalURI)
}

func (t *Thread) branchBelow(uri string) bool {
	n, ok := t.nodes[uri]
	if !ok {
		return false
	}
	posts := 0
	for _, child := range n.Replies {
		if c, ok := t.nodes[child]; ok && c.Kind == NodePost {
			posts++
		}
	}
	if posts > 1 {
		return true
	}
	for _, child := range n.Replies {
		if t.branchBelow(child) {
			return true
		}
	}
	return false
}
