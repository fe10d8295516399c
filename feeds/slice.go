// Package feeds turns raw, paginated feed responses into deduplicated,
// display-ordered slices. A slice is the unit the render layer consumes: one
// or more posts that belong together (usually a reply chain), with repost
// attribution carried as adornment.
//
// The Tuner is stateful across pages of one pagination session so that posts
// sliding between pages of a reverse-chronological feed are suppressed; the
// MergeFeed interleaver and the peek-latest Poller build on the same
// page/cursor contract.
package feeds

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/bluesky-social/skyview/views"
)

// Item is one post within a slice. ParentURI and RootURI are empty for
// non-reply posts. Reason, when set, only adorns the item ("reposted by X");
// it never participates in grouping.
type Item struct {
	Post      *views.PostView
	Reason    *views.ReasonRepost
	ParentURI string
	RootURI   string
}

// Slice is an ordered group of 1..N items sharing a reply root.
type Slice struct {
	// Key is a synthetic identifier derived from the constituent post URIs.
	// It is stable across refetches of the same content, which lets the
	// render layer reconcile list updates without flicker.
	Key string

	// RootURI is the reply root shared by the items, or the single item's
	// own URI for a non-reply slice.
	RootURI string

	// IsThread is true iff the slice holds more than one item and every
	// item is authored by the first item's author.
	IsThread bool

	Items []*Item
}

// URIs returns the post URIs of the slice items, in display order.
func (s *Slice) URIs() []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.Post.Uri
	}
	return out
}

func (s *Slice) finalize() {
	uris := s.URIs()
	s.Key = sliceKey(uris)
	if s.RootURI == "" && len(s.Items) > 0 {
		s.RootURI = s.Items[0].Post.Uri
	}
	s.IsThread = false
	if len(s.Items) > 1 {
		first := s.Items[0].Post.Author.Did
		same := true
		for _, it := range s.Items[1:] {
			if it.Post.Author.Did != first {
				same = false
				break
			}
		}
		s.IsThread = same
	}
}

func sliceKey(uris []string) string {
	h := sha256.Sum256([]byte(strings.Join(uris, "\n")))
	return "slice-" + hex.EncodeToString(h[:])[:24]
}

func newItem(e *views.FeedViewPost) *Item {
	it := &Item{
		Post:   e.Post,
		Reason: e.Reason,
	}
	if e.Reply != nil {
		if e.Reply.Parent != nil && e.Reply.Parent.PostView != nil {
			it.ParentURI = e.Reply.Parent.PostView.Uri
		}
		if e.Reply.Root != nil && e.Reply.Root.PostView != nil {
			it.RootURI = e.Reply.Root.PostView.Uri
		}
	}
	return it
}
