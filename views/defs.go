// Package views contains hand-maintained Go structs for the app.bsky view
// shapes that the feed and thread assembly core consumes: post views, feed
// entries, and the recursive thread view tree.
//
// These mirror the lexicon-defined view objects returned by the AppView
// (app.bsky.feed.defs and friends), including the closed unions keyed on
// "$type". Only the surface the client core reads is modeled here; fields the
// core never touches are omitted rather than carried as dead weight.
package views

import (
	"encoding/json"
	"fmt"
)

// schema: com.atproto.label.defs#label (subset)

type Label struct {
	Src string `json:"src"`
	Uri string `json:"uri"`
	Val string `json:"val"`
	Neg bool   `json:"neg,omitempty"`
	Cts string `json:"cts"`
}

// schema: app.bsky.actor.defs#profileViewBasic

type ProfileViewBasic struct {
	Did         string            `json:"did"`
	Handle      string            `json:"handle"`
	DisplayName *string           `json:"displayName,omitempty"`
	Avatar      *string           `json:"avatar,omitempty"`
	Labels      []*Label          `json:"labels,omitempty"`
	Viewer      *ActorViewerState `json:"viewer,omitempty"`
}

type ActorViewerState struct {
	Muted     bool    `json:"muted,omitempty"`
	BlockedBy bool    `json:"blockedBy,omitempty"`
	Blocking  *string `json:"blocking,omitempty"`
	Following *string `json:"following,omitempty"`
}

// schema: app.bsky.feed.post (record subset)

type FeedPost struct {
	LexiconTypeID string          `json:"$type,omitempty"`
	Text          string          `json:"text"`
	CreatedAt     string          `json:"createdAt"`
	Reply         *FeedPost_Reply `json:"reply,omitempty"`
	Langs         []string        `json:"langs,omitempty"`
}

type FeedPost_Reply struct {
	Root   *StrongRef `json:"root"`
	Parent *StrongRef `json:"parent"`
}

type StrongRef struct {
	Uri string `json:"uri"`
	Cid string `json:"cid"`
}

// schema: app.bsky.feed.defs#postView

type PostView struct {
	LexiconTypeID string            `json:"$type,omitempty"`
	Uri           string            `json:"uri"`
	Cid           string            `json:"cid"`
	Author        *ProfileViewBasic `json:"author"`
	Record        *FeedPost         `json:"record"`
	Embed         *PostView_Embed   `json:"embed,omitempty"`
	ReplyCount    *int64            `json:"replyCount,omitempty"`
	RepostCount   *int64            `json:"repostCount,omitempty"`
	LikeCount     *int64            `json:"likeCount,omitempty"`
	IndexedAt     string            `json:"indexedAt"`
	Viewer        *ViewerState      `json:"viewer,omitempty"`
	Labels        []*Label          `json:"labels,omitempty"`
}

// ViewerState carries the viewer's own relationship to a post, as embedded in
// the snapshot by the server. Like and Repost hold the AT-URI of the viewer's
// own like/repost record when one exists.
type ViewerState struct {
	LexiconTypeID string  `json:"$type,omitempty"`
	Like          *string `json:"like,omitempty"`
	Repost        *string `json:"repost,omitempty"`
	ThreadMuted   bool    `json:"threadMuted,omitempty"`
	ReplyDisabled bool    `json:"replyDisabled,omitempty"`
	Pinned        bool    `json:"pinned,omitempty"`
}

// schema: app.bsky.feed.defs#feedViewPost

type FeedViewPost struct {
	Post   *PostView     `json:"post"`
	Reason *ReasonRepost `json:"reason,omitempty"`
	Reply  *ReplyRef     `json:"reply,omitempty"`
}

type ReasonRepost struct {
	LexiconTypeID string            `json:"$type,omitempty"`
	By            *ProfileViewBasic `json:"by"`
	IndexedAt     string            `json:"indexedAt"`
}

// ReplyRef identifies the root and immediate parent of a reply entry. Root
// and parent are unions because either may have gone missing or be blocked
// for the viewer by the time the feed page is assembled.
type ReplyRef struct {
	Root   *ReplyRef_Post `json:"root"`
	Parent *ReplyRef_Post `json:"parent"`
}

type ReplyRef_Post struct {
	PostView     *PostView
	NotFoundPost *NotFoundPost
	BlockedPost  *BlockedPost
}

func (t *ReplyRef_Post) MarshalJSON() ([]byte, error) {
	if t.PostView != nil {
		t.PostView.LexiconTypeID = "app.bsky.feed.defs#postView"
		return json.Marshal(t.PostView)
	}
	if t.NotFoundPost != nil {
		t.NotFoundPost.LexiconTypeID = "app.bsky.feed.defs#notFoundPost"
		return json.Marshal(t.NotFoundPost)
	}
	if t.BlockedPost != nil {
		t.BlockedPost.LexiconTypeID = "app.bsky.feed.defs#blockedPost"
		return json.Marshal(t.BlockedPost)
	}
	return nil, fmt.Errorf("cannot marshal empty enum")
}

func (t *ReplyRef_Post) UnmarshalJSON(b []byte) error {
	typ, err := typeExtract(b)
	if err != nil {
		return err
	}
	switch typ {
	case "app.bsky.feed.defs#postView":
		t.PostView = new(PostView)
		return json.Unmarshal(b, t.PostView)
	case "app.bsky.feed.defs#notFoundPost":
		t.NotFoundPost = new(NotFoundPost)
		return json.Unmarshal(b, t.NotFoundPost)
	case "app.bsky.feed.defs#blockedPost":
		t.BlockedPost = new(BlockedPost)
		return json.Unmarshal(b, t.BlockedPost)
	default:
		return nil
	}
}

// schema: app.bsky.feed.defs#notFoundPost

type NotFoundPost struct {
	LexiconTypeID string `json:"$type,omitempty"`
	Uri           string `json:"uri"`
	NotFound      bool   `json:"notFound"`
}

// schema: app.bsky.feed.defs#blockedPost

type BlockedPost struct {
	LexiconTypeID string         `json:"$type,omitempty"`
	Uri           string         `json:"uri"`
	Blocked       bool           `json:"blocked"`
	Author        *BlockedAuthor `json:"author"`
}

type BlockedAuthor struct {
	Did string `json:"did"`
}

// schema: app.bsky.feed.defs#threadViewPost

type ThreadViewPost struct {
	LexiconTypeID string                    `json:"$type,omitempty"`
	Post          *PostView                 `json:"post"`
	Parent        *ThreadViewPost_Parent    `json:"parent,omitempty"`
	Replies       []*ThreadViewPost_Replies `json:"replies,omitempty"`
}

type ThreadViewPost_Parent struct {
	ThreadViewPost *ThreadViewPost
	NotFoundPost   *NotFoundPost
	BlockedPost    *BlockedPost
}

func (t *ThreadViewPost_Parent) MarshalJSON() ([]byte, error) {
	if t.ThreadViewPost != nil {
		t.ThreadViewPost.LexiconTypeID = "app.bsky.feed.defs#threadViewPost"
		return json.Marshal(t.ThreadViewPost)
	}
	if t.NotFoundPost != nil {
		t.NotFoundPost.LexiconTypeID = "app.bsky.feed.defs#notFoundPost"
		return json.Marshal(t.NotFoundPost)
	}
	if t.BlockedPost != nil {
		t.BlockedPost.LexiconTypeID = "app.bsky.feed.defs#blockedPost"
		return json.Marshal(t.BlockedPost)
	}
	return nil, fmt.Errorf("cannot marshal empty enum")
}

func (t *ThreadViewPost_Parent) UnmarshalJSON(b []byte) error {
	typ, err := typeExtract(b)
	if err != nil {
		return err
	}
	switch typ {
	case "app.bsky.feed.defs#threadViewPost":
		t.ThreadViewPost = new(ThreadViewPost)
		return json.Unmarshal(b, t.ThreadViewPost)
	case "app.bsky.feed.defs#notFoundPost":
		t.NotFoundPost = new(NotFoundPost)
		return json.Unmarshal(b, t.NotFoundPost)
	case "app.bsky.feed.defs#blockedPost":
		t.BlockedPost = new(BlockedPost)
		return json.Unmarshal(b, t.BlockedPost)
	default:
		return nil
	}
}

type ThreadViewPost_Replies struct {
	ThreadViewPost *ThreadViewPost
	NotFoundPost   *NotFoundPost
	BlockedPost    *BlockedPost
}

func (t *ThreadViewPost_Replies) MarshalJSON() ([]byte, error) {
	if t.ThreadViewPost != nil {
		t.ThreadViewPost.LexiconTypeID = "app.bsky.feed.defs#threadViewPost"
		return json.Marshal(t.ThreadViewPost)
	}
	if t.NotFoundPost != nil {
		t.NotFoundPost.LexiconTypeID = "app.bsky.feed.defs#notFoundPost"
		return json.Marshal(t.NotFoundPost)
	}
	if t.BlockedPost != nil {
		t.BlockedPost.LexiconTypeID = "app.bsky.feed.defs#blockedPost"
		return json.Marshal(t.BlockedPost)
	}
	return nil, fmt.Errorf("cannot marshal empty enum")
}

func (t *ThreadViewPost_Replies) UnmarshalJSON(b []byte) error {
	typ, err := typeExtract(b)
	if err != nil {
		return err
	}
	switch typ {
	case "app.bsky.feed.defs#threadViewPost":
		t.ThreadViewPost = new(ThreadViewPost)
		return json.Unmarshal(b, t.ThreadViewPost)
	case "app.bsky.feed.defs#notFoundPost":
		t.NotFoundPost = new(NotFoundPost)
		return json.Unmarshal(b, t.NotFoundPost)
	case "app.bsky.feed.defs#blockedPost":
		t.BlockedPost = new(BlockedPost)
		return json.Unmarshal(b, t.BlockedPost)
	default:
		return nil
	}
}

func typeExtract(b []byte) (string, error) {
	var tc struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(b, &tc); err != nil {
		return "", fmt.Errorf("extracting $type: %w", err)
	}
	return tc.Type, nil
}
