package threads

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluesky-social/skyview/views"
)

func threadPost(n int, did string, likes int64) *views.PostView {
	lc := likes
	var rc int64
	return &views.PostView{
		Uri:    fmt.Sprintf("at://%s/app.bsky.feed.post/%d", did, n),
		Cid:    fmt.Sprintf("bafycid%d", n),
		Author: &views.ProfileViewBasic{Did: did, Handle: "someone.test"},
		Record: &views.FeedPost{
			Text:      fmt.Sprintf("post %d", n),
			CreatedAt: fmt.Sprintf("2025-06-01T10:%02d:00Z", n%60),
		},
		IndexedAt:  fmt.Sprintf("2025-06-01T10:%02d:00Z", n%60),
		LikeCount:  &lc,
		ReplyCount: &rc,
		Viewer:     &views.ViewerState{},
	}
}

func tvp(p *views.PostView, replies ...*views.ThreadViewPost) *views.ThreadViewPost {
	out := &views.ThreadViewPost{Post: p}
	if p.ReplyCount != nil {
		*p.ReplyCount = int64(len(replies))
	}
	for _, r := range replies {
		out.Replies = append(out.Replies, &views.ThreadViewPost_Replies{ThreadViewPost: r})
	}
	return out
}

func rowKinds(rows []Row) []RowKind {
	out := make([]RowKind, len(rows))
	for i, r := range rows {
		out[i] = r.Kind
	}
	return out
}

func TestFlattenOrdering(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	bob := "did:plc:bob"
	carol := "did:plc:carol"

	root := threadPost(1, alice, 0)
	replyA := threadPost(2, bob, 0)   // older (minute 2)
	replyB := threadPost(3, carol, 0) // newer (minute 3)

	// feed the replies in newest-first wire order; sorting must fix it
	th, err := Assemble(tvp(root, tvp(replyB), tvp(replyA)))
	require.NoError(t, err)

	rows := th.Flatten(ViewPrefs{
		TreeView:   true,
		Sort:       SortOldestFirst,
		HasSession: true,
	})

	require.Len(t, rows, 5)
	assert.Equal([]RowKind{RowPost, RowReplyPrompt, RowPost, RowPost, RowEndOfThread}, rowKinds(rows))
	assert.Equal(root.Uri, rows[0].URI)
	assert.True(rows[0].IsHighlighted)
	assert.Equal(replyA.Uri, rows[2].URI)
	assert.Equal(replyB.Uri, rows[3].URI)

	// first reply draws a continuation line to its sibling, last does not
	assert.True(rows[2].ShowReplyLine)
	assert.False(rows[3].ShowReplyLine)
}

func TestFlattenLinearViewFollowsFirstBranch(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	bob := "did:plc:bob"
	root := threadPost(1, alice, 0)
	replyA := threadPost(2, bob, 0)
	subA := threadPost(4, alice, 0)
	replyB := threadPost(3, alice, 0)

	th, err := Assemble(tvp(root, tvp(replyA, tvp(subA)), tvp(replyB)))
	require.NoError(t, err)

	rows := th.Flatten(ViewPrefs{
		TreeView:   false,
		Sort:       SortOldestFirst,
		HasSession: true,
	})

	uris := make(map[string]bool)
	for _, r := range rows {
		if r.Kind == RowPost {
			uris[r.URI] = true
		}
	}
	assert.True(uris[replyA.Uri])
	assert.True(uris[subA.Uri])
	assert.False(uris[replyB.Uri], "sibling branch must be omitted in linear view")
}

func TestFlattenParentChain(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	grandparent := threadPost(1, alice, 0)
	parent := threadPost(2, alice, 0)
	focal := threadPost(3, alice, 0)

	wire := tvp(focal)
	wire.Parent = &views.ThreadViewPost_Parent{
		ThreadViewPost: &views.ThreadViewPost{
			Post: parent,
			Parent: &views.ThreadViewPost_Parent{
				ThreadViewPost: &views.ThreadViewPost{Post: grandparent},
			},
		},
	}

	th, err := Assemble(wire)
	require.NoError(t, err)
	assert.Equal([]string{grandparent.Uri, parent.Uri}, th.ParentChain())

	rows := th.Flatten(ViewPrefs{Sort: SortOldestFirst, HasSession: true})
	require.True(t, len(rows) >= 3)
	assert.Equal(grandparent.Uri, rows[0].URI)
	assert.Equal(-2, rows[0].Depth)
	assert.Equal(parent.Uri, rows[1].URI)
	assert.Equal(-1, rows[1].Depth)
	assert.Equal(focal.Uri, rows[2].URI)
	assert.True(rows[2].IsHighlighted)
}

func TestFlattenNoSessionSkipsPromptAndOptedOut(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	bob := "did:plc:bob"
	root := threadPost(1, alice, 0)
	shy := threadPost(2, bob, 0)
	shy.Author = &views.ProfileViewBasic{
		Did:    bob,
		Handle: "shy.test",
		Labels: []*views.Label{{Src: bob, Uri: bob, Val: "!no-unauthenticated", Cts: "2025-01-01T00:00:00Z"}},
	}
	sub := threadPost(3, alice, 0)
	open := threadPost(4, alice, 0)

	th, err := Assemble(tvp(root, tvp(shy, tvp(sub)), tvp(open)))
	require.NoError(t, err)

	rows := th.Flatten(ViewPrefs{TreeView: true, Sort: SortOldestFirst, HasSession: false})
	for _, r := range rows {
		assert.NotEqual(RowReplyPrompt, r.Kind)
		assert.NotEqual(shy.Uri, r.URI)
		assert.NotEqual(sub.Uri, r.URI, "opted-out author's subtree must go too")
	}

	// with a session, the same tree shows everything
	rows = th.Flatten(ViewPrefs{TreeView: true, Sort: SortOldestFirst, HasSession: true})
	seen := make(map[string]bool)
	hasPrompt := false
	for _, r := range rows {
		seen[r.URI] = true
		hasPrompt = hasPrompt || r.Kind == RowReplyPrompt
	}
	assert.True(seen[shy.Uri])
	assert.True(seen[sub.Uri])
	assert.True(hasPrompt)
}

func TestFlattenLinearViewSkipsOptedOutFirstBranch(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	bob := "did:plc:bob"
	root := threadPost(1, alice, 0)
	shy := threadPost(2, bob, 0)
	shy.Author = &views.ProfileViewBasic{
		Did:    bob,
		Handle: "shy.test",
		Labels: []*views.Label{{Src: bob, Uri: bob, Val: "!no-unauthenticated", Cts: "2025-01-01T00:00:00Z"}},
	}
	open := threadPost(3, alice, 0)

	// the opted-out reply sorts first; logged out, the linear view must
	// fall through to the next visible branch, not go empty
	th, err := Assemble(tvp(root, tvp(shy), tvp(open)))
	require.NoError(t, err)

	rows := th.Flatten(ViewPrefs{TreeView: false, Sort: SortOldestFirst, HasSession: false})
	uris := make(map[string]bool)
	for _, r := range rows {
		uris[r.URI] = true
	}
	assert.False(uris[shy.Uri])
	assert.True(uris[open.Uri])
}

func TestFlattenRowCap(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	root := threadPost(1, alice, 0)
	var replies []*views.ThreadViewPost
	for i := 0; i < 20; i++ {
		replies = append(replies, tvp(threadPost(i+2, alice, 0)))
	}
	th, err := Assemble(tvp(root, replies...))
	require.NoError(t, err)

	rows := th.Flatten(ViewPrefs{TreeView: true, Sort: SortOldestFirst, HasSession: true, MaxRows: 10})
	require.Len(t, rows, 11)
	assert.Equal(RowLoadMore, rows[10].Kind)

	// raising the cap is a re-flatten, not a refetch
	rows = th.Flatten(ViewPrefs{TreeView: true, Sort: SortOldestFirst, HasSession: true, MaxRows: 100})
	assert.Equal(RowEndOfThread, rows[len(rows)-1].Kind)
}

func TestFlattenBranchDepthLimit(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	root := threadPost(1, alice, 0)
	r1 := threadPost(2, alice, 0)
	r2 := threadPost(3, alice, 0)
	r3 := threadPost(4, alice, 0)

	th, err := Assemble(tvp(root, tvp(r1, tvp(r2, tvp(r3)))))
	require.NoError(t, err)

	rows := th.Flatten(ViewPrefs{TreeView: true, Sort: SortOldestFirst, HasSession: true, MaxBranchDepth: 2})
	var kinds []RowKind
	uris := make(map[string]bool)
	for _, r := range rows {
		kinds = append(kinds, r.Kind)
		uris[r.URI] = true
	}
	assert.True(uris[r2.Uri])
	assert.False(uris[r3.Uri])
	assert.Contains(kinds, RowLoadMore)
}

func TestSortOrders(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	root := threadPost(1, alice, 0)
	a := threadPost(2, "did:plc:a", 10) // oldest, most liked
	b := threadPost(3, "did:plc:b", 2)
	c := threadPost(4, "did:plc:c", 5)

	build := func() *Thread {
		th, err := Assemble(tvp(root, tvp(b), tvp(c), tvp(a)))
		require.NoError(t, err)
		return th
	}

	order := func(th *Thread) []string {
		return th.Focal().Replies
	}

	th := build()
	th.SortReplies(SortOldestFirst)
	assert.Equal([]string{a.Uri, b.Uri, c.Uri}, order(th))

	th = build()
	th.SortReplies(SortNewestFirst)
	assert.Equal([]string{c.Uri, b.Uri, a.Uri}, order(th))

	th = build()
	th.SortReplies(SortMostLiked)
	assert.Equal([]string{a.Uri, c.Uri, b.Uri}, order(th))
}

func TestHasBranching(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	root := threadPost(1, alice, 0)
	r1 := threadPost(2, alice, 0)
	r2 := threadPost(3, alice, 0)

	// single chain: no branching
	th, err := Assemble(tvp(root, tvp(r1, tvp(r2))))
	require.NoError(t, err)
	assert.False(th.HasBranching())

	// fork below the first reply
	r3 := threadPost(4, alice, 0)
	th, err = Assemble(tvp(root, tvp(r1, tvp(r2), tvp(r3))))
	require.NoError(t, err)
	assert.True(th.HasBranching())
}

func TestAssembleVariantNodes(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	root := threadPost(1, alice, 0)
	wire := tvp(root)
	wire.Replies = append(wire.Replies,
		&views.ThreadViewPost_Replies{NotFoundPost: &views.NotFoundPost{Uri: "at://gone/app.bsky.feed.post/9", NotFound: true}},
		&views.ThreadViewPost_Replies{BlockedPost: &views.BlockedPost{Uri: "at://blocked/app.bsky.feed.post/9", Blocked: true, Author: &views.BlockedAuthor{Did: "did:plc:x"}}},
	)

	th, err := Assemble(wire)
	require.NoError(t, err)
	assert.Equal(3, th.Len())

	rows := th.Flatten(ViewPrefs{TreeView: true, Sort: SortOldestFirst, HasSession: true})
	kinds := rowKinds(rows)
	assert.Contains(kinds, RowNotFound)
	assert.Contains(kinds, RowBlocked)
}

func TestAssembleDropsMalformedSubtree(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	root := threadPost(1, alice, 0)
	bad := threadPost(2, alice, 0)
	bad.Cid = ""
	good := threadPost(3, alice, 0)

	th, err := Assemble(tvp(root, tvp(bad), tvp(good)))
	require.NoError(t, err)
	assert.Equal(2, th.Len())
	_, ok := th.Node(good.Uri)
	assert.True(ok)
	_, ok = th.Node(bad.Uri)
	assert.False(ok)
}

func TestAssembleParentChainRevisitDropped(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	focal := threadPost(1, alice, 0)
	parent := threadPost(2, alice, 0)

	// malformed wire: the chain names the focal post as its own ancestor
	wire := tvp(focal)
	wire.Parent = &views.ThreadViewPost_Parent{
		ThreadViewPost: &views.ThreadViewPost{
			Post: parent,
			Parent: &views.ThreadViewPost_Parent{
				ThreadViewPost: &views.ThreadViewPost{Post: focal},
			},
		},
	}

	th, err := Assemble(wire)
	require.NoError(t, err)
	assert.Equal([]string{parent.Uri}, th.ParentChain())
	assert.Equal(2, th.Len())

	f := th.Focal()
	assert.Equal(focal.Uri, f.URI)
	assert.Equal(0, f.Depth)
	assert.Equal(parent.Uri, f.ParentURI)
}

func TestReplyDisabledSuppressesPrompt(t *testing.T) {
	assert := assert.New(t)

	alice := "did:plc:alice"
	root := threadPost(1, alice, 0)
	root.Viewer = &views.ViewerState{ReplyDisabled: true}

	th, err := Assemble(tvp(root))
	require.NoError(t, err)
	rows := th.Flatten(ViewPrefs{Sort: SortOldestFirst, HasSession: true})
	for _, r := range rows {
		assert.NotEqual(RowReplyPrompt, r.Kind)
	}
}
