package feeds

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluesky-social/skyview/views"
)

type stubSource struct {
	name    string
	pages   [][]*views.FeedViewPost
	fetches int
	onFetch func()
}

func (s *stubSource) Ident() string { return s.name }

func (s *stubSource) FetchPage(ctx context.Context, cursor string, limit int) (*Page, error) {
	if s.onFetch != nil {
		s.onFetch()
	}
	s.fetches++
	n := 0
	if cursor != "" {
		var err error
		n, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("bad stub cursor: %w", err)
		}
	}
	if n >= len(s.pages) {
		return &Page{}, nil
	}
	page := &Page{Feed: s.pages[n]}
	if n+1 < len(s.pages) {
		next := strconv.Itoa(n + 1)
		page.Cursor = &next
	}
	return page, nil
}

func TestMergeFeedChronological(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	alice := "did:plc:alice"
	bob := "did:plc:bob"
	// minute component of testPost timestamps is n%60
	a := &stubSource{name: "a", pages: [][]*views.FeedViewPost{{
		plainEntry(testPost(50, alice)),
		plainEntry(testPost(10, alice)),
	}}}
	b := &stubSource{name: "b", pages: [][]*views.FeedViewPost{{
		plainEntry(testPost(30, bob)),
	}}}

	m, err := NewMergeFeed(MergeChronological, []Source{a, b}, nil)
	require.NoError(t, err)

	page, err := m.FetchPage(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Feed, 3)
	assert.Equal(testPost(50, alice).Uri, page.Feed[0].Post.Uri)
	assert.Equal(testPost(30, bob).Uri, page.Feed[1].Post.Uri)
	assert.Equal(testPost(10, alice).Uri, page.Feed[2].Post.Uri)
	assert.Nil(page.Cursor)
}

func TestMergeFeedWeighted(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	alice := "did:plc:alice"
	bob := "did:plc:bob"
	var aPage, bPage []*views.FeedViewPost
	for i := 0; i < 6; i++ {
		aPage = append(aPage, plainEntry(testPost(i, alice)))
		bPage = append(bPage, plainEntry(testPost(i+20, bob)))
	}
	a := &stubSource{name: "a", pages: [][]*views.FeedViewPost{aPage}}
	b := &stubSource{name: "b", pages: [][]*views.FeedViewPost{bPage}}

	m, err := NewMergeFeed(MergeWeighted, []Source{a, b}, []int{2, 1})
	require.NoError(t, err)

	page, err := m.FetchPage(ctx, "", 6)
	require.NoError(t, err)
	require.Len(t, page.Feed, 6)
	dids := make([]string, 6)
	for i, e := range page.Feed {
		dids[i] = e.Post.Author.Did
	}
	assert.Equal([]string{alice, alice, bob, alice, alice, bob}, dids)
}

func TestMergeFeedPagination(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	alice := "did:plc:alice"
	var entries []*views.FeedViewPost
	for i := 0; i < 5; i++ {
		entries = append(entries, plainEntry(testPost(i, alice)))
	}
	src := &stubSource{name: "only", pages: [][]*views.FeedViewPost{entries[:3], entries[3:]}}

	m, err := NewMergeFeed(MergeChronological, []Source{src}, nil)
	require.NoError(t, err)

	seen := make(map[string]bool)
	cursor := ""
	total := 0
	for {
		page, err := m.FetchPage(ctx, cursor, 2)
		require.NoError(t, err)
		for _, e := range page.Feed {
			assert.False(seen[e.Post.Uri], "duplicate %s", e.Post.Uri)
			seen[e.Post.Uri] = true
			total++
		}
		if page.Cursor == nil {
			break
		}
		cursor = *page.Cursor
	}
	assert.Equal(5, total)
}

func TestMergeFeedCursorResume(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	alice := "did:plc:alice"
	var entries []*views.FeedViewPost
	for i := 0; i < 4; i++ {
		entries = append(entries, plainEntry(testPost(i, alice)))
	}
	mkSrc := func() *stubSource {
		return &stubSource{name: "only", pages: [][]*views.FeedViewPost{entries[:2], entries[2:]}}
	}

	m1, err := NewMergeFeed(MergeChronological, []Source{mkSrc()}, nil)
	require.NoError(t, err)
	page, err := m1.FetchPage(ctx, "", 2)
	require.NoError(t, err)
	require.NotNil(t, page.Cursor)

	// a fresh object (new process, same cursor) can continue the sequence
	m2, err := NewMergeFeed(MergeChronological, []Source{mkSrc()}, nil)
	require.NoError(t, err)
	page2, err := m2.FetchPage(ctx, *page.Cursor, 10)
	require.NoError(t, err)
	assert.NotEmpty(page2.Feed)
	for _, e := range page2.Feed {
		assert.NotEqual(page.Feed[0].Post.Uri, e.Post.Uri)
	}
}

func TestMergeFeedResumeSkipsExhaustedSource(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	alice := "did:plc:alice"
	bob := "did:plc:bob"
	short := func() *stubSource {
		return &stubSource{name: "short", pages: [][]*views.FeedViewPost{{
			plainEntry(testPost(50, alice)),
		}}}
	}
	long := func() *stubSource {
		return &stubSource{name: "long", pages: [][]*views.FeedViewPost{
			{plainEntry(testPost(40, bob)), plainEntry(testPost(30, bob))},
			{plainEntry(testPost(20, bob)), plainEntry(testPost(10, bob))},
		}}
	}

	m1, err := NewMergeFeed(MergeChronological, []Source{short(), long()}, nil)
	require.NoError(t, err)
	page, err := m1.FetchPage(ctx, "", 3)
	require.NoError(t, err)
	require.NotNil(t, page.Cursor)

	emitted := make(map[string]bool)
	for _, e := range page.Feed {
		emitted[e.Post.Uri] = true
	}
	require.True(t, emitted[testPost(50, alice).Uri], "short source fully emitted before hand-off")

	// fresh object, same cursor: the spent source must stay spent, not be
	// refetched from the top
	m2, err := NewMergeFeed(MergeChronological, []Source{short(), long()}, nil)
	require.NoError(t, err)
	cursor := *page.Cursor
	for {
		next, err := m2.FetchPage(ctx, cursor, 3)
		require.NoError(t, err)
		for _, e := range next.Feed {
			assert.False(emitted[e.Post.Uri], "entry %s re-emitted after resume", e.Post.Uri)
			emitted[e.Post.Uri] = true
		}
		if next.Cursor == nil {
			break
		}
		cursor = *next.Cursor
	}
	assert.Len(emitted, 5)
}

func TestMergeFeedBadInputs(t *testing.T) {
	assert := assert.New(t)

	_, err := NewMergeFeed(MergeChronological, nil, nil)
	assert.Error(err)

	a := &stubSource{name: "a"}
	_, err = NewMergeFeed(MergeWeighted, []Source{a}, []int{1, 2})
	assert.Error(err)
	_, err = NewMergeFeed(MergeWeighted, []Source{a}, []int{0})
	assert.Error(err)

	// colliding idents would share one buffer and cursor slot
	b := &stubSource{name: "a"}
	_, err = NewMergeFeed(MergeChronological, []Source{a, b}, nil)
	assert.Error(err)
}
