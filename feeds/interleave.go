package feeds

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bluesky-social/skyview/views"
)

// Page is one fetch's worth of a feed. A nil cursor means the source is
// exhausted.
type Page struct {
	Cursor *string
	Feed   []*views.FeedViewPost
}

// Source is a paginated feed upstream. client.FeedSource adapts the XRPC
// client; fakedata provides synthetic ones for tests and the CLI.
type Source interface {
	Ident() string
	FetchPage(ctx context.Context, cursor string, limit int) (*Page, error)
}

// MergePolicy selects how MergeFeed interleaves its sources.
type MergePolicy int

const (
	// MergeChronological emits the globally newest buffered entry first,
	// by post indexedAt.
	MergeChronological MergePolicy = iota

	// MergeWeighted deals entries round-robin, taking weight[i] entries
	// from source i per rotation while it has any buffered.
	MergeWeighted
)

// MergeFeed combines several sources behind the single-source page/cursor
// contract, so downstream slicing stays source-agnostic. It is stateful: it
// buffers fetched-but-unemitted entries between calls. The returned cursor
// encodes each live source's next page plus the set of exhausted sources;
// resuming from it on a fresh MergeFeed re-seeds that state, so a spent
// source is never refetched from the top.
//
// Cross-source duplicates are not removed here; that is the Tuner's job.
type MergeFeed struct {
	policy  MergePolicy
	sources []Source
	weights []int

	cursors   map[string]string
	done      map[string]bool
	bufs      map[string][]*views.FeedViewPost
	rrIndex   int
	lastToken string
}

func NewMergeFeed(policy MergePolicy, sources []Source, weights []int) (*MergeFeed, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("merge feed needs at least one source")
	}
	idents := make(map[string]bool, len(sources))
	for _, src := range sources {
		if idents[src.Ident()] {
			return nil, fmt.Errorf("duplicate source ident %q", src.Ident())
		}
		idents[src.Ident()] = true
	}
	if policy == MergeWeighted {
		if len(weights) != len(sources) {
			return nil, fmt.Errorf("weighted merge needs one weight per source (%d != %d)", len(weights), len(sources))
		}
		for i, w := range weights {
			if w < 1 {
				return nil, fmt.Errorf("weight for source %q must be >= 1, got %d", sources[i].Ident(), w)
			}
		}
	}
	m := &MergeFeed{
		policy:  policy,
		sources: sources,
		weights: weights,
	}
	m.resetState()
	return m, nil
}

func (m *MergeFeed) Ident() string {
	idents := make([]string, len(m.sources))
	for i, s := range m.sources {
		idents[i] = s.Ident()
	}
	return "merge(" + strings.Join(idents, "+") + ")"
}

func (m *MergeFeed) resetState() {
	m.cursors = make(map[string]string)
	m.done = make(map[string]bool)
	m.bufs = make(map[string][]*views.FeedViewPost)
	m.rrIndex = 0
	m.lastToken = ""
}

// FetchPage implements Source.
func (m *MergeFeed) FetchPage(ctx context.Context, cursor string, limit int) (*Page, error) {
	if limit < 1 {
		limit = 50
	}
	if cursor == "" {
		m.resetState()
	} else if cursor != m.lastToken {
		// resuming a sequence this object doesn't hold; re-seed from token
		seed, err := decodeMergeCursor(cursor)
		if err != nil {
			return nil, fmt.Errorf("bad merge cursor: %w", err)
		}
		m.resetState()
		for ident, c := range seed.Cursors {
			m.cursors[ident] = c
		}
		for _, ident := range seed.Done {
			m.done[ident] = true
		}
	}

	if err := m.fill(ctx, limit); err != nil {
		return nil, err
	}

	var out []*views.FeedViewPost
	switch m.policy {
	case MergeWeighted:
		out = m.takeWeighted(limit)
	default:
		out = m.takeChronological(limit)
	}

	page := &Page{Feed: out}
	if !m.exhausted() {
		tok := m.encodeCursor()
		page.Cursor = &tok
		m.lastToken = tok
	}
	return page, nil
}

// fill tops up each live source's buffer so interleaving has material from
// every source, not just the chattiest one.
func (m *MergeFeed) fill(ctx context.Context, limit int) error {
	want := limit/len(m.sources) + 1
	for _, src := range m.sources {
		ident := src.Ident()
		if m.done[ident] || len(m.bufs[ident]) >= want {
			continue
		}
		page, err := src.FetchPage(ctx, m.cursors[ident], limit)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", ident, err)
		}
		m.bufs[ident] = append(m.bufs[ident], page.Feed...)
		if page.Cursor == nil || *page.Cursor == "" {
			m.done[ident] = true
			delete(m.cursors, ident)
		} else {
			m.cursors[ident] = *page.Cursor
		}
	}
	return nil
}

func (m *MergeFeed) takeChronological(limit int) []*views.FeedViewPost {
	var out []*views.FeedViewPost
	for len(out) < limit {
		bestIdent := ""
		var bestAt time.Time
		for _, src := range m.sources {
			buf := m.bufs[src.Ident()]
			if len(buf) == 0 {
				continue
			}
			at := views.PostIndexedAt(buf[0].Post)
			if bestIdent == "" || at.After(bestAt) {
				bestIdent = src.Ident()
				bestAt = at
			}
		}
		if bestIdent == "" {
			break
		}
		out = append(out, m.bufs[bestIdent][0])
		m.bufs[bestIdent] = m.bufs[bestIdent][1:]
	}
	return out
}

func (m *MergeFeed) takeWeighted(limit int) []*views.FeedViewPost {
	var out []*views.FeedViewPost
	for len(out) < limit && m.buffered() > 0 {
		src := m.sources[m.rrIndex%len(m.sources)]
		w := m.weights[m.rrIndex%len(m.sources)]
		m.rrIndex++
		buf := m.bufs[src.Ident()]
		for i := 0; i < w && len(buf) > 0 && len(out) < limit; i++ {
			out = append(out, buf[0])
			buf = buf[1:]
		}
		m.bufs[src.Ident()] = buf
	}
	return out
}

func (m *MergeFeed) buffered() int {
	n := 0
	for _, b := range m.bufs {
		n += len(b)
	}
	return n
}

func (m *MergeFeed) exhausted() bool {
	if m.buffered() > 0 {
		return false
	}
	for _, src := range m.sources {
		if !m.done[src.Ident()] {
			return false
		}
	}
	return true
}

// mergeCursor is the decoded form of the synthetic cursor. Done carries the
// exhausted sources; without it a resume would refetch a spent source from
// its beginning.
type mergeCursor struct {
	Cursors map[string]string `json:"cursors"`
	Done    []string          `json:"done,omitempty"`
}

func (m *MergeFeed) encodeCursor() string {
	mc := mergeCursor{Cursors: m.cursors}
	for ident, done := range m.done {
		if done {
			mc.Done = append(mc.Done, ident)
		}
	}
	sort.Strings(mc.Done)
	b, _ := json.Marshal(mc)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeMergeCursor(tok string) (*mergeCursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return nil, err
	}
	var out mergeCursor
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
