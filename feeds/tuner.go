package feeds

import (
	"log/slog"
	"sync"

	"github.com/bluesky-social/skyview/views"
)

// TuneOpts modifies a single Tune call.
type TuneOpts struct {
	// DryRun inspects the committed dedup state but never writes to it.
	// Peek-latest polling uses this so repeated polls of the feed head don't
	// poison the state the real pagination depends on.
	DryRun bool
}

// Tuner converts raw feed pages into slices. It is safe for concurrent use;
// in practice calls interleave on one goroutine per display surface.
type Tuner struct {
	rules  []Rule
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
	gen  uint64
}

func NewTuner(rules []Rule, logger *slog.Logger) *Tuner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tuner{
		rules:  rules,
		logger: logger.With("component", "feed-tuner"),
		seen:   make(map[string]struct{}),
	}
}

// Reset clears the session dedup state. Call it when pagination restarts
// from a cursor-less fetch (pull to refresh). It also bumps the tuner
// generation, which in-flight pollers use to discard stale results.
func (t *Tuner) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[string]struct{})
	t.gen++
}

// Generation returns an opaque counter incremented by Reset. Snapshot it
// before an async fetch and compare after: a mismatch means the result
// belongs to an abandoned pagination session.
func (t *Tuner) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Tune applies the rule chain to one page of raw entries and returns the
// display-ready slices. Entries already emitted earlier in the session are
// suppressed. Malformed entries are dropped, never fatal for the page.
func (t *Tuner) Tune(entries []*views.FeedViewPost, opts TuneOpts) []*Slice {
	kept := make([]*views.FeedViewPost, 0, len(entries))
	for _, e := range entries {
		if err := views.ValidateFeedEntry(e); err != nil {
			entriesMalformed.Inc()
			t.logger.Debug("dropping malformed feed entry", "err", err)
			continue
		}
		if dropsEntry(t.rules, e) {
			entriesFiltered.Inc()
			continue
		}
		kept = append(kept, e)
	}

	slices := t.group(kept)

	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Slice, 0, len(slices))
	for _, s := range slices {
		items := s.Items[:0:len(s.Items)]
		for _, it := range s.Items {
			if _, dup := t.seen[it.Post.Uri]; dup {
				entriesDeduped.Inc()
				continue
			}
			items = append(items, it)
			if !opts.DryRun {
				t.seen[it.Post.Uri] = struct{}{}
			}
		}
		if len(items) == 0 {
			continue
		}
		s.Items = items
		s.finalize()
		out = append(out, s)
	}
	if !opts.DryRun {
		slicesEmitted.Add(float64(len(out)))
	}
	return out
}

// group walks the filtered entries in order, collapsing consecutive reply
// entries that share a root into one slice when thread merging is active.
// Repost reasons never affect the grouping key: a repost of a reply is its
// own slice, attributed to the reposter.
func (t *Tuner) group(entries []*views.FeedViewPost) []*Slice {
	merge := hasRule(t.rules, RuleThreadMerge)
	var out []*Slice
	var cur *Slice
	curMergeable := false
	for _, e := range entries {
		it := newItem(e)
		if merge && curMergeable && it.Reason == nil && it.RootURI != "" &&
			cur.RootURI == it.RootURI && !sliceContains(cur, it.Post.Uri) {
			cur.Items = append(cur.Items, it)
			continue
		}
		root := it.RootURI
		if root == "" || it.Reason != nil {
			// non-replies root their own chain; reposts group by nothing
			root = it.Post.Uri
		}
		cur = &Slice{Items: []*Item{it}, RootURI: root}
		curMergeable = it.Reason == nil
		out = append(out, cur)
	}
	// in-page duplicate posts across different slices
	seenHere := make(map[string]struct{})
	deduped := out[:0]
	for _, s := range out {
		items := s.Items[:0:len(s.Items)]
		for _, it := range s.Items {
			if _, dup := seenHere[it.Post.Uri]; dup {
				entriesDeduped.Inc()
				continue
			}
			seenHere[it.Post.Uri] = struct{}{}
			items = append(items, it)
		}
		if len(items) == 0 {
			continue
		}
		s.Items = items
		deduped = append(deduped, s)
	}
	return deduped
}

func sliceContains(s *Slice, uri string) bool {
	for _, it := range s.Items {
		if it.Post.Uri == uri {
			return true
		}
	}
	return false
}
