package shadow

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bluesky-social/skyview/views"
)

// MemStore is the in-process Store. Overlays live in a capacity+TTL bounded
// LRU rather than growing for the whole session: an evicted overlay behaves
// like a process restart for that one post, and the next fetched snapshot's
// own viewer-state re-derives the same information.
type MemStore struct {
	shadows *expirable.LRU[string, PostShadow]

	lk       sync.RWMutex
	subs     map[string][]*subscriber
	scanners []ScanFunc
}

type subscriber struct {
	fn func(PostShadow)
}

const (
	DefaultCapacity = 50_000
	DefaultTTL      = 24 * time.Hour
)

var _ Store = (*MemStore)(nil)

// NewMemStore builds a store holding at most capacity overlays, each
// expiring ttl after last write. Zero values select the defaults.
func NewMemStore(capacity int, ttl time.Duration) *MemStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemStore{
		shadows: expirable.NewLRU[string, PostShadow](capacity, nil, ttl),
		subs:    make(map[string][]*subscriber),
	}
}

func (m *MemStore) Get(uri string) (PostShadow, bool) {
	return m.shadows.Get(uri)
}

func (m *MemStore) Update(uri string, partial PostShadow) {
	// read-modify-write under the lock so concurrent updates to different
	// fields of one overlay can't lose each other
	m.lk.Lock()
	cur, _ := m.shadows.Get(uri)
	next := cur.apply(partial)
	m.shadows.Add(uri, next)
	m.lk.Unlock()
	shadowUpdates.Inc()
	if next.Deleted.Defined && next.Deleted.Value {
		shadowTombstones.Inc()
	}

	m.lk.RLock()
	subs := make([]*subscriber, len(m.subs[uri]))
	copy(subs, m.subs[uri])
	m.lk.RUnlock()
	for _, s := range subs {
		s.fn(next)
	}
	shadowNotifications.Add(float64(len(subs)))
}

func (m *MemStore) Subscribe(uri string, fn func(PostShadow)) func() {
	s := &subscriber{fn: fn}
	m.lk.Lock()
	m.subs[uri] = append(m.subs[uri], s)
	m.lk.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.lk.Lock()
			defer m.lk.Unlock()
			list := m.subs[uri]
			for i, cur := range list {
				if cur == s {
					list[i] = list[len(list)-1]
					list = list[:len(list)-1]
					break
				}
			}
			if len(list) == 0 {
				delete(m.subs, uri)
			} else {
				m.subs[uri] = list
			}
		})
	}
}

func (m *MemStore) Merge(post *views.PostView) *views.PostView {
	if post == nil {
		return nil
	}
	s, ok := m.shadows.Get(post.Uri)
	if !ok {
		return post
	}
	return MergeShadow(post, s)
}

func (m *MemStore) RegisterScanner(fn ScanFunc) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.scanners = append(m.scanners, fn)
}

func (m *MemStore) Occurrences(uri string) []*views.PostView {
	m.lk.RLock()
	scanners := make([]ScanFunc, len(m.scanners))
	copy(scanners, m.scanners)
	m.lk.RUnlock()

	var out []*views.PostView
	for _, scan := range scanners {
		out = append(out, scan(uri)...)
	}
	return out
}
