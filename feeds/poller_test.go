package feeds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/bluesky-social/skyview/views"
)

func TestPollerCheck(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	alice := "did:plc:alice"
	head := []*views.FeedViewPost{
		plainEntry(testPost(5, alice)),
		plainEntry(testPost(4, alice)),
	}
	src := &stubSource{name: "head", pages: [][]*views.FeedViewPost{head}}
	tuner := NewTuner(DefaultRules(), nil)

	var notified [][]*Slice
	p := &Poller{
		Source: src,
		Tuner:  tuner,
		OnNew:  func(s []*Slice) { notified = append(notified, s) },
	}

	// everything at the head is new to an empty session
	slices, err := p.Check(ctx)
	require.NoError(t, err)
	assert.Len(slices, 2)
	assert.Len(notified, 1)

	// repeated checks keep seeing it; dry runs committed nothing
	slices, err = p.Check(ctx)
	require.NoError(t, err)
	assert.Len(slices, 2)

	// once the session commits the head, the poller goes quiet
	tuner.Tune(head, TuneOpts{})
	slices, err = p.Check(ctx)
	require.NoError(t, err)
	assert.Empty(slices)
	assert.Len(notified, 2)
}

func TestPollerDiscardsStaleResult(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	alice := "did:plc:alice"
	tuner := NewTuner(DefaultRules(), nil)
	src := &stubSource{
		name:  "head",
		pages: [][]*views.FeedViewPost{{plainEntry(testPost(1, alice))}},
	}
	// a refresh lands while the poll's fetch is in flight
	src.onFetch = func() { tuner.Reset() }

	p := &Poller{Source: src, Tuner: tuner}
	slices, err := p.Check(ctx)
	assert.NoError(err)
	assert.Nil(slices)
}

func TestPollerRateLimit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	alice := "did:plc:alice"
	src := &stubSource{
		name:  "head",
		pages: [][]*views.FeedViewPost{{plainEntry(testPost(1, alice))}},
	}
	p := &Poller{
		Source:  src,
		Tuner:   NewTuner(DefaultRules(), nil),
		Limiter: rate.NewLimiter(rate.Limit(0.0001), 1),
	}

	slices, err := p.Check(ctx)
	assert.NoError(err)
	assert.Len(slices, 1)
	assert.Equal(1, src.fetches)

	// second check lands inside the budget window and is skipped
	slices, err = p.Check(ctx)
	assert.NoError(err)
	assert.Nil(slices)
	assert.Equal(1, src.fetches)
}
