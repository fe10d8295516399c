package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Poller periodically peeks at the head of a feed to answer "are there new
// posts above what's on screen". Every check is a dry run against the Tuner:
// it reuses the session's dedup state to recognize what's new, but commits
// nothing, so the real pagination is undisturbed no matter how often the
// poll fires.
type Poller struct {
	Source   Source
	Tuner    *Tuner
	Interval time.Duration

	// Limiter bounds upstream calls. Checks that would exceed it are
	// skipped, not queued. Optional.
	Limiter *rate.Limiter

	// OnNew receives the unseen slices found by a check, newest first.
	// Called only when at least one slice is new.
	OnNew func([]*Slice)

	// PeekLimit is how many head entries each check fetches (default 30).
	PeekLimit int

	Logger *slog.Logger
}

// Run polls until ctx is cancelled. The caller owns cancellation; there is
// no global timer. Tests should call Check directly instead of running this.
func (p *Poller) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		return fmt.Errorf("poller interval must be positive")
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Check(ctx); err != nil {
				p.logger().Warn("peek-latest check failed", "feed", p.Source.Ident(), "err", err)
			}
		}
	}
}

// Check performs one peek. It returns the slices at the feed head that the
// session has not yet committed, or nil when there is nothing new or the
// rate limiter declined the call. A Tuner.Reset between dispatch and
// completion marks the result stale, and it is discarded.
func (p *Poller) Check(ctx context.Context) ([]*Slice, error) {
	if p.Limiter != nil && !p.Limiter.Allow() {
		pollChecksSkipped.Inc()
		return nil, nil
	}
	limit := p.PeekLimit
	if limit <= 0 {
		limit = 30
	}

	gen := p.Tuner.Generation()
	page, err := p.Source.FetchPage(ctx, "", limit)
	if err != nil {
		return nil, fmt.Errorf("peeking %s: %w", p.Source.Ident(), err)
	}
	if p.Tuner.Generation() != gen {
		pollChecksStale.Inc()
		return nil, nil
	}

	slices := p.Tuner.Tune(page.Feed, TuneOpts{DryRun: true})
	pollChecks.Inc()
	if len(slices) == 0 {
		return nil, nil
	}
	if p.OnNew != nil {
		p.OnNew(slices)
	}
	return slices, nil
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
