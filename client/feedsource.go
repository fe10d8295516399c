package client

import (
	"context"

	"github.com/bluesky-social/skyview/feeds"
)

// FeedSource adapts a Client plus a feed selection to feeds.Source, so live
// feeds interleave and tune the same way synthetic ones do.
type FeedSource struct {
	Client *Client

	// FeedURI selects a feed generator; empty means the following
	// timeline.
	FeedURI string

	// Name overrides the source identity (defaults to the feed URI or
	// "timeline").
	Name string
}

var _ feeds.Source = (*FeedSource)(nil)

func (s *FeedSource) Ident() string {
	if s.Name != "" {
		return s.Name
	}
	if s.FeedURI != "" {
		return s.FeedURI
	}
	return "timeline"
}

func (s *FeedSource) FetchPage(ctx context.Context, cursor string, limit int) (*feeds.Page, error) {
	var page *FeedPage
	var err error
	if s.FeedURI != "" {
		page, err = s.Client.GetFeed(ctx, s.FeedURI, cursor, limit)
	} else {
		page, err = s.Client.GetTimeline(ctx, cursor, limit)
	}
	if err != nil {
		return nil, err
	}
	return &feeds.Page{Cursor: page.Cursor, Feed: page.Feed}, nil
}
