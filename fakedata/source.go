package fakedata

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bluesky-social/skyview/feeds"
)

// Source serves generated pages through the feeds.Source contract, so the
// CLI and interleaving paths run unchanged against synthetic data.
type Source struct {
	gen      *Generator
	name     string
	pageSize int
	maxPages int
}

var _ feeds.Source = (*Source)(nil)

func NewSource(name string, seed int64, pageSize, maxPages int) *Source {
	if pageSize <= 0 {
		pageSize = 30
	}
	if maxPages <= 0 {
		maxPages = 10
	}
	return &Source{
		gen:      NewGenerator(seed),
		name:     name,
		pageSize: pageSize,
		maxPages: maxPages,
	}
}

func (s *Source) Ident() string {
	return s.name
}

func (s *Source) FetchPage(ctx context.Context, cursor string, limit int) (*feeds.Page, error) {
	pageNum := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q: %w", cursor, err)
		}
		pageNum = n
	}
	if pageNum >= s.maxPages {
		return &feeds.Page{}, nil
	}
	n := s.pageSize
	if limit > 0 && limit < n {
		n = limit
	}
	page := &feeds.Page{Feed: s.gen.FeedPage(n)}
	if pageNum+1 < s.maxPages {
		next := strconv.Itoa(pageNum + 1)
		page.Cursor = &next
	}
	return page, nil
}
