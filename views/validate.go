package views

import (
	"fmt"
	"time"
)

// Validation here enforces the minimum the assembly core needs to trust an
// entry. The policy for anything that fails is drop-the-item, keep-the-page;
// callers count the drops, they don't surface them.

// ValidatePost checks the fields the slicing and merge code dereferences.
func ValidatePost(p *PostView) error {
	if p == nil {
		return fmt.Errorf("nil post view")
	}
	if p.Uri == "" {
		return fmt.Errorf("post missing uri")
	}
	if p.Cid == "" {
		return fmt.Errorf("post %s missing cid", p.Uri)
	}
	if p.Author == nil || p.Author.Did == "" {
		return fmt.Errorf("post %s missing author", p.Uri)
	}
	if p.Record == nil {
		return fmt.Errorf("post %s missing record", p.Uri)
	}
	if p.Record.CreatedAt != "" {
		if _, err := time.Parse(time.RFC3339, p.Record.CreatedAt); err != nil {
			return fmt.Errorf("post %s bad createdAt: %w", p.Uri, err)
		}
	}
	if p.IndexedAt != "" {
		if _, err := time.Parse(time.RFC3339, p.IndexedAt); err != nil {
			return fmt.Errorf("post %s bad indexedAt: %w", p.Uri, err)
		}
	}
	return nil
}

// ValidateFeedEntry checks a raw feed entry, including the repost reason when
// present. Reply refs are allowed to be partial (roots and parents go missing
// all the time); only the primary post is load-bearing.
func ValidateFeedEntry(e *FeedViewPost) error {
	if e == nil {
		return fmt.Errorf("nil feed entry")
	}
	if err := ValidatePost(e.Post); err != nil {
		return err
	}
	if e.Reason != nil && (e.Reason.By == nil || e.Reason.By.Did == "") {
		return fmt.Errorf("post %s repost reason missing actor", e.Post.Uri)
	}
	return nil
}

// PostIndexedAt parses the server indexing timestamp, falling back to the
// record's createdAt, then to the zero time. Interleaving and reply sorting
// both key off this.
func PostIndexedAt(p *PostView) time.Time {
	if p == nil {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, p.IndexedAt); err == nil {
		return t
	}
	if p.Record != nil {
		if t, err := time.Parse(time.RFC3339, p.Record.CreatedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// HasLabel reports whether the given self or service label value is applied
// to the profile.
func HasLabel(labels []*Label, val string) bool {
	for _, l := range labels {
		if l != nil && l.Val == val && !l.Neg {
			return true
		}
	}
	return false
}
