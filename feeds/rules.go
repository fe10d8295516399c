package feeds

import (
	"github.com/bluesky-social/skyview/views"
)

// RuleKind is the closed set of tuner rules. Rules are applied in the order
// given; the switch in dropsEntry is exhaustive over these variants, so a new
// rule can't be added without deciding what the pipeline does with it.
type RuleKind int

const (
	// RuleHideReplies drops reply entries. Reposted replies survive: the
	// repost reason makes them a repost entry from the viewer's side.
	RuleHideReplies RuleKind = iota

	// RuleHideReposts drops entries carrying a repost reason.
	RuleHideReposts

	// RuleHideQuotePosts drops entries whose post quotes another record.
	// Detached quotes don't count; there is nothing being quoted anymore.
	RuleHideQuotePosts

	// RuleFollowedRepliesOnly drops reply entries whose immediate parent is
	// authored by someone the viewer does not follow.
	RuleFollowedRepliesOnly

	// RuleThreadMerge collapses consecutive entries sharing one reply root
	// into a single multi-item slice.
	RuleThreadMerge
)

// Rule is one tuner rule instance. Today no variant carries parameters; the
// struct leaves room for them without changing the Tuner signature.
type Rule struct {
	Kind RuleKind
}

// DefaultRules is the tuning applied to a standard following timeline.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: RuleThreadMerge},
	}
}

// dropsEntry applies the filtering rule variants to a single raw entry,
// reporting whether any active rule excludes it. Grouping rules are handled
// separately by the Tuner.
func dropsEntry(rules []Rule, e *views.FeedViewPost) bool {
	isReply := e.Reply != nil
	isRepost := e.Reason != nil
	for _, r := range rules {
		switch r.Kind {
		case RuleHideReplies:
			if isReply && !isRepost {
				return true
			}
		case RuleHideReposts:
			if isRepost {
				return true
			}
		case RuleHideQuotePosts:
			if isQuotePost(e.Post) {
				return true
			}
		case RuleFollowedRepliesOnly:
			if isReply && !isRepost && !parentAuthorFollowed(e) {
				return true
			}
		case RuleThreadMerge:
			// grouping, not filtering
		}
	}
	return false
}

func hasRule(rules []Rule, kind RuleKind) bool {
	for _, r := range rules {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

func isQuotePost(p *views.PostView) bool {
	if p.Embed == nil || p.Embed.EmbedRecord_View == nil {
		return false
	}
	rec := p.Embed.EmbedRecord_View.Record
	return rec != nil && rec.ViewDetached == nil
}

func parentAuthorFollowed(e *views.FeedViewPost) bool {
	if e.Reply == nil || e.Reply.Parent == nil || e.Reply.Parent.PostView == nil {
		return false
	}
	parent := e.Reply.Parent.PostView
	if parent.Author == nil || parent.Author.Viewer == nil {
		return false
	}
	return parent.Author.Viewer.Following != nil
}
