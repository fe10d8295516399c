// Package fakedata generates deterministic synthetic feed pages and reply
// trees. The CLI uses it to exercise the assembly pipeline offline, and
// benchmarks use it for stable inputs. Same seed, same data.
package fakedata

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/bluesky-social/skyview/views"
)

type Generator struct {
	faker *gofakeit.Faker

	seq     int
	now     time.Time
	authors []*views.ProfileViewBasic
}

// NewGenerator seeds a generator. Posts are timestamped walking backwards
// from a fixed epoch so pages come out reverse-chronological like a real
// timeline.
func NewGenerator(seed int64) *Generator {
	g := &Generator{
		faker: gofakeit.New(seed),
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 12; i++ {
		g.authors = append(g.authors, g.newProfile())
	}
	return g
}

func (g *Generator) newProfile() *views.ProfileViewBasic {
	name := g.faker.Name()
	return &views.ProfileViewBasic{
		Did:         fmt.Sprintf("did:plc:%s", g.faker.LetterN(24)),
		Handle:      g.faker.Username() + ".bsky.social",
		DisplayName: &name,
	}
}

// Author returns one of the generator's fixed cast.
func (g *Generator) Author(i int) *views.ProfileViewBasic {
	return g.authors[i%len(g.authors)]
}

func (g *Generator) nextTime() string {
	g.now = g.now.Add(-time.Duration(30+g.faker.IntRange(0, 90)) * time.Second)
	return g.now.Format(time.RFC3339)
}

// Post builds a valid post view by the given author.
func (g *Generator) Post(author *views.ProfileViewBasic) *views.PostView {
	g.seq++
	at := g.nextTime()
	var likes, reposts, replies int64
	likes = int64(g.faker.IntRange(0, 500))
	reposts = int64(g.faker.IntRange(0, 80))
	return &views.PostView{
		Uri:    fmt.Sprintf("at://%s/app.bsky.feed.post/%d", author.Did, g.seq),
		Cid:    fmt.Sprintf("bafyfake%s", g.faker.LetterN(16)),
		Author: author,
		Record: &views.FeedPost{
			Text:      g.faker.Sentence(g.faker.IntRange(3, 12)),
			CreatedAt: at,
		},
		IndexedAt:   at,
		LikeCount:   &likes,
		RepostCount: &reposts,
		ReplyCount:  &replies,
		Viewer:      &views.ViewerState{},
	}
}

// Reply builds a post replying to parent within root's thread, and wires the
// record-level reply refs so slicing sees a proper chain.
func (g *Generator) Reply(author *views.ProfileViewBasic, root, parent *views.PostView) *views.PostView {
	p := g.Post(author)
	p.Record.Reply = &views.FeedPost_Reply{
		Root:   &views.StrongRef{Uri: root.Uri, Cid: root.Cid},
		Parent: &views.StrongRef{Uri: parent.Uri, Cid: parent.Cid},
	}
	return p
}

// FeedPage builds n feed entries: mostly standalone posts, with reply chains
// and the occasional repost mixed in the way a following timeline has them.
func (g *Generator) FeedPage(n int) []*views.FeedViewPost {
	var out []*views.FeedViewPost
	for len(out) < n {
		switch g.faker.IntRange(0, 9) {
		case 0, 1: // reply chain: root plus 1-2 same-author replies
			author := g.Author(g.faker.IntRange(0, len(g.authors)-1))
			root := g.Post(author)
			out = append(out, &views.FeedViewPost{Post: root})
			parent := root
			for i := 0; i < g.faker.IntRange(1, 2) && len(out) < n; i++ {
				reply := g.Reply(author, root, parent)
				out = append(out, &views.FeedViewPost{
					Post: reply,
					Reply: &views.ReplyRef{
						Root:   &views.ReplyRef_Post{PostView: root},
						Parent: &views.ReplyRef_Post{PostView: parent},
					},
				})
				parent = reply
			}
		case 2: // repost
			author := g.Author(g.faker.IntRange(0, len(g.authors)-1))
			reposter := g.Author(g.faker.IntRange(0, len(g.authors)-1))
			out = append(out, &views.FeedViewPost{
				Post: g.Post(author),
				Reason: &views.ReasonRepost{
					By:        reposter,
					IndexedAt: g.now.Format(time.RFC3339),
				},
			})
		default:
			author := g.Author(g.faker.IntRange(0, len(g.authors)-1))
			out = append(out, &views.FeedViewPost{Post: g.Post(author)})
		}
	}
	return out[:n]
}

// Thread builds a reply tree: depth levels below the focal post, fanout
// replies per level, with distinct authors so branches are visible.
func (g *Generator) Thread(depth, fanout int) *views.ThreadViewPost {
	focal := g.Post(g.Author(0))
	tv := &views.ThreadViewPost{Post: focal}
	g.growReplies(tv, focal, focal, depth, fanout)
	return tv
}

func (g *Generator) growReplies(tv *views.ThreadViewPost, root, parent *views.PostView, depth, fanout int) {
	if depth <= 0 {
		return
	}
	n := int64(fanout)
	if parent.ReplyCount != nil {
		*parent.ReplyCount = n
	}
	for i := 0; i < fanout; i++ {
		reply := g.Reply(g.Author(i+1), root, parent)
		child := &views.ThreadViewPost{Post: reply}
		g.growReplies(child, root, reply, depth-1, fanout)
		tv.Replies = append(tv.Replies, &views.ThreadViewPost_Replies{ThreadViewPost: child})
	}
}
