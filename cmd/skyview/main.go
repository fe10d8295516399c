// skyview: CLI for poking at the feed assembly and thread reconstruction
// pipeline, against the public AppView or fully offline with fake data.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/bluesky-social/skyview/client"
	"github.com/bluesky-social/skyview/fakedata"
	"github.com/bluesky-social/skyview/feeds"
	"github.com/bluesky-social/skyview/threads"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:    "skyview",
		Usage:   "feed slicing and thread flattening, from the shell",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "appview-host",
			Usage:   "method, hostname, and port of AppView instance",
			Value:   client.DefaultHost,
			EnvVars: []string{"ATP_APPVIEW_HOST"},
		},
		&cli.StringFlag{
			Name:    "access-jwt",
			Usage:   "optional bearer token; viewer-state fields need it",
			EnvVars: []string{"SKYVIEW_ACCESS_JWT"},
		},
		&cli.BoolFlag{
			Name:    "fake",
			Usage:   "use deterministic synthetic data instead of the network",
			EnvVars: []string{"SKYVIEW_FAKE"},
		},
		&cli.Int64Flag{
			Name:    "seed",
			Usage:   "seed for synthetic data",
			Value:   1,
			EnvVars: []string{"SKYVIEW_SEED"},
		},
	}

	app.Commands = []*cli.Command{
		tuneCmd,
		threadCmd,
		pollCmd,
		serveCmd,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	return app.Run(args)
}

func feedSource(cctx *cli.Context) feeds.Source {
	if cctx.Bool("fake") {
		return fakedata.NewSource("fake-timeline", cctx.Int64("seed"), 30, 10)
	}
	return &client.FeedSource{
		Client: &client.Client{
			Host:      cctx.String("appview-host"),
			AccessJwt: cctx.String("access-jwt"),
		},
		FeedURI: cctx.String("feed"),
	}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

var tuneCmd = &cli.Command{
	Name:  "tune",
	Usage: "fetch feed pages and print the tuned slices",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "feed",
			Usage: "feed generator at-uri (default: following timeline)",
		},
		&cli.IntFlag{
			Name:  "pages",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "limit",
			Value: 30,
		},
		&cli.BoolFlag{
			Name:  "hide-replies",
			Usage: "apply the hide-replies rule",
		},
		&cli.BoolFlag{
			Name:  "hide-reposts",
			Usage: "apply the hide-reposts rule",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		src := feedSource(cctx)

		rules := feeds.DefaultRules()
		if cctx.Bool("hide-replies") {
			rules = append(rules, feeds.Rule{Kind: feeds.RuleHideReplies})
		}
		if cctx.Bool("hide-reposts") {
			rules = append(rules, feeds.Rule{Kind: feeds.RuleHideReposts})
		}
		tuner := feeds.NewTuner(rules, nil)

		cursor := ""
		for i := 0; i < cctx.Int("pages"); i++ {
			page, err := src.FetchPage(ctx, cursor, cctx.Int("limit"))
			if err != nil {
				return err
			}
			slices := tuner.Tune(page.Feed, feeds.TuneOpts{})
			for _, s := range slices {
				if err := printJSON(summarizeSlice(s)); err != nil {
					return err
				}
			}
			if page.Cursor == nil {
				break
			}
			cursor = *page.Cursor
		}
		return nil
	},
}

type sliceSummary struct {
	Key      string   `json:"key"`
	RootURI  string   `json:"rootUri"`
	IsThread bool     `json:"isThread"`
	Posts    []string `json:"posts"`
}

func summarizeSlice(s *feeds.Slice) sliceSummary {
	sum := sliceSummary{
		Key:      s.Key,
		RootURI:  s.RootURI,
		IsThread: s.IsThread,
	}
	for _, it := range s.Items {
		line := fmt.Sprintf("@%s: %s", it.Post.Author.Handle, it.Post.Record.Text)
		if it.Reason != nil {
			line = fmt.Sprintf("[rt by @%s] %s", it.Reason.By.Handle, line)
		}
		sum.Posts = append(sum.Posts, line)
	}
	return sum
}

var threadCmd = &cli.Command{
	Name:      "thread",
	Usage:     "fetch a post thread and print the flattened rows",
	ArgsUsage: "<at-uri>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "sort",
			Usage: "oldest, newest, likes, or hot",
			Value: "oldest",
		},
		&cli.BoolFlag{
			Name:  "tree",
			Usage: "descend every reply branch",
			Value: true,
		},
		&cli.IntFlag{
			Name:  "max-rows",
			Value: 100,
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()

		var tv *threads.Thread
		if cctx.Bool("fake") {
			gen := fakedata.NewGenerator(cctx.Int64("seed"))
			t, err := threads.Assemble(gen.Thread(3, 2))
			if err != nil {
				return err
			}
			tv = t
		} else {
			uri := cctx.Args().First()
			if uri == "" {
				return fmt.Errorf("thread requires an at-uri argument (or --fake)")
			}
			c := &client.Client{
				Host:      cctx.String("appview-host"),
				AccessJwt: cctx.String("access-jwt"),
			}
			wire, err := c.GetPostThread(ctx, uri, 0, 0)
			if err != nil {
				return err
			}
			t, err := threads.Assemble(wire)
			if err != nil {
				return err
			}
			tv = t
		}

		order, err := parseSort(cctx.String("sort"))
		if err != nil {
			return err
		}
		rows := tv.Flatten(threads.ViewPrefs{
			TreeView:   cctx.Bool("tree"),
			Sort:       order,
			HasSession: cctx.String("access-jwt") != "" || cctx.Bool("fake"),
			MaxRows:    cctx.Int("max-rows"),
		})
		for _, r := range rows {
			fmt.Println(formatRow(r))
		}
		return nil
	},
}

func parseSort(s string) (threads.SortOrder, error) {
	switch s {
	case "oldest":
		return threads.SortOldestFirst, nil
	case "newest":
		return threads.SortNewestFirst, nil
	case "likes":
		return threads.SortMostLiked, nil
	case "hot":
		return threads.SortHot, nil
	}
	return 0, fmt.Errorf("unknown sort order: %s", s)
}

func formatRow(r threads.Row) string {
	indent := ""
	for i := 0; i < r.Depth; i++ {
		indent += "  "
	}
	switch r.Kind {
	case threads.RowPost:
		mark := " "
		if r.IsHighlighted {
			mark = "*"
		}
		return fmt.Sprintf("%s%s @%s: %s", indent, mark, r.Post.Author.Handle, r.Post.Record.Text)
	case threads.RowNotFound:
		return indent + "  [deleted]"
	case threads.RowBlocked:
		return indent + "  [blocked]"
	case threads.RowReplyPrompt:
		return indent + "  [write your reply...]"
	case threads.RowLoadMore:
		return indent + "  [load more]"
	case threads.RowEndOfThread:
		return indent + "--- end of thread ---"
	}
	return indent + "?"
}

var pollCmd = &cli.Command{
	Name:  "poll",
	Usage: "run the peek-latest poller against the feed head",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "feed",
			Usage: "feed generator at-uri (default: following timeline)",
		},
		&cli.DurationFlag{
			Name:  "interval",
			Value: 30 * time.Second,
		},
		&cli.Float64Flag{
			Name:  "rate-limit",
			Usage: "max upstream checks per second",
			Value: 0.5,
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		src := feedSource(cctx)
		tuner := feeds.NewTuner(feeds.DefaultRules(), nil)

		// commit the current head so the poller only reports what's new
		page, err := src.FetchPage(ctx, "", 30)
		if err != nil {
			return err
		}
		tuner.Tune(page.Feed, feeds.TuneOpts{})

		p := &feeds.Poller{
			Source:   src,
			Tuner:    tuner,
			Interval: cctx.Duration("interval"),
			Limiter:  rate.NewLimiter(rate.Limit(cctx.Float64("rate-limit")), 1),
			OnNew: func(slices []*feeds.Slice) {
				slog.Info("new posts at feed head", "slices", len(slices))
				for _, s := range slices {
					_ = printJSON(summarizeSlice(s))
				}
			},
		}
		slog.Info("polling", "feed", src.Ident(), "interval", cctx.Duration("interval"))
		if err := p.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
