package main

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	cli "github.com/urfave/cli/v2"

	"github.com/bluesky-social/skyview/feeds"
	"github.com/bluesky-social/skyview/shadow"
	"github.com/bluesky-social/skyview/views"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "serve the assembled feed over HTTP (demo/debug surface)",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on",
			Value:   ":8200",
			EnvVars: []string{"SKYVIEW_BIND"},
		},
		&cli.StringFlag{
			Name:  "feed",
			Usage: "feed generator at-uri (default: following timeline)",
		},
	},
	Action: func(cctx *cli.Context) error {
		srv := &server{
			source: feedSource(cctx),
			tuner:  feeds.NewTuner(feeds.DefaultRules(), nil),
			store:  shadow.NewMemStore(0, 0),
			logger: slog.Default().With("component", "serve"),
			posts:  make(map[string][]*views.PostView),
		}
		// the feed cache is a data-holding collaborator; it hands the
		// store a scanner instead of the store importing the cache
		srv.store.RegisterScanner(srv.scanPosts)

		e := echo.New()
		e.HideBanner = true
		e.Use(slogecho.New(srv.logger))
		e.Use(middleware.Recover())

		e.GET("/_health", srv.handleHealth)
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
		e.GET("/feed", srv.handleFeed)
		e.POST("/refresh", srv.handleRefresh)
		e.GET("/post", srv.handlePost)
		e.POST("/shadow", srv.handleShadow)

		srv.logger.Info("starting server", "bind", cctx.String("bind"))
		return e.Start(cctx.String("bind"))
	},
}

type server struct {
	source feeds.Source
	tuner  *feeds.Tuner
	store  *shadow.MemStore
	logger *slog.Logger

	lk     sync.Mutex
	cursor string
	done   bool
	posts  map[string][]*views.PostView
}

func (s *server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type feedResponse struct {
	Slices []*feeds.Slice `json:"slices"`
	More   bool           `json:"more"`
}

func (s *server) handleFeed(c echo.Context) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.done {
		return c.JSON(http.StatusOK, feedResponse{More: false})
	}
	page, err := s.source.FetchPage(c.Request().Context(), s.cursor, 30)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if page.Cursor == nil {
		s.done = true
	} else {
		s.cursor = *page.Cursor
	}
	slices := s.tuner.Tune(page.Feed, feeds.TuneOpts{})
	for _, sl := range slices {
		for _, it := range sl.Items {
			s.posts[it.Post.Uri] = append(s.posts[it.Post.Uri], it.Post)
		}
	}
	return c.JSON(http.StatusOK, feedResponse{Slices: slices, More: !s.done})
}

func (s *server) handleRefresh(c echo.Context) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.tuner.Reset()
	s.cursor = ""
	s.done = false
	s.posts = make(map[string][]*views.PostView)
	return c.NoContent(http.StatusNoContent)
}

func (s *server) scanPosts(uri string) []*views.PostView {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.posts[uri]
}

// handlePost returns the shadow-merged view of a cached snapshot. A post
// locally deleted via /shadow comes back 410.
func (s *server) handlePost(c echo.Context) error {
	uri := c.QueryParam("uri")
	if uri == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing uri param")
	}
	occurrences := s.store.Occurrences(uri)
	if len(occurrences) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "post not in any fetched page")
	}
	merged := s.store.Merge(occurrences[0])
	if merged == nil {
		return echo.NewHTTPError(http.StatusGone, "post deleted locally")
	}
	return c.JSON(http.StatusOK, merged)
}

type shadowRequest struct {
	Uri     string  `json:"uri"`
	Like    *string `json:"like,omitempty"`
	Unlike  bool    `json:"unlike,omitempty"`
	Repost  *string `json:"repost,omitempty"`
	Unpost  bool    `json:"unrepost,omitempty"`
	Pinned  *bool   `json:"pinned,omitempty"`
	Deleted bool    `json:"deleted,omitempty"`
}

func (s *server) handleShadow(c echo.Context) error {
	var req shadowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Uri == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing uri")
	}
	var partial shadow.PostShadow
	if req.Like != nil {
		partial.Like = shadow.Set(req.Like)
	} else if req.Unlike {
		partial.Like = shadow.Set[*string](nil)
	}
	if req.Repost != nil {
		partial.Repost = shadow.Set(req.Repost)
	} else if req.Unpost {
		partial.Repost = shadow.Set[*string](nil)
	}
	if req.Pinned != nil {
		partial.Pinned = shadow.Set(*req.Pinned)
	}
	if req.Deleted {
		partial.Deleted = shadow.Set(true)
	}
	s.store.Update(req.Uri, partial)
	return c.NoContent(http.StatusNoContent)
}
