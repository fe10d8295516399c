// Package client is a typed query client for the AppView endpoints the
// assembly core consumes: timeline/feed pages and full post threads. Query
// methods only; no auth-token refresh or procedures, which belong to the
// session layer.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/bluesky-social/skyview/views"
)

// DefaultHost is the public Bluesky AppView.
const DefaultHost = "https://public.api.bsky.app"

// RobustHTTPClient returns an HTTP client with general-purpose retry
// behavior: connection errors, 5xx (except 501), and 429 with Retry-After
// honored. Intermediate failures log at the levels retryablehttp picks;
// slog satisfies its LeveledLogger contract directly.
func RobustHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(slog.Default())
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return client
}

type Client struct {
	// Host is the AppView base URL. Defaults to DefaultHost.
	Host string

	// Client is the HTTP client to use. Defaults to RobustHTTPClient().
	Client *http.Client

	// AccessJwt, when set, is sent as a bearer token so viewer-state
	// fields come back populated.
	AccessJwt string

	UserAgent string
}

func (c *Client) host() string {
	if c.Host != "" {
		return c.Host
	}
	return DefaultHost
}

func (c *Client) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return RobustHTTPClient()
}

// XRPCError is the error document XRPC endpoints return.
type XRPCError struct {
	ErrStr  string `json:"error"`
	Message string `json:"message"`
}

func (xe *XRPCError) Error() string {
	return fmt.Sprintf("%s: %s", xe.ErrStr, xe.Message)
}

// Error wraps a failed XRPC call with its HTTP status and any ratelimit
// headers the server attached.
type Error struct {
	StatusCode int
	Wrapped    error
	Ratelimit  *RatelimitInfo
}

type RatelimitInfo struct {
	Limit     int
	Remaining int
	Policy    string
	Reset     time.Time
}

func (e *Error) Error() string {
	if e.Wrapped == nil {
		return fmt.Sprintf("XRPC ERROR %d", e.StatusCode)
	}
	return fmt.Sprintf("XRPC ERROR %d: %s", e.StatusCode, e.Wrapped)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

func (e *Error) IsThrottled() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func errorFromResponse(resp *http.Response, err error) error {
	r := &Error{
		StatusCode: resp.StatusCode,
		Wrapped:    err,
	}
	if resp.Header.Get("ratelimit-limit") != "" {
		r.Ratelimit = &RatelimitInfo{
			Policy: resp.Header.Get("ratelimit-policy"),
		}
		if n, err := strconv.ParseInt(resp.Header.Get("ratelimit-reset"), 10, 64); err == nil {
			r.Ratelimit.Reset = time.Unix(n, 0)
		}
		if n, err := strconv.ParseInt(resp.Header.Get("ratelimit-limit"), 10, 64); err == nil {
			r.Ratelimit.Limit = int(n)
		}
		if n, err := strconv.ParseInt(resp.Header.Get("ratelimit-remaining"), 10, 64); err == nil {
			r.Ratelimit.Remaining = int(n)
		}
	}
	return r
}

func (c *Client) query(ctx context.Context, method string, params url.Values, out any) error {
	uri := c.host() + "/xrpc/" + method
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	} else {
		req.Header.Set("User-Agent", "skyview/"+versioninfo.Short())
	}
	if c.AccessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessJwt)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var xe XRPCError
		if err := json.NewDecoder(resp.Body).Decode(&xe); err != nil {
			return errorFromResponse(resp, fmt.Errorf("failed to decode xrpc error message: %w", err))
		}
		return errorFromResponse(resp, &xe)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding xrpc response: %w", err)
		}
	}
	return nil
}

// FeedPage is the {cursor, items[]} shape shared by all feed queries.
type FeedPage struct {
	Cursor *string               `json:"cursor,omitempty"`
	Feed   []*views.FeedViewPost `json:"feed"`
}

// GetTimeline fetches one page of the viewer's following timeline
// (app.bsky.feed.getTimeline).
func (c *Client) GetTimeline(ctx context.Context, cursor string, limit int) (*FeedPage, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out FeedPage
	if err := c.query(ctx, "app.bsky.feed.getTimeline", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFeed fetches one page of a feed generator's output
// (app.bsky.feed.getFeed).
func (c *Client) GetFeed(ctx context.Context, feedURI, cursor string, limit int) (*FeedPage, error) {
	params := url.Values{}
	params.Set("feed", feedURI)
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out FeedPage
	if err := c.query(ctx, "app.bsky.feed.getFeed", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type getPostThreadOutput struct {
	Thread *views.ThreadViewPost_Parent `json:"thread"`
}

// GetPostThread fetches the full reply tree around uri
// (app.bsky.feed.getPostThread). The whole tree comes back in one call;
// depth and parentHeight bound how far it reaches.
func (c *Client) GetPostThread(ctx context.Context, uri string, depth, parentHeight int) (*views.ThreadViewPost, error) {
	params := url.Values{}
	params.Set("uri", uri)
	if depth > 0 {
		params.Set("depth", strconv.Itoa(depth))
	}
	if parentHeight > 0 {
		params.Set("parentHeight", strconv.Itoa(parentHeight))
	}
	var out getPostThreadOutput
	if err := c.query(ctx, "app.bsky.feed.getPostThread", params, &out); err != nil {
		return nil, err
	}
	if out.Thread == nil {
		return nil, fmt.Errorf("empty thread response for %s", uri)
	}
	if out.Thread.NotFoundPost != nil {
		return nil, fmt.Errorf("post not found: %s", uri)
	}
	if out.Thread.BlockedPost != nil {
		return nil, fmt.Errorf("post blocked for viewer: %s", uri)
	}
	return out.Thread.ThreadViewPost, nil
}
