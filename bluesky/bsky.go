package bluesky

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"skystreak/models"

	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/labstack/gommon/log"
)

// DefaultAppViewHost is the public, unauthenticated Bluesky appview.
const DefaultAppViewHost = "https://public.api.bsky.app"

// DefaultFetchTimeout bounds a single feed request. Retry policy lives with
// the caller, not here.
const DefaultFetchTimeout = 5 * time.Second

// Only top-level posts count towards a streak.
const feedFilter = "posts_no_replies"

type Client struct {
	xrpc    *xrpc.Client
	timeout time.Duration
}

// NewClient creates an appview client. An empty host selects the public
// appview, a zero timeout the default fetch deadline.
func NewClient(host string, timeout time.Duration) *Client {
	if host == "" {
		host = DefaultAppViewHost
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	return &Client{
		xrpc: &xrpc.Client{
			Host:   host,
			Client: http.DefaultClient,
		},
		timeout: timeout,
	}
}

// ResolveHandle checks that the handle exists on the appview and returns its
// canonical form. Failures are fatal for the caller, so they are reported as
// identity resolution errors rather than network errors.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	profile, err := bsky.ActorGetProfile(ctx, c.xrpc, handle)
	if err != nil {
		log.Errorf("failed to get profile for %s: %s", handle, err)
		return "", &models.IdentityResolutionError{Handle: handle, Err: err}
	}

	return profile.Handle, nil
}

// AuthorFeedPage fetches one page of the author feed, most recent first and
// filtered to non-reply posts. An empty cursor requests the newest page; an
// empty cursor in the result means the feed is exhausted.
func (c *Client) AuthorFeedPage(ctx context.Context, handle string, cursor string, limit int64) (*models.FeedPage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := bsky.FeedGetAuthorFeed(ctx, c.xrpc, handle, cursor, feedFilter, false, limit)
	if err != nil {
		return nil, &models.NetworkError{Err: fmt.Errorf("get author feed for %s: %w", handle, err)}
	}

	page := &models.FeedPage{}
	if resp.Cursor != nil {
		page.Cursor = *resp.Cursor
	}

	for _, item := range resp.Feed {
		if item.Post == nil {
			return nil, &models.MalformedResponseError{Err: fmt.Errorf("feed item without post for %s", handle)}
		}

		indexedAt, err := time.Parse(time.RFC3339, item.Post.IndexedAt)
		if err != nil {
			return nil, &models.MalformedResponseError{Err: fmt.Errorf("parse indexedAt %q: %w", item.Post.IndexedAt, err)}
		}

		page.Posts = append(page.Posts, models.FeedPost{
			Uri:       item.Post.Uri,
			IndexedAt: indexedAt,
		})
	}

	return page, nil
}
