package streak

import (
	"context"
	"errors"
	"sync"
	"time"

	"skystreak/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skystreak_feed_pages_fetched_total",
		Help: "The total number of author feed pages fetched from the appview",
	})

	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skystreak_feed_fetch_retries_total",
		Help: "The total number of retried page fetches",
	})

	dayCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skystreak_day_cache_hits_total",
		Help: "The total number of day lookups answered from the cache",
	})

	dayCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skystreak_day_cache_misses_total",
		Help: "The total number of day lookups that had to scan the feed",
	})
)

const (
	// Page size for historical feed scans.
	historyPageLimit = 100

	// Extra attempts after the first failed page fetch.
	maxPageRetries = 3
)

// FeedClient is the slice of the appview client the streak engine consumes.
type FeedClient interface {
	AuthorFeedPage(ctx context.Context, handle string, cursor string, limit int64) (*models.FeedPage, error)
}

type dayKey struct {
	handle string
	day    models.Day
}

// Index answers "did this handle post on this calendar day", paginating the
// author feed as needed. Results are memoized per (handle, day) for the
// session; entries are immutable until Reset.
type Index struct {
	client FeedClient

	mu    sync.Mutex
	cache map[dayKey]bool

	// Injectable so tests can observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewIndex(client FeedClient) *Index {
	return &Index{
		client: client,
		cache:  make(map[dayKey]bool),
		sleep:  sleepContext,
	}
}

// HasPost reports whether the handle has at least one qualifying post on the
// given day. A day with no post anywhere in history scans the entire feed
// before answering false; that cost is paid once per (handle, day).
func (ix *Index) HasPost(ctx context.Context, handle string, day models.Day) (bool, error) {
	key := dayKey{handle: handle, day: day}

	ix.mu.Lock()
	if found, ok := ix.cache[key]; ok {
		ix.mu.Unlock()
		dayCacheHits.Inc()
		return found, nil
	}
	ix.mu.Unlock()

	dayCacheMisses.Inc()

	found, err := ix.scan(ctx, handle, day)
	if err != nil {
		return false, err
	}

	ix.mu.Lock()
	ix.cache[key] = found
	ix.mu.Unlock()

	return found, nil
}

// Reset drops every cached day. Called on explicit refresh only.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.cache = make(map[dayKey]bool)
}

func (ix *Index) scan(ctx context.Context, handle string, day models.Day) (bool, error) {
	cursor := ""

	for {
		page, err := ix.fetchPage(ctx, handle, cursor)
		if err != nil {
			return false, err
		}

		if lo.SomeBy(page.Posts, func(post models.FeedPost) bool {
			return day.Contains(post.IndexedAt)
		}) {
			// Stop paginating as soon as the day is matched.
			return true, nil
		}

		if len(page.Posts) == 0 || page.Cursor == "" {
			return false, nil
		}

		cursor = page.Cursor
	}
}

// fetchPage retries transient failures with exponential backoff (1s, 2s, 4s)
// and gives up after maxPageRetries extra attempts.
func (ix *Index) fetchPage(ctx context.Context, handle string, cursor string) (*models.FeedPage, error) {
	bo := backoff.WithMaxRetries(newBackOff(), maxPageRetries)

	for {
		page, err := ix.client.AuthorFeedPage(ctx, handle, cursor, historyPageLimit)
		if err == nil {
			pagesFetched.Inc()
			return page, nil
		}

		if !retryable(err) {
			return nil, err
		}

		next := bo.NextBackOff()
		if next == backoff.Stop {
			return nil, err
		}

		fetchRetries.Inc()
		log.WithFields(log.Fields{
			"handle": handle,
			"delay":  next,
			"error":  err,
		}).Warn("Retrying feed page fetch")

		if err := ix.sleep(ctx, next); err != nil {
			return nil, err
		}
	}
}

func newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

// Malformed responses count as retryable, same as transport failures.
func retryable(err error) bool {
	var netErr *models.NetworkError
	var malformedErr *models.MalformedResponseError
	return errors.As(err, &netErr) || errors.As(err, &malformedErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
