package streak

import (
	"context"
	"time"

	"skystreak/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Page size for the today check. The few most recent posts are enough to
// cover a single day.
const todayPageLimit = 5

// TodayChecker answers "did this handle post today" with a single cheap
// fetch. It never paginates and never retries.
type TodayChecker struct {
	client FeedClient
	now    func() time.Time
}

func NewTodayChecker(client FeedClient) *TodayChecker {
	return &TodayChecker{
		client: client,
		now:    time.Now,
	}
}

// HasPostedToday reports whether any of the most recent posts falls on the
// current UTC day. Fails open: on any fetch error the answer is false and the
// next run corrects it.
func (tc *TodayChecker) HasPostedToday(ctx context.Context, handle string) bool {
	page, err := tc.client.AuthorFeedPage(ctx, handle, "", todayPageLimit)
	if err != nil {
		log.WithFields(log.Fields{
			"handle": handle,
			"error":  err,
		}).Warn("Today check failed, assuming no post")
		return false
	}

	today := models.DayOf(tc.now())
	return lo.SomeBy(page.Posts, func(post models.FeedPost) bool {
		return today.Contains(post.IndexedAt)
	})
}
