package streak

import (
	"context"
	"errors"
	"testing"
	"time"

	"skystreak/models"

	"github.com/stretchr/testify/assert"
)

func TestHasPostedToday(t *testing.T) {
	now := time.Date(2026, time.August, 24, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		posts    []time.Time
		expected bool
	}{
		{
			name:     "no posts",
			posts:    []time.Time{},
			expected: false,
		},
		{
			name:     "posted earlier today",
			posts:    []time.Time{time.Date(2026, time.August, 24, 0, 5, 0, 0, time.UTC)},
			expected: true,
		},
		{
			name:     "posted only yesterday",
			posts:    []time.Time{time.Date(2026, time.August, 23, 23, 59, 0, 0, time.UTC)},
			expected: false,
		},
		{
			name: "posted today in another timezone",
			posts: []time.Time{
				time.Date(2026, time.August, 24, 1, 30, 0, 0, time.FixedZone("CEST", 2*60*60)),
			},
			// 01:30+02:00 is 23:30 UTC the day before
			expected: false,
		},
		{
			name: "latest posts span the day boundary",
			posts: []time.Time{
				time.Date(2026, time.August, 24, 8, 0, 0, 0, time.UTC),
				time.Date(2026, time.August, 23, 22, 0, 0, 0, time.UTC),
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeFeedClient{
				responses: []fakeResponse{{page: feedPage("", tt.posts...)}},
			}
			checker := NewTodayChecker(client)
			checker.now = func() time.Time { return now }

			assert.Equal(t, tt.expected, checker.HasPostedToday(context.Background(), "alice.bsky.social"))
		})
	}
}

func TestHasPostedTodayFailsOpen(t *testing.T) {
	client := &fakeFeedClient{
		responses: []fakeResponse{
			{err: &models.NetworkError{Err: errors.New("connection refused")}},
		},
	}
	checker := NewTodayChecker(client)

	assert.False(t, checker.HasPostedToday(context.Background(), "alice.bsky.social"))

	// Fail-open means no retry either
	assert.Equal(t, 1, client.callCount())
}
