package streak

import (
	"context"
	"testing"
	"time"

	"skystreak/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDayIndex struct {
	posted map[models.Day]bool
	errOn  map[models.Day]error
	asked  []models.Day
}

func (f *fakeDayIndex) HasPost(ctx context.Context, handle string, day models.Day) (bool, error) {
	f.asked = append(f.asked, day)
	if err, ok := f.errOn[day]; ok {
		return false, err
	}
	return f.posted[day], nil
}

func TestHistorical(t *testing.T) {
	today := models.Day{Year: 2026, Month: time.August, Date: 24}
	d := func(daysAgo int) models.Day {
		day := today
		for i := 0; i < daysAgo; i++ {
			day = day.Prev()
		}
		return day
	}

	tests := []struct {
		name     string
		posted   []models.Day
		expected int
	}{
		{
			name:     "no posts at all",
			posted:   []models.Day{},
			expected: 0,
		},
		{
			name:     "posted each of the last four days before today",
			posted:   []models.Day{d(1), d(2), d(3), d(4)},
			expected: 4,
		},
		{
			name:     "posted yesterday only",
			posted:   []models.Day{d(1)},
			expected: 1,
		},
		{
			name:     "gap yesterday resets regardless of older activity",
			posted:   []models.Day{d(3), d(4), d(5)},
			expected: 0,
		},
		{
			name:     "gap in the middle stops the count",
			posted:   []models.Day{d(1), d(2), d(4), d(5)},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeDayIndex{posted: map[models.Day]bool{}}
			for _, day := range tt.posted {
				index.posted[day] = true
			}

			calc := NewCalculator(index)
			count, err := calc.Historical(context.Background(), "alice.bsky.social", today)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, count)
		})
	}
}

func TestHistoricalStopsAtFirstGap(t *testing.T) {
	today := models.Day{Year: 2026, Month: time.August, Date: 24}

	index := &fakeDayIndex{posted: map[models.Day]bool{
		today.Prev().Prev().Prev(): true,
	}}

	calc := NewCalculator(index)
	count, err := calc.Historical(context.Background(), "alice.bsky.social", today)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Yesterday broke the streak, nothing older is looked up
	assert.Equal(t, []models.Day{today.Prev()}, index.asked)
}

func TestHistoricalPropagatesLookupErrors(t *testing.T) {
	today := models.Day{Year: 2026, Month: time.August, Date: 24}
	yesterday := today.Prev()

	index := &fakeDayIndex{
		posted: map[models.Day]bool{yesterday: true},
		errOn: map[models.Day]error{
			yesterday.Prev(): &models.NetworkError{Err: context.DeadlineExceeded},
		},
	}

	calc := NewCalculator(index)
	count, err := calc.Historical(context.Background(), "alice.bsky.social", today)

	// Partial counts are never returned
	require.Error(t, err)
	assert.Equal(t, 0, count)

	var netErr *models.NetworkError
	assert.ErrorAs(t, err, &netErr)
}
