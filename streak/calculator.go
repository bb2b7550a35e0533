package streak

import (
	"context"

	"skystreak/models"
)

// DayIndex answers whether a handle posted on a given calendar day.
type DayIndex interface {
	HasPost(ctx context.Context, handle string, day models.Day) (bool, error)
}

// Calculator walks backward day by day to count the historical streak.
type Calculator struct {
	index DayIndex
}

func NewCalculator(index DayIndex) *Calculator {
	return &Calculator{index: index}
}

// Historical counts consecutive days with at least one qualifying post,
// strictly before today. A gap on the day immediately preceding today breaks
// the streak regardless of older history. Callers add 1 for today themselves.
//
// Any lookup error aborts the walk; a partial count is never returned.
func (c *Calculator) Historical(ctx context.Context, handle string, today models.Day) (int, error) {
	count := 0

	for day := today.Prev(); ; day = day.Prev() {
		posted, err := c.index.HasPost(ctx, handle, day)
		if err != nil {
			return 0, err
		}
		if !posted {
			break
		}
		count++
	}

	return count, nil
}
