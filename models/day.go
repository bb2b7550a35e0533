package models

import "time"

// Day is a UTC calendar date without a time of day. Two timestamps belong to
// the same Day iff their UTC calendar dates match; never compare raw
// timestamps for day equality.
type Day struct {
	Year  int
	Month time.Month
	Date  int
}

// DayOf buckets a timestamp into its UTC calendar date.
func DayOf(t time.Time) Day {
	u := t.UTC()
	return Day{Year: u.Year(), Month: u.Month(), Date: u.Day()}
}

// Prev returns the calendar date one day earlier, handling month and year
// boundaries.
func (d Day) Prev() Day {
	return DayOf(d.start().AddDate(0, 0, -1))
}

// Contains reports whether the timestamp falls on this calendar date.
func (d Day) Contains(t time.Time) bool {
	return DayOf(t) == d
}

func (d Day) start() time.Time {
	return time.Date(d.Year, d.Month, d.Date, 0, 0, 0, 0, time.UTC)
}

func (d Day) String() string {
	return d.start().Format("2006-01-02")
}
