package models

import "time"

// FeedPost is a single qualifying (non-reply) post from an author feed page.
type FeedPost struct {
	Uri       string    `json:"uri"`
	IndexedAt time.Time `json:"indexedAt"`
}

// FeedPage is one page of an author feed, most recent first. Cursor is empty
// when the feed is exhausted.
type FeedPage struct {
	Posts  []FeedPost `json:"posts"`
	Cursor string     `json:"cursor,omitempty"`
}

// StreakRecord is the persisted result of the last successful computation for
// a handle. It is replaced wholesale on every run, never partially updated.
type StreakRecord struct {
	CheckedAt time.Time `json:"checkedAt"`
	Count     int       `json:"count"`
}

// StreakResult is what a completed run delivers to the display.
type StreakResult struct {
	Handle      string    `json:"handle"`
	Count       int       `json:"count"`
	PostedToday bool      `json:"postedToday"`
	CheckedAt   time.Time `json:"checkedAt"`
}

// StreakEvent fired when a run completes successfully
type StreakEvent struct {
	Result StreakResult
}

// RefreshingEvent fired when a run starts, so clients can show progress
type RefreshingEvent struct {
	Handle string `json:"handle"`
}

// ErrorEvent fired when a run fails; Message replaces any prior display
type ErrorEvent struct {
	Handle  string `json:"handle"`
	Message string `json:"message"`
}
