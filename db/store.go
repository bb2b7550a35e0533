package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skystreak/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Store holds the last computed streak record per handle. Records are
// replaced wholesale on every successful run and read only for best-effort
// display continuity; they are never a substitute for recomputation.
type Store struct {
	db *sql.DB
}

func NewStore(database string) (*Store, error) {
	db, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to open streak store: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the stored record for the handle, or nil when none exists.
func (store *Store) Get(ctx context.Context, handle string) (*models.StreakRecord, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("checked_at", "streak").From("streaks").Where(sb.Equal("handle", handle))

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	var checkedAt int64
	var count int
	err := store.db.QueryRowContext(ctx, query, args...).Scan(&checkedAt, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return &models.StreakRecord{
		CheckedAt: time.Unix(checkedAt, 0).UTC(),
		Count:     count,
	}, nil
}

// Put replaces the record for the handle with the given one.
func (store *Store) Put(ctx context.Context, handle string, record models.StreakRecord) error {
	ib := sqlbuilder.NewInsertBuilder()
	ib.ReplaceInto("streaks").
		Cols("handle", "checked_at", "streak").
		Values(handle, record.CheckedAt.Unix(), record.Count)

	query, args := ib.BuildWithFlavor(sqlbuilder.SQLite)

	if _, err := store.db.ExecContext(ctx, query, args...); err != nil {
		log.WithFields(log.Fields{
			"handle": handle,
			"error":  err,
		}).Error("Error storing streak record")
		return err
	}

	return nil
}

// Delete removes the record for the handle. Deleting an absent record is not
// an error.
func (store *Store) Delete(ctx context.Context, handle string) error {
	deleteRecord := sqlbuilder.NewDeleteBuilder()
	query, args := deleteRecord.DeleteFrom("streaks").
		Where(deleteRecord.Equal("handle", handle)).
		BuildWithFlavor(sqlbuilder.SQLite)

	_, err := store.db.ExecContext(ctx, query, args...)
	return err
}

func (store *Store) Close() error {
	return store.db.Close()
}
