package db

import (
	"database/sql"
	"time"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Tidy removes streak records that have not been refreshed in 90 days
func Tidy(database string) error {
	db, err := connection(database)
	if err != nil {
		return err
	}
	defer db.Close()

	return tidy(db)
}

func tidy(db *sql.DB) error {
	ninetyDaysAgo := time.Now().Add(-90 * 24 * time.Hour).Unix()
	deleteRecords := sb.NewDeleteBuilder()
	query, args := deleteRecords.DeleteFrom("streaks").
		Where(deleteRecords.LessEqualThan("checked_at", ninetyDaysAgo)).
		BuildWithFlavor(sb.SQLite)

	log.WithFields(log.Fields{
		"sql":  query,
		"args": args,
	}).Info("Tidying database")

	_, err := db.Exec(query, args...)
	return err
}
