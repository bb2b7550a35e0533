package cmd

import (
	"fmt"
	"skystreak/db"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing stale streak records.

		Remove records that have not been refreshed in 90 days. Keeps the
		database small when tracked accounts come and go.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "streaks.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"SKYSTREAK_DATABASE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			database := ctx.String("database")
			fmt.Println("Database configured: ", database)
			return db.Tidy(database)
		},
	}
}
