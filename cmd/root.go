package cmd

import (
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "skystreak",
		Usage: "Posting streaks for Bluesky accounts",
		Description: `Computes consecutive-day posting streaks for Bluesky accounts.

		Skystreak queries the public Bluesky appview for an account's
		non-reply posts, determines which UTC calendar days had at least
		one post and counts the unbroken run of days ending today. The
		last computed result is stored in an SQLite database and served
		over an HTTP API with live updates via SSE.

		Flags can generally be set via environment variables, e.g.:

		--database => SKYSTREAK_DATABASE=streaks.db
		--port => SKYSTREAK_PORT=3000
		`,
		Commands: []*cli.Command{
			serveCmd(),
			checkCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}
