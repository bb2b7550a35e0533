package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"skystreak/bluesky"
	"skystreak/models"
	"skystreak/streak"

	"github.com/cqroot/prompt"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Compute the streak for a handle once",
		Description: `Computes the posting streak for a single handle and prints the
result as a JSON object on a single line. Use a tool like jq to process
the output.

Prompts for the handle if none is given.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "handle",
				Usage:   "Bluesky handle to check",
				EnvVars: []string{"SKYSTREAK_HANDLE"},
			},
			&cli.StringFlag{
				Name:    "appview",
				Usage:   "Bluesky appview host",
				Value:   bluesky.DefaultAppViewHost,
				EnvVars: []string{"SKYSTREAK_APPVIEW"},
			},
			&cli.DurationFlag{
				Name:    "fetch-timeout",
				Usage:   "Deadline for a single feed request",
				Value:   bluesky.DefaultFetchTimeout,
				EnvVars: []string{"SKYSTREAK_FETCH_TIMEOUT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			// Disable logging to stdout
			log.SetOutput(os.Stderr)

			handle := ctx.String("handle")
			if handle == "" {
				var err error
				handle, err = prompt.New().Ask("Handle:").Input("myname.bsky.social")
				if err != nil {
					return err
				}
			}

			client := bluesky.NewClient(ctx.String("appview"), ctx.Duration("fetch-timeout"))

			resolved, err := client.ResolveHandle(ctx.Context, handle)
			if err != nil {
				return err
			}

			index := streak.NewIndex(client)
			calculator := streak.NewCalculator(index)
			today := streak.NewTodayChecker(client)

			now := time.Now()
			postedToday := today.HasPostedToday(ctx.Context, resolved)

			historical, err := calculator.Historical(ctx.Context, resolved, models.DayOf(now))
			if err != nil {
				return fmt.Errorf("failed to compute streak for %s: %w", resolved, err)
			}

			total := historical
			if postedToday {
				total++
			}

			result := models.StreakResult{
				Handle:      resolved,
				Count:       total,
				PostedToday: postedToday,
				CheckedAt:   now,
			}

			// Print as single JSON string on a single line
			resultJson, err := json.Marshal(result)
			if err != nil {
				return err
			}
			fmt.Println(string(resultJson))

			return nil
		},
	}
}
