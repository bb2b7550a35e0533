package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"skystreak/bluesky"
	"skystreak/config"
	"skystreak/db"
	"skystreak/server"
	"skystreak/streak"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the skystreak API",
		Description: `Starts the skystreak HTTP server.

Serves the last computed streak for each tracked account, recomputes
on demand and streams results to connected clients via SSE.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "streaks.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"SKYSTREAK_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/accounts.toml",
				Usage:   "Path to tracked accounts configuration file",
				EnvVars: []string{"SKYSTREAK_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"SKYSTREAK_PORT"},
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
			fmt.Println("Starting skystreak...")

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := db.Migrate(ctx.String("database")); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			store, err := db.NewStore(ctx.String("database"))
			if err != nil {
				return err
			}

			client := bluesky.NewClient(ctx.String("appview"), ctx.Duration("fetch-timeout"))
			broadcaster := server.NewBroadcaster()

			orchestrators := make(map[string]*streak.Orchestrator, len(cfg.Accounts))
			for _, account := range cfg.Accounts {
				index := streak.NewIndex(client)
				orchestrators[account.Handle] = streak.NewOrchestrator(
					account.Handle,
					client,
					index,
					streak.NewTodayChecker(client),
					streak.NewCalculator(index),
					store,
					broadcaster,
				)

				log.WithFields(log.Fields{
					"handle": account.Handle,
				}).Info("Tracking account")
			}

			app := server.Server(&server.ServerConfig{
				Store:         store,
				Orchestrators: orchestrators,
				Broadcaster:   broadcaster,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)

			go func() {
				fmt.Println("Starting server...")
				if err := app.Listen(fmt.Sprintf(":%d", ctx.Int("port"))); err != nil {
					log.Panic(err)
				}
			}()

			<-c
			fmt.Println("Gracefully shutting down...")
			app.ShutdownWithTimeout(10 * time.Second)
			broadcaster.Shutdown()
			store.Close()

			fmt.Println("Done!")

			return nil
		},
	}
}
