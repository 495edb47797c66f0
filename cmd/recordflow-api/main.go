package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/recordflow/recordflow/pkg/cmd"
	"github.com/recordflow/recordflow/pkg/engine"
	"github.com/recordflow/recordflow/pkg/flow"
	"github.com/recordflow/recordflow/pkg/log"
	"github.com/recordflow/recordflow/pkg/notify"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "recordflow-api",
		Usage:                 "Create and manage record flows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for flow persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "record-store-url",
				Usage:   "Record store URL (redis:// or memory://)",
				Value:   "memory://",
				Sources: cli.EnvVars("RECORD_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Recordflow API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			recordStore, err := cmd.NewRecordStore(command.String("record-store-url"))
			if err != nil {
				return err
			}

			flows := flow.NewRepository(persistence)
			dispatcher := notify.NewDispatcher(recordStore, logger)
			flowEngine := engine.New(flows, recordStore, dispatcher, logger)

			api := NewAPI(logger, flows, flowEngine)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
