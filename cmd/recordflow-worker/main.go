// Package main provides the recordflow worker: it consumes record lifecycle
// events from the event bus, runs the matching flows, and fires scheduled
// flows on their cron expressions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/recordflow/recordflow/pkg/cmd"
	"github.com/recordflow/recordflow/pkg/dispatch"
	"github.com/recordflow/recordflow/pkg/engine"
	"github.com/recordflow/recordflow/pkg/flow"
	"github.com/recordflow/recordflow/pkg/log"
	"github.com/recordflow/recordflow/pkg/notify"
	"github.com/recordflow/recordflow/pkg/schedule"
)

func main() {
	command := &cli.Command{
		Name:                  "recordflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Start a worker to execute record flows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
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
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("recordflow-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing Recordflow Worker")

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

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger, workerID)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			flows := flow.NewRepository(persistence)
			flowEngine := engine.New(flows, recordStore, notify.NewDispatcher(recordStore, logger), logger)

			dispatcher := dispatch.NewDispatcher(flowEngine, eventBus, logger)

			err = dispatcher.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start event dispatcher", "error", err)

				return err
			}

			scheduler := schedule.NewScheduler(flowEngine, flows, logger)

			err = scheduler.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start scheduler", "error", err)

				return err
			}

			defer scheduler.Stop()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-ctx.Done():
			case <-stop:
				logger.InfoContext(ctx, "Shutdown signal received")
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
