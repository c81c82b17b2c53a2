package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/calder/automa/pkg/log"
)

const defaultPort = 9091

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Database connection URL (postgres://... or a file path)",
			Value:   "./data",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.BoolFlag{
			Name:    "kafka",
			Usage:   "Publish events over Kafka instead of the in-process bus",
			Sources: cli.EnvVars("USE_KAFKA"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

func main() {
	root := &cli.Command{
		Name:                  "automa",
		Usage:                 "Create, manage and run automation flows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			{
				Name:  "api",
				Usage: "Start the flow management REST API",
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Port to run the API server on",
						Value:   defaultPort,
						Sources: cli.EnvVars("PORT"),
					},
				),
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return runAPI(ctx, command)
				},
			},
			{
				Name:  "scheduler",
				Usage: "Run cron triggers for active schedule flows",
				Flags: commonFlags(),
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return runScheduler(ctx, command)
				},
			},
			{
				Name:      "trigger",
				Usage:     "Trigger a flow once and print the execution record",
				ArgsUsage: "<flow-id>",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "payload",
						Usage: "Trigger payload as a JSON object",
						Value: "{}",
					},
				),
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return runTrigger(ctx, command)
				},
			},
			{
				Name:      "validate",
				Usage:     "Validate a flow's structure and print the issues",
				ArgsUsage: "<flow-id>",
				Flags:     commonFlags(),
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return runValidate(ctx, command)
				},
			},
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
