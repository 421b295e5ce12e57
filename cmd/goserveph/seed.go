package main

import (
	"context"
	"fmt"

	"goserveph/internal/seed"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Submit demo applications for every permit type",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "pending",
			Usage: "Leave every demo application Pending",
		},
	},
	Action: func(cCtx *cli.Context) error {
		config, err := loadConfig(cCtx)
		if err != nil {
			return err
		}

		logger, err := newLogger(config)
		if err != nil {
			return err
		}

		ctx := context.Background()

		b, err := openBackend(ctx, config, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		intake, err := b.intake(logger)
		if err != nil {
			return err
		}

		workflow := b.workflow(logger)
		if cCtx.Bool("pending") {
			workflow = nil
		}

		created, err := seed.SeedApplications(ctx, logger, intake, workflow)
		if err != nil {
			return fmt.Errorf("failed to seed applications: %w", err)
		}

		logger.WithField("count", len(created)).Info("applications seeded")

		return nil
	},
}
