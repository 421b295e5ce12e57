package main

import (
	"fmt"

	"goserveph/internal/utils"
	"goserveph/pkg/types"

	"github.com/urfave/cli/v2"
)

var nanoidCommand = &cli.Command{
	Name:  "nanoid",
	Usage: "Generate application reference numbers",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
		&cli.StringFlag{
			Name:  "permit-type",
			Usage: "Prefix the IDs for this permit type",
		},
	},
	Action: func(c *cli.Context) error {
		prefix := types.PermitType("").Prefix()
		if v := c.String("permit-type"); v != "" {
			pt, err := types.ParsePermitType(v)
			if err != nil {
				return err
			}
			prefix = pt.Prefix()
		}

		count := c.Int("count")
		for range count {
			fmt.Println(utils.ReferenceID(prefix))
		}
		return nil
	},
}
