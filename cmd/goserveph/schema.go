package main

import (
	"fmt"

	"goserveph/internal/forms"
	"goserveph/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var schemaCommand = &cli.Command{
	Name:      "schema",
	Usage:     "Print the compiled form schema for a permit type",
	ArgsUsage: "<permit type>",
	Action: func(cCtx *cli.Context) error {
		registry, err := forms.LoadRegistry()
		if err != nil {
			return err
		}

		if cCtx.NArg() == 0 {
			for _, pt := range registry.PermitTypes() {
				schema, _ := registry.Schema(pt)
				fmt.Printf("%-10s %s (%d steps)\n", pt, schema.Title, schema.StepCount())
			}
			return nil
		}

		pt, err := types.ParsePermitType(cCtx.Args().First())
		if err != nil {
			return err
		}

		schema, err := registry.Schema(pt)
		if err != nil {
			return err
		}

		printer := pp.New()
		printer.SetColoringEnabled(false)
		printer.Println(schema)

		return nil
	},
}
