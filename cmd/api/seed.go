package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo marketplace once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()

		did, err := a.seeder.EnsureSeeded(cmd.Context())
		if err != nil {
			return err
		}
		if did {
			fmt.Fprintln(cmd.OutOrStdout(), "demo data seeded")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "demo data already present")
		}
		return nil
	},
}
