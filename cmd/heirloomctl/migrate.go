package main

import (
	"github.com/spf13/cobra"

	"heirloom/pkg/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		cmd.Println("schema is up to date")
		return nil
	},
}
