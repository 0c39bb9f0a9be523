package main

import (
	"fmt"

	"github.com/loopflow/cadenza/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
