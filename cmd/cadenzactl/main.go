// Command cadenzactl is the developer CLI: database migration, scenario
// seeding and session token minting.
package main

import (
	"fmt"
	"os"

	"github.com/loopflow/cadenza/internal/config"
	"github.com/loopflow/cadenza/internal/database"
	"github.com/loopflow/cadenza/internal/logging"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "cadenzactl",
	Short: "Developer tools for the Cadenza API",
	Long: `cadenzactl manages a Cadenza database from the command line.

The database is taken from DATABASE_URL (a .env file is honoured), so the
same commands work against PostgreSQL and sqlite:// development files.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, seedDevUsersCmd, tokenCmd)
}

func main() {
	logging.Setup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDatabase connects to the configured database and brings its schema up
// to date.
func openDatabase() (*gorm.DB, *config.Config, error) {
	cfg := config.Load()
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	return db, cfg, nil
}
