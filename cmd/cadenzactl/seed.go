package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/loopflow/cadenza/internal/database"
	"github.com/loopflow/cadenza/internal/seed"
	"github.com/loopflow/cadenza/internal/services"
	"github.com/spf13/cobra"
)

var (
	seedScenario string
	seedList     bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset the database and load a named scenario",
	Long: `Drops every table, re-runs migrations and loads a scenario.

Example:
  cadenzactl seed --scenario teacher-with-students
  cadenzactl seed --list`,
	RunE: runSeed,
}

var seedDevUsersCmd = &cobra.Command{
	Use:   "seed-dev-users",
	Short: "Create the development teacher and students and print their tokens",
	RunE:  runSeedDevUsers,
}

func init() {
	seedCmd.Flags().StringVar(&seedScenario, "scenario", "", "scenario to load")
	seedCmd.Flags().BoolVar(&seedList, "list", false, "list available scenarios")
}

func runSeed(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if seedList {
		for _, entry := range seed.Names() {
			fmt.Fprintf(out, "%-26s %s\n", entry[0], entry[1])
		}
		return nil
	}
	if seedScenario == "" {
		return errors.New("--scenario is required (see --list)")
	}

	db, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)
	if !cfg.IsDev() {
		return fmt.Errorf("refusing to reset a %s database", cfg.Environment)
	}

	if err := seed.New(db, cfg, time.Now()).Load(seedScenario); err != nil {
		return err
	}
	fmt.Fprintf(out, "loaded scenario %s\n", seedScenario)
	return nil
}

func runSeedDevUsers(cmd *cobra.Command, args []string) error {
	db, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)

	users, err := seed.New(db, cfg, time.Now()).DevUsers()
	if err != nil {
		return err
	}

	auth := services.NewAuthService(db, cfg, nil)
	out := cmd.OutOrStdout()
	for i := range users {
		token, err := auth.IssueToken(&users[i])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", users[i].Email, token)
	}
	return nil
}
