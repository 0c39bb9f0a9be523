package main

import (
	"errors"
	"fmt"

	"github.com/loopflow/cadenza/internal/database"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/loopflow/cadenza/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var tokenEmail string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a session token for an existing user",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email of the user")
	_ = tokenCmd.MarkFlagRequired("email")
}

func runToken(cmd *cobra.Command, args []string) error {
	db, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)

	var user models.User
	err = db.Where("email = ?", tokenEmail).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no user with email %s", tokenEmail)
	}
	if err != nil {
		return err
	}

	token, err := services.NewAuthService(db, cfg, nil).IssueToken(&user)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
