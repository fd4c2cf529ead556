/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/friendsincode/bragi_sequencer/internal/db"
	"github.com/friendsincode/bragi_sequencer/internal/models"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long: `Create a user account for API access.

Examples:
  bragisequencer user create --email admin@example.com --password secret --role admin
  bragisequencer user create --email curator@example.com --password secret --role curator`,
	RunE: runUserCreate,
}

var (
	userEmail    string
	userPassword string
	userRole     string
)

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Account email (required)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Account password (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(models.RoleCurator), "Role: admin, manager, or curator")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("password")
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	role := models.RoleName(userRole)
	if role != models.RoleAdmin && role != models.RoleManager && role != models.RoleCurator {
		return fmt.Errorf("invalid role %q", userRole)
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(userPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:        uuid.NewString(),
		Email:     userEmail,
		Password:  string(hash),
		Role:      role,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := database.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	logger.Info().Str("user_id", user.ID).Str("email", user.Email).Str("role", string(user.Role)).Msg("user created")
	fmt.Printf("created %s user %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
