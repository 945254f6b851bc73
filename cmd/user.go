/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hirehub/apiserver/config"
	"github.com/hirehub/apiserver/internal/db"
	"github.com/hirehub/apiserver/internal/services"
	"github.com/hirehub/apiserver/internal/store"
	"github.com/hirehub/apiserver/types"
)

// userCmd groups account administration that has no HTTP route.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	promoteEmail string
	promoteRole  string
)

// Registration only hands out user and employer; admins are made here.
var userPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Change the role of an existing account",
	Long: `Change the role of an existing account. Usage:

	hirehub user promote --email admin@example.com --role admin
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := setupLogger(cfg.Log)

		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		users := services.NewUserService(store.NewUserRepository(conn), logger)
		user, err := users.SetRole(cmd.Context(), promoteEmail, types.Role(promoteRole))
		if err != nil {
			return err
		}

		logger.Info("role updated", "user_id", user.ID, "email", user.Email, "role", user.Role)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userPromoteCmd)

	userPromoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the account to change")
	userPromoteCmd.Flags().StringVar(&promoteRole, "role", string(types.RoleAdmin), "new role: user, employer or admin")
	_ = userPromoteCmd.MarkFlagRequired("email")
}
