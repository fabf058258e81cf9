package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techmatters/terraso-go/pkg/auth"
	"github.com/techmatters/terraso-go/pkg/config"
	"github.com/techmatters/terraso-go/pkg/db"
	gormstore "github.com/techmatters/terraso-go/pkg/server/store/gorm"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage user tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Issue an access and refresh token for an existing user",
	Long: `Issue an access and refresh token pair for an existing user.

The tokens are signed with the configured jwt_secret and printed as JSON.

Example:
  terrasoctl token create ana@example.org`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		database, err := db.Connect(db.Config{})
		if err != nil {
			return err
		}
		user, err := gormstore.NewUsersStore(database).FindUserByEmail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("no user with email %s", args[0])
		}
		access, refresh, err := auth.NewJWTService(cfg).LoginPair(user, false)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{"access": access, "refresh": refresh})
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenCreateCmd)
}
