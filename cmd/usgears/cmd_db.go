package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/usgears/storefront/app/repositories"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/database/seeders"
	"github.com/usgears/storefront/pkg/auth"
	"github.com/usgears/storefront/pkg/database"
)

// bootDB loads config and connects to MongoDB. Callers defer the returned
// close func.
func bootDB(ctx context.Context) (func(), error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.Connect(ctx); err != nil {
		return nil, err
	}
	return func() { _ = database.Disconnect(context.Background()) }, nil
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		closeDB, err := bootDB(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		fmt.Println("Running seeders…")
		return seeders.RunAll(ctx, database.DB, os.Stdout)
	},
}

var userFlags struct {
	email    string
	name     string
	password string
	role     string
}

var userCreateCmd = &cobra.Command{
	Use:   "user:create",
	Short: "Create a back-office user, or reset an existing one's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userFlags.email == "" || userFlags.password == "" {
			return fmt.Errorf("--email and --password are required")
		}
		if userFlags.role != auth.RoleAdmin && userFlags.role != auth.RoleUser {
			return fmt.Errorf("--role must be %q or %q", auth.RoleAdmin, auth.RoleUser)
		}

		ctx := cmd.Context()
		closeDB, err := bootDB(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		svc := services.NewAuthService(repositories.NewUserRepository(database.DB))
		u, created, err := svc.EnsureUser(ctx, userFlags.email, userFlags.name, userFlags.password, userFlags.role)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Created %s user %s (%s)\n", u.Role, u.Email, u.ID.Hex())
		} else {
			fmt.Printf("Updated %s user %s (%s)\n", u.Role, u.Email, u.ID.Hex())
		}
		return nil
	},
}

var dbIndexesCmd = &cobra.Command{
	Use:   "db:indexes",
	Short: "Create the MongoDB indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		closeDB, err := bootDB(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := database.EnsureIndexes(ctx); err != nil {
			return err
		}
		for _, name := range database.IndexNames() {
			fmt.Println("  •", name)
		}
		return nil
	},
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userFlags.email, "email", "", "login email")
	f.StringVar(&userFlags.name, "name", "", "display name")
	f.StringVar(&userFlags.password, "password", "", "password")
	f.StringVar(&userFlags.role, "role", auth.RoleAdmin, "admin or user")
}
