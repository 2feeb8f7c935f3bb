package main

import (
	"errors" // Error matching
	"fmt"    // Error output
	"os"     // Exit codes

	"cbms_backend/internal/config" // Custom import path (Config)
	"cbms_backend/internal/db"     // Custom import path (Database)
	"cbms_backend/internal/ledger" // Custom import path (Ledger)

	"github.com/sirupsen/logrus" // Logging library
	"github.com/spf13/cobra"     // CLI framework
	"gorm.io/gorm"               // GORM ORM library
)

// Main entry point for migration and account maintenance
func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect loads configuration and opens the database
func connect() (*gorm.DB, error) {
	cfg := config.LoadConfig() // Load configuration
	cfg.SetupLogger()
	return db.Open(cfg)
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Create or update the database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := connect()
			if err != nil {
				return err
			}
			return db.Migrate(gdb)
		},
	}
	cmd.AddCommand(createAdminCmd(), setPasswordCmd())
	return cmd
}

func createAdminCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a superuser account",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := connect()
			if err != nil {
				return err
			}
			if err := db.Migrate(gdb); err != nil {
				return err
			}
			user, err := ledger.New(gdb, nil).CreateSuperuser(cmd.Context(), username, password)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %q (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password, at least 8 characters")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func setPasswordCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Replace a user's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := connect()
			if err != nil {
				return err
			}
			if err := ledger.New(gdb, nil).SetPassword(cmd.Context(), username, password); err != nil {
				return describe(err)
			}
			logrus.WithField("username", username).Info("Password updated")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password, at least 8 characters")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// describe flattens validation errors into one readable line
func describe(err error) error {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("invalid input: %v", verr.Fields)
	}
	return err
}
