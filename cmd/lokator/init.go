package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/lokator/internal/auth"
	"github.com/erazemk/lokator/internal/db"
	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/store"
)

// generatedPasswordLength is the length of passwords handed out by init and useradd.
const generatedPasswordLength = 16

func (a *app) initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and the admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DB.Driver == db.DriverSQLite && !a.sqliteMissing() {
				return fmt.Errorf("database file %s already exists", a.cfg.DB.Path)
			}
			password, err := a.initDatabase(cmd.Context())
			if err != nil {
				return err
			}
			printInitResult(a.cfg.DB.Target(), a.cfg.Admin.User, password)
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "", "admin username (default: Admin)")
	a.bind(cmd.Flags().Lookup("user"), "admin.user")
	return cmd
}

// initDatabase creates the schema and the admin account and returns the
// admin's generated password. A SQLite file created here is removed again
// if any step fails.
func (a *app) initDatabase(ctx context.Context) (password string, err error) {
	created := a.sqliteMissing()

	s, err := a.openStore(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		s.DB.Close()
		if err != nil && created {
			os.Remove(a.cfg.DB.Path)
		}
	}()

	n, err := s.CountUsers(ctx)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", errors.New("database already has users")
	}

	password, err = createUser(ctx, s, a.cfg.Admin.User, model.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	slog.Info("database initialized", "driver", a.cfg.DB.Driver, "admin", a.cfg.Admin.User)
	return password, nil
}

// createUser creates an account with a generated password and returns it.
func createUser(ctx context.Context, s *store.Store, username, role string) (string, error) {
	password, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := s.CreateUser(ctx, username, hash, role); err != nil {
		return "", err
	}
	return password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(target, username, password string) {
	fmt.Printf("Database created: %s\n", target)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

func (a *app) useraddCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "useradd <username>",
		Short: "Create a user with a generated password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !model.ValidRole(role) {
				return fmt.Errorf("invalid role %q (admin, manager or user)", role)
			}
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.DB.Close()

			password, err := createUser(ctx, s, args[0], role)
			if errors.Is(err, model.ErrDuplicate) {
				return fmt.Errorf("user %q already exists", args[0])
			}
			if err != nil {
				return err
			}

			slog.Info("user created", "username", args[0], "role", role)
			fmt.Fprintf(cmd.OutOrStdout(), "User %s (%s) created.\n  Password: %s\n", args[0], role, password)
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", model.RoleUser, "role: admin, manager or user")
	return cmd
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.DB.Close()
			slog.Info("database migrated", "driver", s.Dialect.Name())
			return nil
		},
	}
}
