package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	cmd.AddCommand(a.adminCreateCmd(), a.adminListCmd())
	return cmd
}

func (a *app) adminCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Add an administrator, reading the password from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if username == "" {
				return fmt.Errorf("username required")
			}

			password, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			if err := model.ValidatePassword(password); err != nil {
				return err
			}
			confirm, err := readPassword("Repeat password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			if name == "" {
				name = username
			}
			admin, err := store.CreateAdmin(cmd.Context(), database, username, hash, name)
			if err != nil {
				return err
			}

			fmt.Printf("Admin %s created (id %d).\n", admin.Username, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (default: username)")
	return cmd
}

func (a *app) adminListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List administrator accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			admins, err := store.ListAdmins(cmd.Context(), database)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tNAME")
			for _, ad := range admins {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", ad.ID, ad.Username, ad.Name)
			}
			return tw.Flush()
		},
	}
}

// openDB opens an existing database and brings its schema up to date.
func (a *app) openDB() (*sqlx.DB, error) {
	if _, err := os.Stat(a.cfg.DB); err != nil {
		return nil, fmt.Errorf("database %s not found, run init first", a.cfg.DB)
	}
	database, err := db.Open(a.cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// readPassword reads a password from the terminal without echo.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
