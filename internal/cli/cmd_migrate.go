package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/frc-scouting/scoutqr/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Inspect and move the database schema version. Other commands apply pending
migrations on their own; use migrate to roll back or to repair a dirty
database.`,
	}

	// withDB opens the database without migrating it.
	withDB := func(fn func(cmd *cobra.Command, d *db.DB, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			d, err := db.OpenDB(a.cfg.GetDatabasePath())
			if err != nil {
				return err
			}
			defer d.Close()
			return fn(cmd, d, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: withDB(func(cmd *cobra.Command, d *db.DB, _ []string) error {
				if err := d.MigrateUp(db.MigrationsFS()); err != nil {
					return err
				}
				return printMigrationStatus(cmd, d)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: withDB(func(cmd *cobra.Command, d *db.DB, _ []string) error {
				if err := d.MigrateDown(db.MigrationsFS()); err != nil {
					return err
				}
				return printMigrationStatus(cmd, d)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current and latest schema versions",
			Args:  cobra.NoArgs,
			RunE: withDB(func(cmd *cobra.Command, d *db.DB, _ []string) error {
				return printMigrationStatus(cmd, d)
			}),
		},
		&cobra.Command{
			Use:   "to VERSION",
			Short: "Migrate up or down to VERSION",
			Args:  cobra.ExactArgs(1),
			RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				if err := d.MigrateTo(db.MigrationsFS(), uint(v)); err != nil {
					return err
				}
				return printMigrationStatus(cmd, d)
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without migrating, clearing the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				if err := d.MigrateForce(db.MigrationsFS(), v); err != nil {
					return err
				}
				return printMigrationStatus(cmd, d)
			}),
		},
	)
	return cmd
}

func printMigrationStatus(cmd *cobra.Command, d *db.DB) error {
	status, err := d.GetMigrationStatus(db.MigrationsFS())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "current version: %d\n", status.CurrentVersion)
	fmt.Fprintf(w, "latest version:  %d\n", status.LatestVersion)
	if status.Dirty {
		fmt.Fprintln(w, "dirty: true (fix the schema, then run migrate force)")
	}
	if n := status.Pending(); n > 0 {
		fmt.Fprintf(w, "pending: %d\n", n)
	}
	return nil
}
