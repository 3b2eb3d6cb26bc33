package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerrad567/sqlez/internal/infrastructure/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migration steps",
		Long: `Apply every pending step of the built-in migration domains and of the
domains found in database.migrations_dir, in that order.

Each step runs in its own savepoint. A failing step leaves earlier steps
committed and is retried on the next run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ms, err := a.loadMigrations()
			if err != nil {
				return err
			}

			conn, err := a.openConn()
			if err != nil {
				return err
			}
			defer a.closeConn(conn)

			if err := database.RunAll(conn, ms...); err != nil {
				return err
			}
			return renderStatus(cmd, conn, ms)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migration steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ms, err := a.loadMigrations()
			if err != nil {
				return err
			}

			conn, err := a.openConn()
			if err != nil {
				return err
			}
			defer a.closeConn(conn)

			return renderStatus(cmd, conn, ms)
		},
	}
}

// renderStatus prints one table row per step of every migration.
func renderStatus(cmd *cobra.Command, conn *database.Connection, ms []*database.Migration) error {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Domain", "Step", "State", "Applied At"})

	for _, m := range ms {
		status, err := m.Status(conn)
		if err != nil {
			return err
		}
		for _, rec := range status.Applied {
			t.AppendRow(table.Row{status.Domain, rec.Step, "applied", rec.AppliedAt.Format("2006-01-02 15:04:05")})
		}
		for _, step := range status.Pending {
			t.AppendRow(table.Row{status.Domain, step, "pending", ""})
		}
	}

	t.Render()
	return nil
}

func newExecCmd(a *app) *cobra.Command {
	var showRowID bool

	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Run one or more SQL statements",
		Long: `Run SQL against the store, discarding any rows. Several statements may be
separated by semicolons; they run in order and stop at the first failure.`,
		Example: `  sqlez exec "CREATE TABLE notes(body TEXT)"
  sqlez exec --rowid "INSERT INTO notes VALUES ('hello')"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openConn()
			if err != nil {
				return err
			}
			defer a.closeConn(conn)

			if err := conn.Exec(strings.Join(args, " ")); err != nil {
				return err
			}
			if showRowID {
				id, err := conn.LastInsertID()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRowID, "rowid", false, "print the rowid of the last insert")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		format   string
		textOnly bool
	)

	cmd := &cobra.Command{
		Use:   "query <sql> [param...]",
		Short: "Run a single statement and print its rows",
		Long: `Prepare one statement, bind the remaining arguments to its ? parameters
and print every row.

Parameters that parse as integers or floats are bound as numbers and the
literal null binds NULL. Use --text to bind every parameter as text.`,
		Example: `  sqlez query "SELECT * FROM kv_store WHERE key = ?" theme
  sqlez query --format json "SELECT domain, step FROM migrations"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openConn()
			if err != nil {
				return err
			}
			defer a.closeConn(conn)

			stmt, err := conn.Prepare(args[0])
			if err != nil {
				return err
			}
			defer stmt.Close() //nolint:errcheck // Connection close finalizes it anyway

			params := make(database.Args, 0, len(args)-1)
			for _, raw := range args[1:] {
				params = append(params, parseParam(raw, textOnly))
			}
			if _, err := stmt.WithBindings(params); err != nil {
				return err
			}

			result, err := collectRows(stmt)
			if err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), result, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, csv, markdown or json")
	cmd.Flags().BoolVar(&textOnly, "text", false, "bind every parameter as text")
	return cmd
}

// parseParam converts a command-line argument into a bindable value.
func parseParam(raw string, textOnly bool) any {
	if textOnly {
		return raw
	}
	if strings.EqualFold(raw, "null") {
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [destination]",
		Short: "Copy the store to a file with the online backup API",
		Long: `Copy the store into destination (default database.backup_path), replacing
whatever the destination held. The source stays usable during the copy.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			destPath := a.cfg.Database.BackupPath
			if len(args) == 1 {
				destPath = args[0]
			}
			if destPath == "" {
				return errors.New("no backup destination given and database.backup_path is empty")
			}

			conn, err := a.openConn()
			if err != nil {
				return err
			}
			defer a.closeConn(conn)

			dest := database.OpenFile(destPath, database.WithLogger(a.log.With("component", "database")))
			defer a.closeConn(dest)
			if !dest.Persistent() {
				return fmt.Errorf("opening backup destination %s: %w", destPath, dest.OpenError())
			}

			if err := conn.BackupMain(dest); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "backed up %s to %s\n", conn.Location(), dest.Location())
			return nil
		},
	}
}
