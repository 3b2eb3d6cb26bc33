package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerrad567/sqlez/internal/kvp"
)

func newKVCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Read and write the built-in key-value store",
	}
	cmd.AddCommand(
		newKVGetCmd(a),
		newKVSetCmd(a),
		newKVDeleteCmd(a),
		newKVListCmd(a),
	)
	return cmd
}

// withStore opens the store, runs fn and closes the connection.
func (a *app) withStore(fn func(*kvp.Store) error) error {
	conn, err := a.openConn()
	if err != nil {
		return err
	}
	defer a.closeConn(conn)

	store, err := kvp.Open(conn)
	if err != nil {
		return err
	}
	return fn(store)
}

func newKVGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *kvp.Store) error {
				value, ok, err := s.Read(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w", args[0], kvp.ErrKeyNotFound)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
}

func newKVSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store value under key, replacing any previous value",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.withStore(func(s *kvp.Store) error {
				return s.Write(args[0], args[1])
			})
		},
	}
}

func newKVDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Remove key",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.withStore(func(s *kvp.Store) error {
				return s.Delete(args[0])
			})
		},
	}
}

func newKVListCmd(a *app) *cobra.Command {
	var keysOnly bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored pairs ordered by key",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *kvp.Store) error {
				if keysOnly {
					keys, err := s.Keys()
					if err != nil {
						return err
					}
					for _, k := range keys {
						_, _ = fmt.Fprintln(cmd.OutOrStdout(), k)
					}
					return nil
				}

				entries, err := s.List()
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Key", "Value"})
				for _, e := range entries {
					t.AppendRow(table.Row{e.First, e.Second})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&keysOnly, "keys", false, "print keys only, one per line")
	return cmd
}
