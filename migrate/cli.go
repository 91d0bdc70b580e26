/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package migrate

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
)

// NewCommand returns the migration commands of ds. The migrator is created
// when a subcommand runs, so building the tree does not touch the database.
func NewCommand(f *database.BindFactory, ds *dataset.DataSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         fmt.Sprintf("Manage schema migrations of the %s dataset", ds.Name()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	AddCommands(cmd, f, ds)
	return cmd
}

// AddCommands attaches the migration subcommands of ds to parent.
func AddCommands(parent *cobra.Command, f *database.BindFactory, ds *dataset.DataSet) {
	open := func() (*Migrator, error) {
		return New(f, ds)
	}
	parent.AddCommand(
		newUpgradeCommand(open),
		newDowngradeCommand(open),
		newStatusCommand(open),
		newRevisionCommand(open),
		newMarkAppliedCommand(open),
		newInitCommand(),
	)
}

type opener func() (*Migrator, error)

func newUpgradeCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:     "upgrade",
		Short:   "Apply all pending migrations",
		Example: "  hummer-migrate --dataset example upgrade",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			group, err := m.Upgrade(cmd.Context())
			if err != nil {
				return err
			}
			return printGroup(cmd.OutOrStdout(), "migrated to", group.String(), group.IsZero())
		},
	}
}

func newDowngradeCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "downgrade",
		Short: "Roll back the last migration group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			group, err := m.Downgrade(cmd.Context())
			if err != nil {
				return err
			}
			return printGroup(cmd.OutOrStdout(), "rolled back", group.String(), group.IsZero())
		},
	}
}

func newStatusCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			ms, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "migrations: %s\n", ms)
			_, _ = fmt.Fprintf(out, "unapplied migrations: %s\n", ms.Unapplied())
			_, err = fmt.Fprintf(out, "last migration group: %s\n", ms.LastGroup())
			return err
		},
	}
}

func newRevisionCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:     "revision <message>",
		Short:   "Create up and down SQL files for a new migration",
		Example: "  hummer-migrate --dataset example revision add dog table",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			files, err := m.Revision(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, file := range files {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created migration %s (%s)\n", file.Name, file.Path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newMarkAppliedCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-applied",
		Short: "Record pending migrations as applied without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			group, err := m.MarkApplied(cmd.Context())
			if err != nil {
				return err
			}
			return printGroup(cmd.OutOrStdout(), "marked as applied", group.String(), group.IsZero())
		},
	}
}

// newInitCommand exists so that "init" fails loudly: migrations live in
// <MigrationsDir>/<dataset> and need no scaffolding.
func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "init",
		Short:  "Not supported; create the migrations directory instead",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("the 'init' command should not be used; create the migrations directory instead")
		},
	}
}

func printGroup(w io.Writer, verb, group string, empty bool) error {
	if empty {
		_, err := fmt.Fprintln(w, "nothing to do")
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s\n", verb, group)
	return err
}
