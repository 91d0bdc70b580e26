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

// Command hummer-migrate manages the SQL migrations of one dataset.
//
//	hummer-migrate --config app.yaml --dataset example upgrade
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
	"github.com/tomoncle/hummer-sqlite/migrate"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	if err := newRootCommand(os.Args[1:]).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "hummer-migrate: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand resolves --config and --dataset before cobra sees the
// subcommand, since the subcommands are bound to one factory and dataset.
func newRootCommand(args []string) *cobra.Command {
	var configPath, name string

	pre := pflag.NewFlagSet("hummer-migrate", pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	pre.StringVarP(&configPath, "config", "c", os.Getenv("HUMMER_CONFIG"), "")
	pre.StringVarP(&name, "dataset", "d", os.Getenv("HUMMER_DATASET"), "")
	_ = pre.Parse(args)

	root := &cobra.Command{
		Use:           "hummer-migrate",
		Short:         "Manage SQL migrations of a dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "YAML config file")
	root.PersistentFlags().StringVarP(&name, "dataset", "d", name, "dataset name")
	root.SetArgs(args)

	if name == "" {
		root.RunE = func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("--dataset is required")
		}
		return root
	}

	cfg, err := database.LoadConfig(configPath)
	if err != nil {
		root.RunE = func(cmd *cobra.Command, args []string) error { return err }
		return root
	}
	factory, err := database.InitFactory(cfg)
	if err != nil {
		root.RunE = func(cmd *cobra.Command, args []string) error { return err }
		return root
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return database.CloseFactory()
	}

	migrate.AddCommands(root, factory, dataset.Create(name))
	return root
}
