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

// Package migrate runs SQL migrations of a dataset from
// <MigrationsDir>/<dataset name> with bun/migrate.
package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
	"github.com/uptrace/bun/migrate"
)

// Dir returns the migrations directory of the named dataset, which must exist.
func Dir(f *database.BindFactory, name string) (string, error) {
	base := f.Config().MigrationsDir
	if base == "" {
		base = database.DefaultMigrationsDir
	}
	dir := filepath.Join(base, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("migrations dir must exist: %s", dir)
	}
	return dir, nil
}

// Migrator applies the migrations of one dataset to its engine.
type Migrator struct {
	dataset    *dataset.DataSet
	dir        string
	migrations *migrate.Migrations
	migrator   *migrate.Migrator
	logger     database.Logger
}

// New discovers the dataset's migrations and prepares a migrator using the
// configured bookkeeping tables.
func New(f *database.BindFactory, ds *dataset.DataSet) (*Migrator, error) {
	dir, err := Dir(f, ds.Name())
	if err != nil {
		return nil, err
	}
	engine, err := ds.Engine(f)
	if err != nil {
		return nil, err
	}

	migrations := migrate.NewMigrations(migrate.WithMigrationsDirectory(dir))
	if err := migrations.Discover(os.DirFS(dir)); err != nil {
		return nil, fmt.Errorf("failed to discover migrations in %s: %w", dir, err)
	}

	opts := f.Config().Migrate
	var migratorOpts []migrate.MigratorOption
	if opts.TableName != "" {
		migratorOpts = append(migratorOpts, migrate.WithTableName(opts.TableName))
	}
	if opts.LocksTableName != "" {
		migratorOpts = append(migratorOpts, migrate.WithLocksTableName(opts.LocksTableName))
	}
	if opts.MarkAppliedOnSuccess {
		migratorOpts = append(migratorOpts, migrate.WithMarkAppliedOnSuccess(true))
	}

	return &Migrator{
		dataset:    ds,
		dir:        dir,
		migrations: migrations,
		migrator:   migrate.NewMigrator(engine.DB(), migrations, migratorOpts...),
		logger:     database.GetLogger(),
	}, nil
}

func (m *Migrator) Dir() string { return m.dir }

// empty reports a directory without revisions, where every run is a no-op.
func (m *Migrator) empty() bool {
	return len(m.migrations.Sorted()) == 0
}

// quiet silences query echo while migrating unless BUNDEBUG_MIGRATION is set.
func quiet() func() {
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); ok {
		return func() {}
	}
	database.EnableSilent(true)
	return func() { database.EnableSilent(false) }
}

// Init creates the bookkeeping tables.
func (m *Migrator) Init(ctx context.Context) error {
	defer quiet()()
	return m.migrator.Init(ctx)
}

func (m *Migrator) locked(ctx context.Context, fn func() error) error {
	defer quiet()()
	if err := m.migrator.Init(ctx); err != nil {
		return err
	}
	if err := m.migrator.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if err := m.migrator.Unlock(ctx); err != nil {
			m.logger.Error("Failed to release migration lock", "dataset", m.dataset.Name(), "error", err)
		}
	}()
	return fn()
}

// Upgrade applies every pending migration as one group.
func (m *Migrator) Upgrade(ctx context.Context) (*migrate.MigrationGroup, error) {
	var group *migrate.MigrationGroup
	err := m.locked(ctx, func() (err error) {
		if m.empty() {
			group = new(migrate.MigrationGroup)
			return nil
		}
		group, err = m.migrator.Migrate(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if group.IsZero() {
		m.logger.Info("No new migrations to run", "dataset", m.dataset.Name())
	} else {
		m.logger.Info("Database migrated", "dataset", m.dataset.Name(), "group", group)
	}
	return group, nil
}

// Downgrade rolls back the last applied group.
func (m *Migrator) Downgrade(ctx context.Context) (*migrate.MigrationGroup, error) {
	var group *migrate.MigrationGroup
	err := m.locked(ctx, func() (err error) {
		if m.empty() {
			group = new(migrate.MigrationGroup)
			return nil
		}
		group, err = m.migrator.Rollback(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if group.IsZero() {
		m.logger.Info("No groups to roll back", "dataset", m.dataset.Name())
	} else {
		m.logger.Info("Database rolled back", "dataset", m.dataset.Name(), "group", group)
	}
	return group, nil
}

// MarkApplied records every pending migration as applied without running it.
func (m *Migrator) MarkApplied(ctx context.Context) (*migrate.MigrationGroup, error) {
	var group *migrate.MigrationGroup
	err := m.locked(ctx, func() (err error) {
		if m.empty() {
			group = new(migrate.MigrationGroup)
			return nil
		}
		group, err = m.migrator.Migrate(ctx, migrate.WithNopMigration())
		return err
	})
	return group, err
}

// Status lists all migrations, applied ones carrying their group.
func (m *Migrator) Status(ctx context.Context) (migrate.MigrationSlice, error) {
	defer quiet()()
	if err := m.migrator.Init(ctx); err != nil {
		return nil, err
	}
	return m.migrator.MigrationsWithStatus(ctx)
}

// Revision creates empty up and down SQL files for a new migration.
func (m *Migrator) Revision(ctx context.Context, message string) ([]*migrate.MigrationFile, error) {
	name := strings.Join(strings.Fields(strings.ToLower(message)), "_")
	if name == "" {
		return nil, fmt.Errorf("revision message cannot be empty")
	}
	files, err := m.migrator.CreateSQLMigrations(ctx, name)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, file := range files {
		content := revisionHeader(message, file.Name, m.dataset.Name(), now)
		if err := os.WriteFile(file.Path, []byte(content), 0o644); err != nil {
			return nil, err
		}
		file.Content = content
	}
	return files, nil
}

func revisionHeader(message, file, ds string, created time.Time) string {
	revision, _, _ := strings.Cut(file, "_")
	direction := "upgrade"
	if strings.HasSuffix(file, ".down.sql") {
		direction = "downgrade"
	}
	return fmt.Sprintf(`-- %s
--
-- Revision ID: %s
-- Dataset: %s
-- Create Date: %s
--
-- Statements of the %s; separate them with --bun:split.

SELECT 1;
`, message, revision, ds, created.Format(time.RFC3339), direction)
}
