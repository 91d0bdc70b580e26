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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/internal/fixture"
)

func newMigrationsDir(t *testing.T, f *database.BindFactory) string {
	t.Helper()
	dir := filepath.Join(f.Config().MigrationsDir, fixture.Example.Name())
	require.NoError(t, os.MkdirAll(dir, 0o755))
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("20240101000000_add_cat.up.sql", "CREATE TABLE cat (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")
	write("20240101000000_add_cat.down.sql", "DROP TABLE cat;")
	return dir
}

func tableExists(t *testing.T, f *database.BindFactory, name string) bool {
	t.Helper()
	engine, err := fixture.Example.Engine(f)
	require.NoError(t, err)
	var n int
	require.NoError(t, engine.DB().NewRaw(
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(context.Background(), &n))
	return n == 1
}

func TestDir(t *testing.T) {
	f := fixture.NewFactory(t)
	_, err := Dir(f, "example")
	assert.ErrorContains(t, err, "migrations dir must exist")

	dir := newMigrationsDir(t, f)
	got, err := Dir(f, "example")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = New(f, fixture.Example)
	assert.NoError(t, err)
}

func TestUpgradeAndDowngrade(t *testing.T) {
	ctx := context.Background()
	f := fixture.NewFactory(t)
	newMigrationsDir(t, f)

	m, err := New(f, fixture.Example)
	require.NoError(t, err)

	group, err := m.Upgrade(ctx)
	require.NoError(t, err)
	assert.False(t, group.IsZero())
	assert.True(t, tableExists(t, f, "cat"))

	ms, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Empty(t, ms.Unapplied())

	group, err = m.Upgrade(ctx)
	require.NoError(t, err)
	assert.True(t, group.IsZero())

	group, err = m.Downgrade(ctx)
	require.NoError(t, err)
	assert.False(t, group.IsZero())
	assert.False(t, tableExists(t, f, "cat"))

	ms, err = m.Status(ctx)
	require.NoError(t, err)
	assert.Len(t, ms.Unapplied(), 1)
}

func TestEmptyDirIsNoop(t *testing.T) {
	ctx := context.Background()
	f := fixture.NewFactory(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.Config().MigrationsDir, fixture.Example.Name()), 0o755))

	m, err := New(f, fixture.Example)
	require.NoError(t, err)

	group, err := m.Upgrade(ctx)
	require.NoError(t, err)
	assert.True(t, group.IsZero())

	group, err = m.Downgrade(ctx)
	require.NoError(t, err)
	assert.True(t, group.IsZero())

	group, err = m.MarkApplied(ctx)
	require.NoError(t, err)
	assert.True(t, group.IsZero())

	ms, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestRevisionAndMarkApplied(t *testing.T) {
	ctx := context.Background()
	f := fixture.NewFactory(t)
	dir := newMigrationsDir(t, f)

	m, err := New(f, fixture.Example)
	require.NoError(t, err)
	_, err = m.Revision(ctx, "  ")
	assert.Error(t, err)

	files, err := m.Revision(ctx, "Add Dog Table")
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, file := range files {
		assert.Contains(t, file.Name, "_add_dog_table.")
		assert.Equal(t, dir, filepath.Dir(file.Path))
		content, err := os.ReadFile(file.Path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(content), "-- Add Dog Table\n"))
		assert.Contains(t, string(content), "-- Dataset: example")
		assert.Contains(t, string(content), "SELECT 1;")
	}

	m, err = New(f, fixture.Example)
	require.NoError(t, err)
	group, err := m.MarkApplied(ctx)
	require.NoError(t, err)
	assert.Len(t, group.Migrations, 2)
	assert.False(t, tableExists(t, f, "cat"), "marked migrations are not run")

	ms, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, ms.Unapplied())
}

func TestRevisionHeader(t *testing.T) {
	header := revisionHeader("add cat", "20240101000000_add_cat.down.sql", "example", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, header, "-- Revision ID: 20240101000000\n")
	assert.Contains(t, header, "-- Create Date: 2024-01-01T00:00:00Z\n")
	assert.Contains(t, header, "Statements of the downgrade")
}

func TestCommand(t *testing.T) {
	f := fixture.NewFactory(t)
	newMigrationsDir(t, f)

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewCommand(f, fixture.Example)
		cmd.SetArgs(args)
		cmd.SetOut(&out)
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}

	out, err := run("upgrade")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated to")

	out, err = run("upgrade")
	require.NoError(t, err)
	assert.Equal(t, "nothing to do\n", out)

	out, err = run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "unapplied migrations: ")
	assert.Contains(t, out, "20240101000000_add_cat")

	_, err = run("init")
	assert.ErrorContains(t, err, "should not be used")
}
