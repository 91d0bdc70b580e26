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

package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory(t *testing.T) *BindFactory {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Paths["foo"] = filepath.Join(t.TempDir(), "foo.db")
	f := NewBindFactory(cfg)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestBindFactoryPaths(t *testing.T) {
	RegisterPath("registered", ":memory:")
	RegisterPath("foo", "/overridden/by/config.db")

	f := newTestFactory(t)
	paths := f.Paths()
	assert.Equal(t, ":memory:", paths["registered"])
	assert.Equal(t, f.Config().Paths["foo"], paths["foo"])

	_, err := f.Path("missing")
	assert.ErrorIs(t, err, ErrUnknownDataSet)

	f.SetPath("bar", ":memory:")
	path, err := f.Path("bar")
	require.NoError(t, err)
	assert.Equal(t, ":memory:", path)
}

func TestBindFactoryBind(t *testing.T) {
	f := newTestFactory(t)

	foo, err := f.Bind("foo")
	require.NoError(t, err)
	again, err := f.Bind("foo")
	require.NoError(t, err)
	assert.Same(t, foo, again)
	assert.Equal(t, "sqlite:///"+f.Config().Paths["foo"], foo.URL())
	assert.Equal(t, DriverSQLite, foo.Driver())

	unknown, err := f.Bind("unknown")
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///:memory:", unknown.URL())

	assert.Equal(t, []string{"foo", "unknown"}, f.Datasets())

	health := f.HealthCheck(context.Background())
	require.Len(t, health, 2)
	assert.True(t, health["foo"].Healthy)

	require.NoError(t, f.Dispose("foo"))
	fresh, err := f.Bind("foo")
	require.NoError(t, err)
	assert.NotSame(t, foo, fresh)

	_, err = foo.NewSession(context.Background())
	assert.Error(t, err)
}

func TestMemoryEnginesArePrivate(t *testing.T) {
	ctx := context.Background()
	f := NewBindFactory(DefaultConfig())
	defer f.Close()

	a, err := f.Bind("a")
	require.NoError(t, err)
	b, err := f.Bind("b")
	require.NoError(t, err)

	_, err = a.DB().ExecContext(ctx, "CREATE TABLE only_in_a (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	var n int
	require.NoError(t, a.DB().NewRaw("SELECT count(*) FROM only_in_a").Scan(ctx, &n))
	_, err = b.DB().ExecContext(ctx, "SELECT count(*) FROM only_in_a")
	assert.Error(t, err)
}

func TestInitFactory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Paths["foo"] = ":memory:"
	f, err := InitFactory(cfg)
	require.NoError(t, err)
	assert.Same(t, f, GetFactory())

	_, err = f.Bind("foo")
	require.NoError(t, err)
	assert.Contains(t, GetHealthStatus(context.Background()), "foo")

	require.NoError(t, CloseFactory())
	assert.NotSame(t, f, GetFactory())
	require.NoError(t, CloseFactory())
}
