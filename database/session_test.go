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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := newTestFactory(t).Bind("foo")
	require.NoError(t, err)
	_, err = engine.DB().ExecContext(context.Background(),
		"CREATE TABLE item (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")
	require.NoError(t, err)
	return engine
}

func countItems(t *testing.T, engine *Engine) int {
	t.Helper()
	var n int
	require.NoError(t, engine.DB().NewRaw("SELECT count(*) FROM item").Scan(context.Background(), &n))
	return n
}

func TestSessionCommit(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	s, err := engine.NewSession(ctx)
	require.NoError(t, err)
	defer s.Close()
	assert.False(t, s.InTransaction())
	assert.False(t, s.Autocommit())

	db, err := s.DB(ctx)
	require.NoError(t, err)
	assert.True(t, s.InTransaction())
	_, err = db.ExecContext(ctx, "INSERT INTO item (name) VALUES ('a')")
	require.NoError(t, err)
	assert.Equal(t, 0, countItems(t, engine))

	require.NoError(t, s.Commit())
	assert.False(t, s.InTransaction())
	assert.Equal(t, 1, countItems(t, engine))

	// nothing pending
	require.NoError(t, s.Commit())
	require.NoError(t, s.Rollback())
}

func TestSessionRollbackAndClose(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	s, err := engine.NewSession(ctx)
	require.NoError(t, err)
	db, err := s.DB(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO item (name) VALUES ('a')")
	require.NoError(t, err)
	require.NoError(t, s.Rollback())
	assert.Equal(t, 0, countItems(t, engine))

	db, err = s.DB(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO item (name) VALUES ('b')")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 0, countItems(t, engine))

	_, err = s.DB(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionForeignKeys(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	s, err := engine.NewSession(ctx)
	require.NoError(t, err)
	defer s.Close()
	db, err := s.DB(ctx)
	require.NoError(t, err)

	enabled, err := ForeignKeysEnabled(ctx, db)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestAutocommitSession(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	s := engine.Autocommit()
	assert.Same(t, s, engine.Autocommit())
	assert.True(t, s.Autocommit())

	db, err := s.DB(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO item (name) VALUES ('a')")
	require.NoError(t, err)
	assert.False(t, s.InTransaction())
	assert.Equal(t, 1, countItems(t, engine))

	enabled, err := ForeignKeysEnabled(ctx, db)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestMemorySessionsShareDatabase(t *testing.T) {
	ctx := context.Background()
	f := NewBindFactory(DefaultConfig())
	defer f.Close()
	engine, err := f.Bind("memory")
	require.NoError(t, err)

	writer := engine.Autocommit()
	db, err := writer.DB(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE TABLE item (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO item (id) VALUES (1)")
	require.NoError(t, err)

	reader, err := engine.NewSession(ctx)
	require.NoError(t, err)
	defer reader.Close()
	rdb, err := reader.DB(ctx)
	require.NoError(t, err)
	var n int
	require.NoError(t, rdb.NewRaw("SELECT count(*) FROM item").Scan(ctx, &n))
	assert.Equal(t, 1, n)
}

func TestMemorySessionReadsWhileAnotherWrites(t *testing.T) {
	ctx := context.Background()
	f := NewBindFactory(DefaultConfig())
	defer f.Close()
	engine, err := f.Bind("memory")
	require.NoError(t, err)
	_, err = engine.DB().ExecContext(ctx, "CREATE TABLE item (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	writer, err := engine.NewSession(ctx)
	require.NoError(t, err)
	defer writer.Close()
	db, err := writer.DB(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO item (id) VALUES (1)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		reader, err := engine.NewSession(ctx)
		if err != nil {
			done <- err
			return
		}
		defer reader.Close()
		rdb, err := reader.DB(ctx)
		if err != nil {
			done <- err
			return
		}
		var n int
		done <- rdb.NewRaw("SELECT count(*) FROM item").Scan(ctx, &n)
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("reader blocked on the uncommitted write")
	}

	require.NoError(t, writer.Commit())
	assert.Equal(t, 1, countItems(t, engine))
}
