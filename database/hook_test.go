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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

func TestQueryHook(t *testing.T) {
	var buf bytes.Buffer
	hook := NewQueryHook("foo", false, &buf)

	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	assert.Empty(t, buf.String())

	hook.AfterQuery(context.Background(), &bun.QueryEvent{
		Query:     "SELECT * FROM missing",
		StartTime: time.Now(),
		Err:       errors.New("no such table: missing"),
	})
	assert.Contains(t, buf.String(), "[foo]")
	assert.Contains(t, buf.String(), "SELECT * FROM missing")
	assert.Contains(t, buf.String(), "no such table: missing")
}

func TestQueryHookSilent(t *testing.T) {
	var buf bytes.Buffer
	hook := NewQueryHook("foo", true, &buf)

	EnableSilent(true)
	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	EnableSilent(false)
	assert.Empty(t, buf.String())

	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	assert.Contains(t, buf.String(), "SELECT 1")
}

func TestConnectStatements(t *testing.T) {
	assert.Equal(t, []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 1500"},
		connectStatements(DriverSQLite, 1500*time.Millisecond, false))
	assert.Equal(t, []string{"PRAGMA foreign_keys = ON", "PRAGMA read_uncommitted = 1"},
		connectStatements(DriverSQLite, 0, true))
	assert.Empty(t, connectStatements(DriverPostgres, time.Second, true))
	assert.Equal(t, "PRAGMA defer_foreign_keys = ON", deferForeignKeysStatement(DriverSQLite))
	assert.Equal(t, "SET FOREIGN_KEY_CHECKS = 1", restoreForeignKeysStatement(DriverMySQL))
	assert.Empty(t, restoreForeignKeysStatement(DriverSQLite))
}
