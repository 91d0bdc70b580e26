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
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// connectStatements run once on every connection a session acquires.
// SQLite ignores foreign keys unless enabled per connection, and the pragma
// is a no-op inside a transaction, so it must run before BEGIN.
//
// A shared-cache memory database waits without bound on table locks held by
// another connection, so memory connections read uncommitted data instead.
func connectStatements(driver Driver, busyTimeout time.Duration, memory bool) []string {
	switch driver {
	case DriverSQLite:
		stmts := []string{"PRAGMA foreign_keys = ON"}
		if busyTimeout > 0 {
			stmts = append(stmts, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()))
		}
		if memory {
			stmts = append(stmts, "PRAGMA read_uncommitted = 1")
		}
		return stmts
	default:
		return nil
	}
}

// deferForeignKeysStatement postpones foreign key checks to COMMIT. It runs
// right after BEGIN.
func deferForeignKeysStatement(driver Driver) string {
	switch driver {
	case DriverSQLite:
		return "PRAGMA defer_foreign_keys = ON"
	case DriverPostgres:
		// only affects constraints declared DEFERRABLE
		return "SET CONSTRAINTS ALL DEFERRED"
	case DriverMySQL:
		return "SET FOREIGN_KEY_CHECKS = 0"
	default:
		return ""
	}
}

// restoreForeignKeysStatement undoes a deferral that outlives the transaction.
func restoreForeignKeysStatement(driver Driver) string {
	if driver == DriverMySQL {
		return "SET FOREIGN_KEY_CHECKS = 1"
	}
	return ""
}

// ForeignKeysEnabled reports whether SQLite enforces foreign keys on db.
// Other drivers always enforce them.
func ForeignKeysEnabled(ctx context.Context, db bun.IDB) (bool, error) {
	if db.Dialect().Name() != dialect.SQLite {
		return true, nil
	}
	var enabled int
	if err := db.NewRaw("PRAGMA foreign_keys").Scan(ctx, &enabled); err != nil {
		return false, err
	}
	return enabled == 1, nil
}
