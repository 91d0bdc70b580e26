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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		path   string
		driver Driver
		url    string
		dsn    string
		memory bool
	}{
		{":memory:", DriverSQLite, "sqlite:///:memory:", "file::memory:?cache=shared", true},
		{"/tmp/foo.db", DriverSQLite, "sqlite:////tmp/foo.db", "/tmp/foo.db", false},
		{"data/foo.db", DriverSQLite, "sqlite:///data/foo.db", "data/foo.db", false},
		{"sqlite:///data/foo.db", DriverSQLite, "sqlite:///data/foo.db", "data/foo.db", false},
		{"sqlite://", DriverSQLite, "sqlite:///:memory:", "file::memory:?cache=shared", true},
		{"postgres://u:p@db:5432/app", DriverPostgres, "postgres://u:p@db:5432/app", "postgres://u:p@db:5432/app", false},
		{"mysql://u:p@db/app", DriverMySQL, "mysql://u:p@db/app", "u:p@tcp(db:3306)/app?charset=utf8mb4&clientFoundRows=true&parseTime=true", false},
		{"mysql://u@db:3307/app?clientFoundRows=false", DriverMySQL, "mysql://u@db:3307/app?clientFoundRows=false", "u@tcp(db:3307)/app?charset=utf8mb4&clientFoundRows=false&parseTime=true", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			loc, err := ParseLocation(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, loc.Driver)
			assert.Equal(t, tt.url, loc.URL)
			assert.Equal(t, tt.dsn, loc.DSN)
			assert.Equal(t, tt.memory, loc.Memory)
		})
	}
}

func TestParseLocationErrors(t *testing.T) {
	for _, path := range []string{"", "  ", "redis://localhost"} {
		_, err := ParseLocation(path)
		assert.Error(t, err, path)
	}
}
