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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsSqlError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind SQLError
	}{
		{"no rows", fmt.Errorf("wrapped: %w", sql.ErrNoRows), NoRowsErr},
		{"pq unique", &pq.Error{Code: "23505"}, DuplicateKeyErr},
		{"pq foreign key", &pq.Error{Code: "23503"}, ForeignKeyViolationErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, DuplicateKeyErr},
		{"mysql not null", &mysql.MySQLError{Number: 1048}, NotNullViolationErr},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: person.first, person.last (2067)"), DuplicateKeyErr},
		{"sqlite not null", errors.New("constraint failed: NOT NULL constraint failed: person.first (1299)"), NotNullViolationErr},
		{"sqlite foreign key", errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), ForeignKeyViolationErr},
		{"sqlite no table", errors.New("SQL logic error: no such table: person (1)"), NoTableErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, kind := IsSqlError(tt.err)
			assert.True(t, ok)
			assert.Equal(t, tt.kind, kind, kind.String())
		})
	}

	ok, _ := IsSqlError(nil)
	assert.False(t, ok)
}

func TestIsIntegrityError(t *testing.T) {
	assert.True(t, IsIntegrityError(DuplicateKeyErr))
	assert.True(t, IsIntegrityError(ForeignKeyViolationErr))
	assert.True(t, IsIntegrityError(NotNullViolationErr))
	assert.False(t, IsIntegrityError(NoTableErr))
	assert.False(t, IsIntegrityError(UnknownErr))
}
