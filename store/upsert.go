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

package store

import (
	"context"
	"fmt"

	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

// Upsert inserts entities, updating fields of rows that collide on
// conflictKeys (primary key "id" by default). MySQL ignores conflictKeys and
// uses every unique index.
func (s *Store[T]) Upsert(ctx context.Context, fields []string, conflictKeys []string, entities ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entities) == 0 {
		return nil
	}
	db, session, err := s.db(ctx)
	if err != nil {
		return err
	}

	features := db.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		err = database.InsertAll(ctx, db, &entities, onConflict(fields, conflictKeys))
	case features.Has(feature.InsertOnDuplicateKey):
		err = database.InsertAll(ctx, db, &entities, onDuplicateKey(fields))
	default:
		err = upsertFallback(ctx, db, entities)
	}
	return s.wrap(session, err)
}

func onDuplicateKey(fields []string) func(*bun.InsertQuery) *bun.InsertQuery {
	return func(q *bun.InsertQuery) *bun.InsertQuery {
		q = q.On("DUPLICATE KEY UPDATE")
		for _, field := range fields {
			q = q.Set("? = VALUES(?)", bun.Ident(field), bun.Ident(field))
		}
		return q
	}
}

func onConflict(fields []string, conflictKeys []string) func(*bun.InsertQuery) *bun.InsertQuery {
	if len(conflictKeys) == 0 {
		conflictKeys = []string{"id"}
	}
	keys := make([]bun.Ident, len(conflictKeys))
	for i, key := range conflictKeys {
		keys[i] = bun.Ident(key)
	}
	return func(q *bun.InsertQuery) *bun.InsertQuery {
		q = q.On("CONFLICT (?) DO UPDATE", bun.In(keys))
		for _, field := range fields {
			q = q.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
		}
		return q
	}
}

func upsertFallback[T any](ctx context.Context, db bun.IDB, entities []*T) error {
	for _, entity := range entities {
		if _, err := db.NewInsert().Model(entity).Exec(ctx); err != nil {
			if _, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx); updateErr != nil {
				return fmt.Errorf("upsert failed: insert error: %w, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}
