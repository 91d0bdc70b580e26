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
	"database/sql"
	"errors"
	"reflect"

	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
	"github.com/tomoncle/hummer-sqlite/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Store is the persistence layer of one model type. Operations run in the
// session picked by its SessionGetter, CurrentSession by default.
type Store[T any] struct {
	typ  reflect.Type
	opts options
}

// New returns a store for T, which must belong to a dataset.
func New[T any](opts ...Option) *Store[T] {
	s := &Store[T]{typ: reflect.TypeOf((*T)(nil)).Elem()}
	s.opts.getSession = CurrentSession
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// ModelType returns the struct type the store persists.
func (s *Store[T]) ModelType() reflect.Type { return s.typ }

func (s *Store[T]) DataSet() (*dataset.DataSet, error) {
	return dataset.ResolveType(s.typ)
}

// SetSessionGetter replaces how the store finds its session.
func (s *Store[T]) SetSessionGetter(fn SessionGetter) {
	s.opts.getSession = fn
}

// Session returns the session the next operation would run in.
func (s *Store[T]) Session(ctx context.Context) (*database.Session, error) {
	ds, err := s.DataSet()
	if err != nil {
		return nil, err
	}
	return s.opts.getSession(ctx, ds)
}

func (s *Store[T]) db(ctx context.Context) (bun.IDB, *database.Session, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	db, err := session.DB(ctx)
	if err != nil {
		return nil, nil, err
	}
	return db, session, nil
}

// Table returns the Bun table metadata of the model.
func (s *Store[T]) Table(ctx context.Context) (*schema.Table, error) {
	db, _, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.Dialect().Tables().Get(s.typ), nil
}

func (s *Store[T]) filter(q bun.QueryBuilder, c *types.Criteria) bun.QueryBuilder {
	for _, fn := range s.opts.filters {
		q = fn(q, c)
	}
	return q
}

func (s *Store[T]) order(q *bun.SelectQuery, c *types.Criteria) *bun.SelectQuery {
	for _, fn := range s.opts.orders {
		q = fn(q, c)
	}
	return q
}

func (s *Store[T]) paginate(q *bun.SelectQuery, c *types.Criteria) *bun.SelectQuery {
	if offset, ok := c.GetOffset(); ok {
		q = q.Offset(offset)
	}
	if limit, ok := c.GetLimit(); ok {
		q = q.Limit(limit)
	}
	return q
}

// selectQuery builds an ordered, filtered and paginated select into dest.
func (s *Store[T]) selectQuery(db bun.IDB, dest interface{}, c *types.Criteria) *bun.SelectQuery {
	q := db.NewSelect().Model(dest)
	q = s.order(q, c)
	q = q.ApplyQueryBuilder(func(qb bun.QueryBuilder) bun.QueryBuilder {
		return s.filter(qb, c)
	})
	return s.paginate(q, c)
}

// wrap turns constraint violations into model errors, rolling back the
// session first.
func (s *Store[T]) wrap(session *database.Session, err error) error {
	if err == nil {
		return nil
	}
	kind := integrityKind(err)
	if kind == nil {
		return err
	}
	if rbErr := session.Rollback(); rbErr != nil {
		database.GetLogger().Warn("Rollback after integrity error failed", "model", s.typ.Name(), "error", rbErr)
	}
	return &ModelError{Kind: kind, Model: s.typ.Name(), Err: err}
}

// Count counts the models matching c. Pagination is ignored.
func (s *Store[T]) Count(ctx context.Context, c *types.Criteria) (int, error) {
	db, _, err := s.db(ctx)
	if err != nil {
		return 0, err
	}
	return db.NewSelect().
		Model((*T)(nil)).
		ApplyQueryBuilder(func(qb bun.QueryBuilder) bun.QueryBuilder {
			return s.filter(qb, c)
		}).
		Count(ctx)
}

// Create inserts entity into the session's transaction.
func (s *Store[T]) Create(ctx context.Context, entity *T) (*T, error) {
	db, session, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := db.NewInsert().Model(entity).Exec(ctx); err != nil {
		return nil, s.wrap(session, err)
	}
	return entity, nil
}

// CreateAll inserts entities in as few statements as their defaulted
// columns allow.
func (s *Store[T]) CreateAll(ctx context.Context, entities ...*T) error {
	if len(entities) == 0 {
		return nil
	}
	db, session, err := s.db(ctx)
	if err != nil {
		return err
	}
	return s.wrap(session, database.InsertAll(ctx, db, &entities))
}

// Update writes entity back by primary key.
func (s *Store[T]) Update(ctx context.Context, entity *T) error {
	db, session, err := s.db(ctx)
	if err != nil {
		return err
	}
	res, err := db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	if err != nil {
		return s.wrap(session, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &ModelError{Kind: ErrModelNotFound, Model: s.typ.Name()}
	}
	return nil
}

// Delete removes the models matching c and fails with ErrModelNotFound when
// there were none.
func (s *Store[T]) Delete(ctx context.Context, c *types.Criteria) error {
	db, session, err := s.db(ctx)
	if err != nil {
		return err
	}
	res, err := db.NewDelete().
		Model((*T)(nil)).
		Where("1 = 1").
		ApplyQueryBuilder(func(qb bun.QueryBuilder) bun.QueryBuilder {
			return s.filter(qb, c)
		}).
		Exec(ctx)
	if err != nil {
		return s.wrap(session, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ModelError{Kind: ErrModelNotFound, Model: s.typ.Name()}
	}
	return nil
}

// First returns the first match in store order, or nil when there is none.
func (s *Store[T]) First(ctx context.Context, c *types.Criteria) (*T, error) {
	db, _, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	entity := new(T)
	err = s.selectQuery(db, entity, c).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// One returns the only match, failing with ErrModelNotFound or
// ErrMultipleModelsFound otherwise.
func (s *Store[T]) One(ctx context.Context, c *types.Criteria) (*T, error) {
	db, _, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []*T
	q := s.selectQuery(db, &entities, c)
	if _, ok := c.GetLimit(); !ok {
		q = q.Limit(2)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, &ModelError{Kind: ErrModelNotFound, Model: s.typ.Name()}
	case 1:
		return entities[0], nil
	default:
		return nil, &ModelError{Kind: ErrMultipleModelsFound, Model: s.typ.Name()}
	}
}

// Search returns the matches in store order.
func (s *Store[T]) Search(ctx context.Context, c *types.Criteria) ([]*T, error) {
	db, _, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	if err := s.selectQuery(db, &entities, c).Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return entities, nil
}

// Rows returns every model in store order, untyped.
func (s *Store[T]) Rows(ctx context.Context) ([]interface{}, error) {
	entities, err := s.Search(ctx, nil)
	if err != nil {
		return nil, err
	}
	rows := make([]interface{}, len(entities))
	for i, entity := range entities {
		rows[i] = entity
	}
	return rows, nil
}

// Page returns one page of matches. Orders of the request replace the
// store's default order.
func (s *Store[T]) Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[T], error) {
	c := req.GetCriteria()
	pagination := types.NewDefaultPagination[T](req.GetPage(), req.GetPageSize())
	total, err := s.Count(ctx, c)
	if err != nil || total == 0 {
		return pagination, err
	}

	db, _, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []*T
	q := db.NewSelect().Model(&entities)
	if orders := req.GetOrders(); len(orders) > 0 {
		q = q.Order(orders...)
	} else {
		q = s.order(q, c)
	}
	err = q.ApplyQueryBuilder(func(qb bun.QueryBuilder) bun.QueryBuilder {
		return s.filter(qb, c)
	}).
		Offset(req.GetOffset()).
		Limit(req.GetPageSize()).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}
