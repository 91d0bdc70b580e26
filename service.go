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

package hummer

import (
	"context"
	"sync"

	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
	"github.com/tomoncle/hummer-sqlite/store"
	"github.com/tomoncle/hummer-sqlite/types"
)

type Service[T any] interface {
	// Get returns the model whose "id" equals id.
	Get(ctx context.Context, id any) (*T, error)

	// All returns every model.
	All(ctx context.Context) ([]*T, error)

	// List returns models matching the criteria.
	List(ctx context.Context, c *types.Criteria) ([]*T, error)

	// Page returns a page of models.
	Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new models.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts models on conflictKeys, updating fields.
	SaveOrUpdate(ctx context.Context, fields []string, conflictKeys []string, model ...*T) error

	// Update writes a model back by primary key.
	Update(ctx context.Context, model *T) error

	// Delete removes the model whose "id" equals id.
	Delete(ctx context.Context, id any) error

	// Store exposes the underlying store.
	Store() *store.Store[T]
}

type baseServiceImpl[T any] struct {
	factory func() *database.BindFactory
	opts    []store.Option
	store   *store.Store[T]
	once    sync.Once
}

// NewService returns a Service on the global factory. Calls outside an open
// session run in the dataset's autocommit session.
func NewService[T any](opts ...store.Option) Service[T] {
	return &baseServiceImpl[T]{factory: database.GetFactory, opts: opts}
}

// NewServiceWithFactory is NewService bound to f.
func NewServiceWithFactory[T any](f *database.BindFactory, opts ...store.Option) Service[T] {
	return &baseServiceImpl[T]{factory: func() *database.BindFactory { return f }, opts: opts}
}

func (s *baseServiceImpl[T]) Store() *store.Store[T] {
	s.once.Do(func() {
		opts := append([]store.Option{store.WithFilter(store.FilterEqual("id"))}, s.opts...)
		// the factory is looked up per call so a later InitFactory takes effect
		opts = append(opts, store.WithSessionGetter(func(ctx context.Context, ds *dataset.DataSet) (*database.Session, error) {
			return store.GetOrCreateSession(s.factory())(ctx, ds)
		}))
		s.store = store.New[T](opts...)
	})
	return s.store
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.Store().One(ctx, types.Eq("id", id))
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.Store().Search(ctx, nil)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, c *types.Criteria) ([]*T, error) {
	return s.Store().Search(ctx, c)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[T], error) {
	return s.Store().Page(ctx, req)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.Store().CreateAll(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, conflictKeys []string, model ...*T) error {
	return s.Store().Upsert(ctx, fields, conflictKeys, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.Store().Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.Store().Delete(ctx, types.Eq("id", id))
}
