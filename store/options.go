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
	"github.com/tomoncle/hummer-sqlite/dataset"
	"github.com/tomoncle/hummer-sqlite/types"
	"github.com/uptrace/bun"
)

// FilterFunc narrows select and delete queries by the criteria params.
type FilterFunc func(q bun.QueryBuilder, c *types.Criteria) bun.QueryBuilder

// OrderFunc orders select queries.
type OrderFunc func(q *bun.SelectQuery, c *types.Criteria) *bun.SelectQuery

// SessionGetter picks the session a store operation runs in.
type SessionGetter func(ctx context.Context, ds *dataset.DataSet) (*database.Session, error)

type options struct {
	filters    []FilterFunc
	orders     []OrderFunc
	getSession SessionGetter
}

type Option func(*options)

func WithFilter(fn FilterFunc) Option {
	return func(o *options) {
		o.filters = append(o.filters, fn)
	}
}

func WithOrder(fn OrderFunc) Option {
	return func(o *options) {
		o.orders = append(o.orders, fn)
	}
}

// WithSessionGetter replaces CurrentSession.
func WithSessionGetter(fn SessionGetter) Option {
	return func(o *options) {
		o.getSession = fn
	}
}

// CurrentSession returns the session carried by ctx or bound to the dataset.
func CurrentSession(ctx context.Context, ds *dataset.DataSet) (*database.Session, error) {
	if s := ds.CurrentSession(ctx); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w in %s", ErrNoSession, ds)
}

// GetOrCreateSession falls back to the dataset's autocommit session of f
// when no session is open. The fallback is shared by all goroutines.
func GetOrCreateSession(f *database.BindFactory) SessionGetter {
	return func(ctx context.Context, ds *dataset.DataSet) (*database.Session, error) {
		if s := ds.CurrentSession(ctx); s != nil {
			return s, nil
		}
		return ds.Autocommit(f)
	}
}

// FilterEqual matches each named param against the column of the same name.
func FilterEqual(columns ...string) FilterFunc {
	return func(q bun.QueryBuilder, c *types.Criteria) bun.QueryBuilder {
		for _, column := range columns {
			if value, ok := c.Param(column); ok {
				q = q.Where("?TableAlias.? = ?", bun.Ident(column), value)
			}
		}
		return q
	}
}

// FilterExclude drops rows whose column equals the named param.
func FilterExclude(param, column string) FilterFunc {
	return func(q bun.QueryBuilder, c *types.Criteria) bun.QueryBuilder {
		if value, ok := c.Param(param); ok {
			q = q.Where("?TableAlias.? != ?", bun.Ident(column), value)
		}
		return q
	}
}

// OrderAsc sorts by columns in ascending order.
func OrderAsc(columns ...string) OrderFunc {
	return func(q *bun.SelectQuery, c *types.Criteria) *bun.SelectQuery {
		for _, column := range columns {
			q = q.OrderExpr("?TableAlias.? ASC", bun.Ident(column))
		}
		return q
	}
}

// OrderDesc sorts by columns in descending order.
func OrderDesc(columns ...string) OrderFunc {
	return func(q *bun.SelectQuery, c *types.Criteria) *bun.SelectQuery {
		for _, column := range columns {
			q = q.OrderExpr("?TableAlias.? DESC", bun.Ident(column))
		}
		return q
	}
}
