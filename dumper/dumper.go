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

// Package dumper exports datasets to CSV files.
package dumper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
)

// Source is what a dumper reads rows from. *store.Store[T] is a Source.
type Source interface {
	DataSet() (*dataset.DataSet, error)
	ModelType() reflect.Type
	Rows(ctx context.Context) ([]interface{}, error)
}

// Dumper hands out CSV dumpers bound to one factory.
type Dumper struct {
	factory *database.BindFactory
}

func New(f *database.BindFactory) *Dumper {
	return &Dumper{factory: f}
}

// CSV returns a dumper for src.
func (d *Dumper) CSV(src Source) *CSVDumper {
	return &CSVDumper{
		factory:  d.factory,
		source:   src,
		defaults: map[string]interface{}{},
	}
}

// Model returns a Source with every row of model ordered by primary key.
func (d *Dumper) Model(model interface{}) Source {
	typ := reflect.TypeOf(model)
	if t, ok := model.(reflect.Type); ok {
		typ = t
	}
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return &modelSource{typ: typ}
}

type modelSource struct {
	typ reflect.Type
}

func (s *modelSource) DataSet() (*dataset.DataSet, error) {
	if s.typ == nil {
		return nil, dataset.ErrNotADataSet
	}
	return dataset.ResolveType(s.typ)
}

func (s *modelSource) ModelType() reflect.Type { return s.typ }

func (s *modelSource) Rows(ctx context.Context) ([]interface{}, error) {
	ds, err := s.DataSet()
	if err != nil {
		return nil, err
	}
	session := ds.CurrentSession(ctx)
	if session == nil {
		return nil, fmt.Errorf("no session is available in %s", ds)
	}
	db, err := session.DB(ctx)
	if err != nil {
		return nil, err
	}

	table := db.Dialect().Tables().Get(s.typ)
	models := reflect.New(reflect.SliceOf(reflect.PointerTo(s.typ)))
	q := db.NewSelect().Model(models.Interface())
	for _, pk := range table.PKs {
		q = q.OrderExpr("?TableAlias.? ASC", pk.SQLName)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	slice := models.Elem()
	rows := make([]interface{}, slice.Len())
	for i := range rows {
		rows[i] = slice.Index(i).Interface()
	}
	return rows, nil
}
