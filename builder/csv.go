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

package builder

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

const DefaultBatchSize = 500

// CSVBuilder loads rows of one model from CSV. The header row names SQL
// columns of the model.
type CSVBuilder struct {
	factory  *database.BindFactory
	typ      reflect.Type
	defaults map[string]interface{}

	// BatchSize is the number of rows per INSERT statement.
	BatchSize int
}

// modelType accepts a model value, pointer or reflect.Type.
func modelType(model interface{}) reflect.Type {
	typ := reflect.TypeOf(model)
	if t, ok := model.(reflect.Type); ok {
		typ = t
	}
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return typ
}

func newCSVBuilder(f *database.BindFactory, model interface{}) *CSVBuilder {
	return &CSVBuilder{
		factory:   f,
		typ:       modelType(model),
		defaults:  map[string]interface{}{},
		BatchSize: DefaultBatchSize,
	}
}

// Default sets values for columns the CSV leaves out.
func (b *CSVBuilder) Default(values map[string]interface{}) *CSVBuilder {
	for column, value := range values {
		b.defaults[column] = value
	}
	return b
}

func (b *CSVBuilder) dataset() (*dataset.DataSet, error) {
	if b.typ == nil {
		return nil, dataset.ErrNotADataSet
	}
	return dataset.ResolveType(b.typ)
}

func (b *CSVBuilder) table() (*schema.Table, error) {
	ds, err := b.dataset()
	if err != nil {
		return nil, err
	}
	engine, err := ds.Engine(b.factory)
	if err != nil {
		return nil, err
	}
	return engine.DB().Table(b.typ), nil
}

// AsModel converts one CSV row, keyed by column name, into a new model.
func (b *CSVBuilder) AsModel(row map[string]string) (interface{}, error) {
	table, err := b.table()
	if err != nil {
		return nil, err
	}
	model := reflect.New(b.typ)
	if err := b.fill(table, model.Elem(), row); err != nil {
		return nil, err
	}
	return model.Interface(), nil
}

func (b *CSVBuilder) fill(table *schema.Table, strct reflect.Value, row map[string]string) error {
	for column, value := range b.defaults {
		if _, ok := row[column]; ok {
			continue
		}
		field, ok := table.FieldMap[column]
		if !ok {
			return fmt.Errorf("%s has no column %q", b.typ.Name(), column)
		}
		if err := setValue(field.Value(strct), value); err != nil {
			return fmt.Errorf("default of %s.%s: %w", table.Name, column, err)
		}
	}
	for column, value := range row {
		field, ok := table.FieldMap[column]
		if !ok {
			return fmt.Errorf("%s has no column %q", b.typ.Name(), column)
		}
		if err := setString(field.Value(strct), value); err != nil {
			return fmt.Errorf("column %s.%s: %w", table.Name, column, err)
		}
	}
	return nil
}

// Build inserts every row of r in a session of its own and commits.
func (b *CSVBuilder) Build(ctx context.Context, r io.Reader) error {
	ds, err := b.dataset()
	if err != nil {
		return err
	}
	sc := ds.NewContext(b.factory)
	return sc.Run(ctx, func(ctx context.Context) error {
		db, err := sc.Session().DB(ctx)
		if err != nil {
			return err
		}
		if _, err := b.insert(ctx, db, r); err != nil {
			return err
		}
		return sc.Commit()
	})
}

// insert reads r and inserts its rows in batches, returning the row count.
func (b *CSVBuilder) insert(ctx context.Context, db bun.IDB, r io.Reader) (int, error) {
	table := db.Dialect().Tables().Get(b.typ)
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	batchSize := b.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	sliceType := reflect.SliceOf(reflect.PointerTo(b.typ))
	batch := reflect.MakeSlice(sliceType, 0, batchSize)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		models := reflect.New(sliceType)
		models.Elem().Set(batch)
		if err := database.InsertAll(ctx, db, models.Interface()); err != nil {
			return fmt.Errorf("failed to insert %s rows: %w", table.Name, err)
		}
		batch = reflect.MakeSlice(sliceType, 0, batchSize)
		return nil
	}

	count := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read csv: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, column := range header {
			row[column] = record[i]
		}
		model := reflect.New(b.typ)
		if err := b.fill(table, model.Elem(), row); err != nil {
			return count, fmt.Errorf("row %d: %w", count+1, err)
		}
		batch = reflect.Append(batch, model)
		count++
		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	return count, flush()
}
