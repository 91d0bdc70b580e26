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
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// InsertAll inserts a slice of model pointers, e.g. *[]*Person. Each apply
// func customizes every INSERT statement, e.g. with an ON CONFLICT clause.
//
// A multi-row INSERT takes its column list from the first row and leaves out
// NOT NULL columns that row defers to the database default, dropping values
// later rows set for them. Rows are therefore sent in consecutive runs sharing
// the same omitted columns, which also keeps their insertion order.
func InsertAll(ctx context.Context, db bun.IDB, models interface{}, apply ...func(*bun.InsertQuery) *bun.InsertQuery) error {
	slice := reflect.Indirect(reflect.ValueOf(models))
	if slice.Kind() != reflect.Slice || slice.Type().Elem().Kind() != reflect.Ptr {
		return fmt.Errorf("insert: %T is not a slice of pointers", models)
	}
	if slice.Len() == 0 {
		return nil
	}
	table := db.Dialect().Tables().Get(slice.Type().Elem().Elem())

	start := 0
	key := omittedColumns(table, slice.Index(0).Elem())
	for i := 1; i <= slice.Len(); i++ {
		if i < slice.Len() {
			next := omittedColumns(table, slice.Index(i).Elem())
			if next == key {
				continue
			}
			key = next
		}
		run := reflect.New(slice.Type())
		run.Elem().Set(slice.Slice(start, i))
		q := db.NewInsert().Model(run.Interface())
		for _, fn := range apply {
			q = fn(q)
		}
		if _, err := q.Exec(ctx); err != nil {
			return err
		}
		start = i
	}
	return nil
}

// omittedColumns lists the NOT NULL columns bun leaves to the database default
// when strct heads a multi-row insert.
func omittedColumns(table *schema.Table, strct reflect.Value) string {
	var b strings.Builder
	for _, f := range table.Fields {
		if !f.NotNull {
			continue
		}
		if (f.IsPtr && f.HasNilValue(strct)) ||
			(f.HasZeroValue(strct) && (f.NullZero || f.SQLDefault != "")) {
			b.WriteString(f.Name)
			b.WriteByte(',')
		}
	}
	return b.String()
}
