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

package dumper

import (
	"context"
	"database/sql/driver"
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"time"

	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/uptrace/bun/schema"
)

var valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()

// CSVDumper writes every row of a source as CSV, one line per model with
// a header of SQL column names.
type CSVDumper struct {
	factory  *database.BindFactory
	source   Source
	defaults map[string]interface{}
}

// Default sets values written in place of empty cells.
func (d *CSVDumper) Default(values map[string]interface{}) *CSVDumper {
	for column, value := range values {
		d.defaults[column] = value
	}
	return d
}

func (d *CSVDumper) table() (*schema.Table, error) {
	ds, err := d.source.DataSet()
	if err != nil {
		return nil, err
	}
	engine, err := ds.Engine(d.factory)
	if err != nil {
		return nil, err
	}
	return engine.DB().Table(d.source.ModelType()), nil
}

// Columns returns the SQL column names in model field order.
func (d *CSVDumper) Columns() ([]string, error) {
	table, err := d.table()
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(table.Fields))
	for i, field := range table.Fields {
		columns[i] = field.Name
	}
	return columns, nil
}

// Dump writes the header and all rows to w inside a session of its own.
func (d *CSVDumper) Dump(ctx context.Context, w io.Writer) error {
	ds, err := d.source.DataSet()
	if err != nil {
		return err
	}
	table, err := d.table()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	header := make([]string, len(table.Fields))
	for i, field := range table.Fields {
		header[i] = field.Name
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	err = ds.NewContext(d.factory).Run(ctx, func(ctx context.Context) error {
		rows, err := d.source.Rows(ctx)
		if err != nil {
			return err
		}
		record := make([]string, len(table.Fields))
		for _, row := range rows {
			strct := reflect.Indirect(reflect.ValueOf(row))
			for i, field := range table.Fields {
				cell, err := formatValue(field.Value(strct))
				if err != nil {
					return fmt.Errorf("column %s: %w", field.Name, err)
				}
				if cell == "" {
					if value, ok := d.defaults[field.Name]; ok {
						cell = fmt.Sprint(value)
					}
				}
				record[i] = cell
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// formatValue renders one field as a CSV cell; NULL becomes "".
func formatValue(v reflect.Value) (string, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", nil
		}
		if v.Kind() == reflect.Ptr && v.Type().Implements(valuerType) {
			break
		}
		v = v.Elem()
	}

	if t, ok := v.Interface().(time.Time); ok {
		if t.IsZero() {
			return "", nil
		}
		return t.Format(time.RFC3339Nano), nil
	}
	if v.Type().Implements(valuerType) {
		value, err := v.Interface().(driver.Valuer).Value()
		if err != nil {
			return "", err
		}
		if value == nil {
			return "", nil
		}
		return formatValue(reflect.ValueOf(value))
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits()), nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes()), nil
		}
	}
	return fmt.Sprint(v.Interface()), nil
}
