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
	"database/sql"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/tomoncle/hummer-sqlite/types"
)

var (
	timeType            = reflect.TypeOf(time.Time{})
	scannerType         = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// timeLayouts are tried in order when a cell fills a time.Time column.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// setString stores the CSV cell s into v, converting it to v's type.
// Strings are kept verbatim; everything else is trimmed first.
func setString(v reflect.Value, s string) error {
	typ := v.Type()
	trimmed := strings.TrimSpace(s)

	if typ.Kind() == reflect.Ptr {
		if trimmed == "" {
			v.Set(reflect.Zero(typ))
			return nil
		}
		elem := reflect.New(typ.Elem())
		if err := setString(elem.Elem(), s); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	}

	if typ == timeType {
		if trimmed == "" {
			v.Set(reflect.Zero(typ))
			return nil
		}
		t, err := parseTime(trimmed)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t))
		return nil
	}

	if reflect.PointerTo(typ).Implements(scannerType) {
		return v.Addr().Interface().(sql.Scanner).Scan(trimmed)
	}
	if reflect.PointerTo(typ).Implements(textUnmarshalerType) {
		return v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(trimmed))
	}

	switch typ.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := types.ParseTruthy(trimmed)
		if err != nil {
			return err
		}
		v.SetBool(bool(b))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if trimmed == "" {
			v.SetInt(0)
			return nil
		}
		n, err := strconv.ParseInt(trimmed, 10, typ.Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if trimmed == "" {
			v.SetUint(0)
			return nil
		}
		n, err := strconv.ParseUint(trimmed, 10, typ.Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		if trimmed == "" {
			v.SetFloat(0)
			return nil
		}
		f, err := strconv.ParseFloat(trimmed, typ.Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case reflect.Slice:
		if typ.Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("unsupported column type %s", typ)
		}
		v.SetBytes([]byte(s))
	default:
		return fmt.Errorf("unsupported column type %s", typ)
	}
	return nil
}

// setValue stores a default value into v. Strings go through setString,
// other values must be assignable or convertible to v's type.
func setValue(v reflect.Value, value interface{}) error {
	if value == nil {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	if s, ok := value.(string); ok {
		return setString(v, s)
	}

	rv := reflect.ValueOf(value)
	typ := v.Type()
	switch {
	case rv.Type().AssignableTo(typ):
		v.Set(rv)
	case rv.Type().ConvertibleTo(typ):
		v.Set(rv.Convert(typ))
	case typ.Kind() == reflect.Ptr && rv.Type().ConvertibleTo(typ.Elem()):
		elem := reflect.New(typ.Elem())
		elem.Elem().Set(rv.Convert(typ.Elem()))
		v.Set(elem)
	default:
		return fmt.Errorf("cannot use %T as %s", value, typ)
	}
	return nil
}
