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

package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Truthy is a boolean column that also accepts the usual string spellings
// of true and false. The empty string is false.
type Truthy bool

// ParseTruthy converts bools, integers and strings such as "Yes", "t", "on",
// "0" or "" into a Truthy.
func ParseTruthy(value interface{}) (Truthy, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case Truthy:
		return v, nil
	case bool:
		return Truthy(v), nil
	case int:
		return v != 0, nil
	case int8:
		return v != 0, nil
	case int16:
		return v != 0, nil
	case int32:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case uint:
		return v != 0, nil
	case uint8:
		return v != 0, nil
	case uint16:
		return v != 0, nil
	case uint32:
		return v != 0, nil
	case uint64:
		return v != 0, nil
	case float32:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case []byte:
		return parseTruthyString(string(v))
	case string:
		return parseTruthyString(v)
	default:
		return false, fmt.Errorf("cannot convert %T to a truth value", value)
	}
}

func parseTruthyString(s string) (Truthy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return false, nil
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid truth value %q", s)
	}
}

// Scan implements sql.Scanner.
func (t *Truthy) Scan(value interface{}) error {
	v, err := ParseTruthy(value)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Value implements driver.Valuer.
func (t Truthy) Value() (driver.Value, error) {
	return bool(t), nil
}

func (t Truthy) Bool() bool { return bool(t) }

func (t Truthy) String() string {
	if t {
		return "true"
	}
	return "false"
}
