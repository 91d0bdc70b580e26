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
	"errors"
	"fmt"

	"github.com/tomoncle/hummer-sqlite/database"
)

var (
	ErrModelNotFound       = errors.New("model not found")
	ErrMultipleModelsFound = errors.New("multiple models found")
	ErrDuplicateModel      = errors.New("duplicate model")
	ErrModelIntegrity      = errors.New("model integrity violated")
	ErrNoSession           = errors.New("no session is available")
)

// ModelError reports a failed store operation on a model. errors.Is matches
// Kind and errors.As reaches the driver error.
type ModelError struct {
	Kind  error
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Model, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Model, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// integrityKind maps a driver error to ErrDuplicateModel or
// ErrModelIntegrity; nil when err is no constraint violation.
func integrityKind(err error) error {
	ok, kind := database.IsSqlError(err)
	if !ok || !database.IsIntegrityError(kind) {
		return nil
	}
	if kind == database.DuplicateKeyErr {
		return ErrDuplicateModel
	}
	return ErrModelIntegrity
}
