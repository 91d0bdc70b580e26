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

package dataset

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var ErrNotADataSet = errors.New("not a valid dataset member")

// Model is a member of a dataset. Instance returns a struct pointer
// compatible with Bun, and Priority orders schema creation (lower first).
type Model interface {
	Instance() interface{}
	Priority() int
}

type ModelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct pointer and priority into a Model.
func NewModelAdapter(instance interface{}, priority int) Model {
	return &ModelAdapter{instance: instance, priority: priority}
}

func (a *ModelAdapter) Instance() interface{} { return a.instance }

func (a *ModelAdapter) Priority() int { return a.priority }

// modelRegistry keeps the members of one dataset in a deterministic order.
type modelRegistry struct {
	models []Model
	mutex  sync.RWMutex
}

func (r *modelRegistry) register(model Model) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.models = append(r.models, model)
}

// sorted returns the models by ascending priority, keeping registration
// order among equal priorities.
func (r *modelRegistry) sorted() []Model {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Model, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

// process-wide lookup of datasets by name and by member type
var registry = struct {
	sync.RWMutex
	byName map[string]*DataSet
	byType map[reflect.Type]*DataSet
}{
	byName: map[string]*DataSet{},
	byType: map[reflect.Type]*DataSet{},
}

func structType(model interface{}) (reflect.Type, error) {
	var typ reflect.Type
	switch m := model.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrNotADataSet)
	case reflect.Type:
		typ = m
	default:
		typ = reflect.TypeOf(model)
	}
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrNotADataSet, typ)
	}
	return typ, nil
}

// Resolve returns the dataset governing model. model may be a value, a
// pointer, a slice of either or a reflect.Type.
func Resolve(model interface{}) (*DataSet, error) {
	typ, err := structType(model)
	if err != nil {
		return nil, err
	}
	return ResolveType(typ)
}

// ResolveType returns the dataset of typ. A struct that embeds a member
// resolves to the member's dataset, however deeply embedded.
func ResolveType(typ reflect.Type) (*DataSet, error) {
	typ, err := structType(typ)
	if err != nil {
		return nil, err
	}
	registry.RLock()
	defer registry.RUnlock()
	if ds := resolveLocked(typ, map[reflect.Type]bool{}); ds != nil {
		return ds, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotADataSet, typ)
}

func resolveLocked(typ reflect.Type, seen map[reflect.Type]bool) *DataSet {
	if seen[typ] {
		return nil
	}
	seen[typ] = true
	if ds, ok := registry.byType[typ]; ok {
		return ds
	}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.Anonymous {
			continue
		}
		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct {
			continue
		}
		if ds := resolveLocked(ft, seen); ds != nil {
			return ds
		}
	}
	return nil
}

// Lookup returns the dataset created under name.
func Lookup(name string) (*DataSet, bool) {
	registry.RLock()
	defer registry.RUnlock()
	ds, ok := registry.byName[name]
	return ds, ok
}
