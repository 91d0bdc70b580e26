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
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/tomoncle/hummer-sqlite/database"
)

// DataSet is a named group of related models that share one engine. Each
// database an application uses gets its own DataSet.
type DataSet struct {
	name   string
	models modelRegistry

	mu      sync.RWMutex
	session *database.Session
}

// Create returns the dataset called name, creating it on first use.
func Create(name string) *DataSet {
	registry.Lock()
	defer registry.Unlock()
	if ds, ok := registry.byName[name]; ok {
		return ds
	}
	ds := &DataSet{name: name}
	registry.byName[name] = ds
	return ds
}

func (ds *DataSet) Name() string { return ds.name }

func (ds *DataSet) String() string { return "DataSet(" + ds.name + ")" }

// Register declares models, given as struct pointers such as (*Person)(nil),
// as members with priority 0.
func (ds *DataSet) Register(models ...interface{}) *DataSet {
	for _, model := range models {
		ds.RegisterWithPriority(model, 0)
	}
	return ds
}

// RegisterWithPriority declares a member; lower priorities are created
// first and dropped last. Registering a type owned by another dataset panics.
func (ds *DataSet) RegisterWithPriority(model interface{}, priority int) *DataSet {
	typ, err := structType(model)
	if err != nil {
		panic(err)
	}

	registry.Lock()
	if owner, ok := registry.byType[typ]; ok {
		registry.Unlock()
		if owner != ds {
			panic(fmt.Sprintf("%s already belongs to %s", typ, owner))
		}
		return ds
	}
	registry.byType[typ] = ds
	registry.Unlock()

	ds.models.register(NewModelAdapter(reflect.New(typ).Interface(), priority))
	return ds
}

// Models returns the members by ascending priority.
func (ds *DataSet) Models() []Model {
	return ds.models.sorted()
}

// Session returns the session currently bound to the dataset, if any.
func (ds *DataSet) Session() *database.Session {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.session
}

// SetSession binds s to the dataset; nil unbinds.
func (ds *DataSet) SetSession(s *database.Session) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.session = s
}

// CurrentSession prefers the session carried by ctx over the bound one.
func (ds *DataSet) CurrentSession(ctx context.Context) *database.Session {
	if s := SessionFrom(ctx, ds.name); s != nil {
		return s
	}
	return ds.Session()
}

// Engine binds the dataset's engine in f.
func (ds *DataSet) Engine(f *database.BindFactory) (*database.Engine, error) {
	return f.Bind(ds.name)
}

// CreateAll creates the tables of every member, parents first.
func (ds *DataSet) CreateAll(ctx context.Context, f *database.BindFactory) error {
	engine, err := ds.Engine(f)
	if err != nil {
		return err
	}
	db := engine.DB()
	for _, model := range ds.Models() {
		_, err := db.NewCreateTable().
			Model(model.Instance()).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model.Instance(), err)
		}
	}
	return nil
}

// DropAll drops the tables of every member, children first.
func (ds *DataSet) DropAll(ctx context.Context, f *database.BindFactory) error {
	engine, err := ds.Engine(f)
	if err != nil {
		return err
	}
	db := engine.DB()
	models := ds.Models()
	for i := len(models) - 1; i >= 0; i-- {
		_, err := db.NewDropTable().
			Model(models[i].Instance()).
			IfExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", models[i].Instance(), err)
		}
	}
	return nil
}

func (ds *DataSet) RecreateAll(ctx context.Context, f *database.BindFactory) error {
	if err := ds.DropAll(ctx, f); err != nil {
		return err
	}
	return ds.CreateAll(ctx, f)
}

// NewSession opens a session on the dataset's engine without binding it.
func (ds *DataSet) NewSession(ctx context.Context, f *database.BindFactory, opts ...database.SessionOption) (*database.Session, error) {
	engine, err := ds.Engine(f)
	if err != nil {
		return nil, err
	}
	return engine.NewSession(ctx, opts...)
}

// Autocommit returns the dataset's shared autocommit session.
func (ds *DataSet) Autocommit(f *database.BindFactory) (*database.Session, error) {
	engine, err := ds.Engine(f)
	if err != nil {
		return nil, err
	}
	return engine.Autocommit(), nil
}

func (ds *DataSet) NewContext(f *database.BindFactory, opts ...database.SessionOption) *SessionContext {
	return NewSessionContext(f, ds, opts...)
}

// Dispose closes the dataset's engine and unbinds any session.
func (ds *DataSet) Dispose(f *database.BindFactory) error {
	ds.SetSession(nil)
	return f.Dispose(ds.name)
}
