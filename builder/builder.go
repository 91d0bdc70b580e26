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

// Package builder populates datasets from CSV files.
package builder

import (
	"reflect"

	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
)

// Builder hands out CSV builders bound to one factory.
type Builder struct {
	factory *database.BindFactory
}

func New(f *database.BindFactory) *Builder {
	return &Builder{factory: f}
}

// CSV returns a builder for model, e.g. (*Person)(nil).
func (b *Builder) CSV(model interface{}) *CSVBuilder {
	return newCSVBuilder(b.factory, model)
}

// Bulk returns a builder loading several models of ds at once.
func (b *Builder) Bulk(ds *dataset.DataSet) *BulkCSVBuilder {
	return &BulkCSVBuilder{
		factory:   b.factory,
		dataset:   ds,
		defaults:  map[reflect.Type]map[string]interface{}{},
		BatchSize: DefaultBatchSize,
	}
}
