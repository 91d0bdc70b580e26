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
	"fmt"
	"io"
	"reflect"

	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
)

// Source pairs a model with the CSV holding its rows.
type Source struct {
	Model  interface{}
	Reader io.Reader
}

// BulkCSVBuilder loads several CSVs of one dataset in a single transaction.
// Foreign keys are checked at commit, so sources may come in any order.
type BulkCSVBuilder struct {
	factory  *database.BindFactory
	dataset  *dataset.DataSet
	defaults map[reflect.Type]map[string]interface{}

	BatchSize int
}

// Default sets values for columns the CSVs of model leave out.
func (b *BulkCSVBuilder) Default(model interface{}, values map[string]interface{}) *BulkCSVBuilder {
	key := modelType(model)
	if b.defaults[key] == nil {
		b.defaults[key] = map[string]interface{}{}
	}
	for column, value := range values {
		b.defaults[key][column] = value
	}
	return b
}

// Build inserts every source and commits once. Any failure discards all.
func (b *BulkCSVBuilder) Build(ctx context.Context, sources []Source) error {
	builders := make([]*CSVBuilder, len(sources))
	for i, src := range sources {
		builder := newCSVBuilder(b.factory, src.Model)
		ds, err := builder.dataset()
		if err != nil {
			return err
		}
		if ds != b.dataset {
			return fmt.Errorf("%T belongs to %s, not %s", src.Model, ds, b.dataset)
		}
		builder.Default(b.defaults[builder.typ])
		if b.BatchSize > 0 {
			builder.BatchSize = b.BatchSize
		}
		builders[i] = builder
	}

	sc := b.dataset.NewContext(b.factory, database.WithDeferForeignKeys())
	return sc.Run(ctx, func(ctx context.Context) error {
		db, err := sc.Session().DB(ctx)
		if err != nil {
			return err
		}
		for i, src := range sources {
			n, err := builders[i].insert(ctx, db, src.Reader)
			if err != nil {
				return fmt.Errorf("source %d (%T): %w", i, src.Model, err)
			}
			database.GetLogger().Debug("CSV source loaded", "dataset", b.dataset.Name(), "model", fmt.Sprintf("%T", src.Model), "rows", n)
		}
		return sc.Commit()
	})
}
