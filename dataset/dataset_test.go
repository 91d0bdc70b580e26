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

package dataset_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hummer-sqlite/dataset"
	"github.com/tomoncle/hummer-sqlite/internal/fixture"
)

type Puppy struct {
	fixture.Dog
	Age int
}

type Stray struct {
	Name string
}

func TestResolve(t *testing.T) {
	for _, model := range []interface{}{
		fixture.Person{},
		&fixture.Person{},
		[]*fixture.Dog{},
		reflect.TypeOf(fixture.Dog{}),
		&Puppy{},
	} {
		ds, err := dataset.Resolve(model)
		require.NoError(t, err, "%T", model)
		assert.Same(t, fixture.Example, ds)
	}

	_, err := dataset.Resolve(&Stray{})
	assert.ErrorIs(t, err, dataset.ErrNotADataSet)
	_, err = dataset.Resolve(42)
	assert.ErrorIs(t, err, dataset.ErrNotADataSet)
	_, err = dataset.Resolve(nil)
	assert.ErrorIs(t, err, dataset.ErrNotADataSet)
}

func TestCreateReturnsSameDataSet(t *testing.T) {
	assert.Same(t, fixture.Example, dataset.Create("example"))
	ds, ok := dataset.Lookup("example")
	assert.True(t, ok)
	assert.Same(t, fixture.Example, ds)
	assert.Equal(t, "DataSet(example)", ds.String())
}

func TestModelsByPriority(t *testing.T) {
	models := fixture.Example.Models()
	require.Len(t, models, 2)
	assert.IsType(t, &fixture.Person{}, models[0].Instance())
	assert.IsType(t, &fixture.Dog{}, models[1].Instance())
}

func TestRegisterOwnedByOtherDataSetPanics(t *testing.T) {
	other := dataset.Create("other")
	assert.Panics(t, func() { other.Register((*fixture.Person)(nil)) })
	assert.NotPanics(t, func() { fixture.Example.Register((*fixture.Person)(nil)) })
}

func TestCreateAndDropAll(t *testing.T) {
	ctx := context.Background()
	f := fixture.NewFactory(t)
	engine, err := fixture.Example.Engine(f)
	require.NoError(t, err)

	tables := func() []string {
		var names []string
		require.NoError(t, engine.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('person', 'dog') ORDER BY name",
		).Scan(ctx, &names))
		return names
	}
	assert.Equal(t, []string{"dog", "person"}, tables())

	// idempotent
	require.NoError(t, fixture.Example.CreateAll(ctx, f))

	require.NoError(t, fixture.Example.DropAll(ctx, f))
	assert.Empty(t, tables())

	require.NoError(t, fixture.Example.RecreateAll(ctx, f))
	assert.Equal(t, []string{"dog", "person"}, tables())
}
