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

package hummer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/internal/fixture"
	"github.com/tomoncle/hummer-sqlite/store"
	"github.com/tomoncle/hummer-sqlite/types"
)

func TestGraph(t *testing.T) {
	ctx := context.Background()
	g, err := NewGraph(fixture.Config(t))
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, fixture.Example.CreateAll(ctx, g.SQLite))

	require.NoError(t, g.Builder.CSV(&fixture.Person{}).Build(ctx, strings.NewReader("first,last\nStephen,Curry\n")))

	var buf bytes.Buffer
	require.NoError(t, g.Dumper.CSV(g.Dumper.Model(&fixture.Person{})).Dump(ctx, &buf))
	assert.Equal(t, "id,first,last\r\n1,Stephen,Curry\r\n", buf.String())
}

func TestService(t *testing.T) {
	ctx := context.Background()
	f := fixture.NewFactory(t)
	svc := NewServiceWithFactory[fixture.Person](f, store.WithOrder(store.OrderAsc("id")))

	require.NoError(t, svc.Save(ctx,
		&fixture.Person{First: "Stephen", Last: "Curry"},
		&fixture.Person{First: "Klay", Last: "Thompson"},
	))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	klay, err := svc.Get(ctx, all[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Klay", klay.First)

	klay.Last = "Thompson II"
	require.NoError(t, svc.Update(ctx, klay))
	list, err := svc.List(ctx, types.Eq("id", klay.ID))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Thompson II", list[0].Last)

	page, err := svc.Page(ctx, types.NewDefaultPageRequest(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "Stephen", page.Items[0].First)

	require.NoError(t, svc.Delete(ctx, klay.ID))
	_, err = svc.Get(ctx, klay.ID)
	assert.ErrorIs(t, err, store.ErrModelNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, klay.ID), store.ErrModelNotFound)

	s, err := svc.Store().Session(ctx)
	require.NoError(t, err)
	assert.True(t, s.Autocommit())
}

func TestServiceFollowsGlobalFactory(t *testing.T) {
	ctx := context.Background()
	t.Cleanup(func() {
		fixture.Example.SetSession(nil)
		_ = database.CloseFactory()
	})
	svc := NewService[fixture.Person]()

	first, err := database.InitFactory(fixture.Config(t))
	require.NoError(t, err)
	require.NoError(t, fixture.Example.CreateAll(ctx, first))
	require.NoError(t, svc.Save(ctx, &fixture.Person{First: "Stephen", Last: "Curry"}))

	second, err := database.InitFactory(fixture.Config(t))
	require.NoError(t, err)
	require.NoError(t, fixture.Example.CreateAll(ctx, second))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	s, err := svc.Store().Session(ctx)
	require.NoError(t, err)
	engine, err := fixture.Example.Engine(second)
	require.NoError(t, err)
	assert.Same(t, engine, s.Engine())
}
