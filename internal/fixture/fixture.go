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

// Package fixture holds the models and factories shared by package tests.
package fixture

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dataset"
	"github.com/uptrace/bun"
)

type Person struct {
	bun.BaseModel `bun:"table:person"`

	ID    int64  `bun:"id,pk,autoincrement"`
	First string `bun:"first,notnull,nullzero,unique:unique_name"`
	Last  string `bun:"last,notnull,nullzero,unique:unique_name"`
}

type Dog struct {
	bun.BaseModel `bun:"table:dog"`

	ID         int64   `bun:"id,pk,autoincrement"`
	Name       string  `bun:"name,notnull"`
	IsAGoodBoy *bool   `bun:"is_a_good_boy,notnull,default:true"`
	OwnerID    int64   `bun:"owner_id,notnull"`
	Owner      *Person `bun:"rel:belongs-to,join:owner_id=id"`
}

// Example is the dataset of Person and Dog; people are created first.
var Example = dataset.Create("example").
	RegisterWithPriority((*Person)(nil), 0).
	RegisterWithPriority((*Dog)(nil), 1)

// Config returns a config placing the example dataset in a temp file.
func Config(t testing.TB) *database.Config {
	t.Helper()
	cfg := database.DefaultConfig()
	cfg.Paths["example"] = filepath.Join(t.TempDir(), "example.db")
	cfg.MigrationsDir = t.TempDir()
	return cfg
}

// NewFactory returns a factory with the example tables created. Engines are
// disposed when the test ends.
func NewFactory(t testing.TB) *database.BindFactory {
	t.Helper()
	f := database.NewBindFactory(Config(t))
	require.NoError(t, Example.CreateAll(context.Background(), f))
	t.Cleanup(func() {
		Example.SetSession(nil)
		_ = f.Close()
	})
	return f
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
