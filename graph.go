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

// Package hummer wires SQLite-first datasets, stores and CSV tooling on Bun.
//
//	cfg, _ := database.LoadConfig("app.yaml")
//	g, err := hummer.NewGraph(cfg)
//	if err != nil {
//		return err
//	}
//	defer g.Close()
//	err = g.Builder.CSV(&Person{}).Build(ctx, file)
package hummer

import (
	"github.com/tomoncle/hummer-sqlite/builder"
	"github.com/tomoncle/hummer-sqlite/database"
	"github.com/tomoncle/hummer-sqlite/dumper"
)

// Graph holds the components sharing one bind factory.
type Graph struct {
	SQLite  *database.BindFactory
	Builder *builder.Builder
	Dumper  *dumper.Dumper
}

// NewGraph initializes the global factory from cfg and builds the graph on it.
func NewGraph(cfg *database.Config) (*Graph, error) {
	f, err := database.InitFactory(cfg)
	if err != nil {
		return nil, err
	}
	return &Graph{
		SQLite:  f,
		Builder: builder.New(f),
		Dumper:  dumper.New(f),
	}, nil
}

// Close disposes every engine of the graph. Later binds reopen them.
func (g *Graph) Close() error {
	return g.SQLite.Close()
}
