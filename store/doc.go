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

// Package store provides a generic persistence layer over dataset models.
//
// A Store[T] runs each operation in the session picked by its SessionGetter:
// the session carried by the context, then the one bound to T's dataset.
// Filters and orders are plain functions over Bun queries:
//
//	people := store.New[Person](
//		store.WithFilter(store.FilterEqual("first", "last")),
//		store.WithOrder(store.OrderAsc("last")),
//	)
//	err := ds.NewContext(f).Run(ctx, func(ctx context.Context) error {
//		_, err := people.Create(ctx, &Person{First: "Stephen", Last: "Curry"})
//		return err
//	})
//
// Constraint violations roll the session back and surface as *ModelError,
// matching ErrDuplicateModel or ErrModelIntegrity with errors.Is.
package store
