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

package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownDataSet = errors.New("unknown dataset")

var (
	registeredPaths   = map[string]string{}
	registeredPathsMu sync.RWMutex
)

// RegisterPath declares the default location of a named database for every
// factory. Configured paths take precedence. Packages usually call it from
// init.
func RegisterPath(name, path string) {
	registeredPathsMu.Lock()
	defer registeredPathsMu.Unlock()
	registeredPaths[name] = path
}

// BindFactory creates one engine per named database and caches it.
type BindFactory struct {
	config *Config
	logger Logger

	mu      sync.Mutex
	paths   map[string]string
	engines map[string]*Engine
}

// NewBindFactory returns a factory for cfg; a nil cfg uses DefaultConfig.
func NewBindFactory(cfg *Config) *BindFactory {
	cfg = cfg.clone()
	return &BindFactory{
		config:  cfg,
		logger:  GetLogger(),
		paths:   cfg.Paths,
		engines: map[string]*Engine{},
	}
}

func (f *BindFactory) Config() *Config { return f.config }

func (f *BindFactory) SetLogger(logger Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = logger
}

// Paths returns the registered paths merged with the configured ones.
func (f *BindFactory) Paths() map[string]string {
	registeredPathsMu.RLock()
	paths := make(map[string]string, len(registeredPaths))
	for name, path := range registeredPaths {
		paths[name] = path
	}
	registeredPathsMu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	for name, path := range f.paths {
		paths[name] = path
	}
	return paths
}

// Datasets lists the names whose engine has been created.
func (f *BindFactory) Datasets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.engines))
	for name := range f.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Path returns the location configured for name.
func (f *BindFactory) Path(name string) (string, error) {
	path, ok := f.Paths()[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDataSet, name)
	}
	return path, nil
}

// SetPath changes the location of name. An engine already bound keeps its
// old location until disposed.
func (f *BindFactory) SetPath(name, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[name] = path
}

// Bind returns the engine of name, creating it on first use. A name without
// a path gets a private in-memory database.
func (f *BindFactory) Bind(name string) (*Engine, error) {
	path, err := f.Path(name)
	if err != nil {
		path = MemoryPath
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if engine, ok := f.engines[name]; ok {
		return engine, nil
	}

	loc, err := ParseLocation(path)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	engine, err := newEngine(name, loc, f.config, f.logger)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	f.engines[name] = engine
	f.logger.Info("Database engine created", "name", name, "url", loc.URL)
	return engine, nil
}

// Dispose closes and forgets the engine of name; the next Bind creates a
// fresh one.
func (f *BindFactory) Dispose(name string) error {
	f.mu.Lock()
	engine, ok := f.engines[name]
	delete(f.engines, name)
	f.mu.Unlock()
	if !ok {
		return nil
	}
	return engine.Close()
}

func (f *BindFactory) bound() map[string]*Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	engines := make(map[string]*Engine, len(f.engines))
	for name, engine := range f.engines {
		engines[name] = engine
	}
	return engines
}

// HealthCheck checks every bound engine.
func (f *BindFactory) HealthCheck(ctx context.Context) map[string]*HealthStatus {
	result := map[string]*HealthStatus{}
	for name, engine := range f.bound() {
		result[name] = engine.HealthCheck(ctx)
	}
	return result
}

// Close disposes of every engine.
func (f *BindFactory) Close() error {
	var errs []error
	for name := range f.bound() {
		if err := f.Dispose(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
