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
	"sync"

	"github.com/tomoncle/hummer-sqlite/database"
)

// WithDeferForeignKeys postpones foreign key checks to commit time.
var WithDeferForeignKeys = database.WithDeferForeignKeys

type sessionKey struct{ name string }

// WithSession returns a ctx carrying s for the dataset s was opened on.
func WithSession(ctx context.Context, s *database.Session) context.Context {
	return context.WithValue(ctx, sessionKey{s.Engine().Name()}, s)
}

// SessionFrom returns the session ctx carries for the named dataset.
func SessionFrom(ctx context.Context, name string) *database.Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionKey{name}).(*database.Session)
	return s
}

// SessionContext opens a session, binds it to a dataset for its lifetime and
// releases it on Close.
type SessionContext struct {
	factory *database.BindFactory
	dataset *DataSet
	opts    []database.SessionOption

	mu      sync.Mutex
	session *database.Session
}

func NewSessionContext(f *database.BindFactory, ds *DataSet, opts ...database.SessionOption) *SessionContext {
	return &SessionContext{factory: f, dataset: ds, opts: opts}
}

func (c *SessionContext) DataSet() *DataSet { return c.dataset }

// Session returns the open session or nil.
func (c *SessionContext) Session() *database.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Open starts a new session and returns a ctx carrying it. Opening an
// already open context closes the previous session first.
func (c *SessionContext) Open(ctx context.Context) (context.Context, error) {
	if err := c.Close(); err != nil {
		return ctx, err
	}
	s, err := c.dataset.NewSession(ctx, c.factory, c.opts...)
	if err != nil {
		return ctx, err
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.dataset.SetSession(s)
	return WithSession(ctx, s), nil
}

// Close releases the session, discarding uncommitted work.
func (c *SessionContext) Close() error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	if c.dataset.Session() == s {
		c.dataset.SetSession(nil)
	}
	return s.Close()
}

func (c *SessionContext) Commit() error {
	if s := c.Session(); s != nil {
		return s.Commit()
	}
	return nil
}

func (c *SessionContext) Rollback() error {
	if s := c.Session(); s != nil {
		return s.Rollback()
	}
	return nil
}

// Run opens the context, calls fn and always closes it. Work fn did not
// commit is rolled back.
func (c *SessionContext) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, err = c.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(ctx)
}
