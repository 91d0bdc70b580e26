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
	"sync"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrSessionClosed = errors.New("session is closed")

type sessionOptions struct {
	deferForeignKeys bool
}

type SessionOption func(*sessionOptions)

// WithDeferForeignKeys postpones foreign key checks of every transaction of
// the session until it commits.
func WithDeferForeignKeys() SessionOption {
	return func(o *sessionOptions) {
		o.deferForeignKeys = true
	}
}

// Session owns one connection of an engine. A transaction is begun lazily on
// the first DB call and lasts until Commit or Rollback.
//
// An autocommit session has no transaction at all: every statement commits on
// its own and Commit/Rollback do nothing.
type Session struct {
	id         string
	engine     *Engine
	opts       sessionOptions
	autocommit bool

	mu     sync.Mutex
	conn   *bun.Conn
	tx     *bun.Tx
	inTx   bool
	closed bool
}

func newSession(ctx context.Context, e *Engine, opts ...SessionOption) (*Session, error) {
	s := &Session{id: uuid.NewString(), engine: e}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newAutocommitSession(e *Engine) *Session {
	return &Session{id: uuid.NewString(), engine: e, autocommit: true}
}

// connect acquires the dedicated connection and prepares it. Caller holds mu
// or owns s exclusively.
func (s *Session) connect(ctx context.Context) error {
	conn, err := s.engine.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for %s: %w", s.engine.name, err)
	}
	for _, stmt := range connectStatements(s.engine.Driver(), s.engine.config.BusyTimeout, s.engine.location.Memory) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to prepare connection (%s): %w", stmt, err)
		}
	}
	s.conn = &conn
	return nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Engine() *Engine { return s.engine }

func (s *Session) Autocommit() bool { return s.autocommit }

// DB returns the handle statements of this session must run on.
func (s *Session) DB(ctx context.Context) (bun.IDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.autocommit {
		if s.conn == nil {
			if err := s.connect(ctx); err != nil {
				return nil, err
			}
		}
		return s.conn, nil
	}
	if s.inTx {
		return s.tx, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	if s.opts.deferForeignKeys {
		if stmt := deferForeignKeysStatement(s.engine.Driver()); stmt != "" {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return nil, fmt.Errorf("failed to defer foreign keys: %w", err)
			}
		}
	}
	s.tx = &tx
	s.inTx = true
	return s.tx, nil
}

// InTransaction reports whether uncommitted work may be pending.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx
}

func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inTx {
		return nil
	}
	s.inTx = false
	err := s.tx.Commit()
	if err != nil {
		// SQLite keeps the transaction open when a deferred constraint
		// fails at COMMIT
		_, _ = s.conn.ExecContext(context.Background(), "ROLLBACK")
	}
	s.restore()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollback()
}

func (s *Session) rollback() error {
	if !s.inTx {
		return nil
	}
	s.inTx = false
	err := s.tx.Rollback()
	s.restore()
	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// restore undoes connection-scoped deferral once the transaction is over.
func (s *Session) restore() {
	if !s.opts.deferForeignKeys || s.conn == nil {
		return
	}
	if stmt := restoreForeignKeysStatement(s.engine.Driver()); stmt != "" {
		_, _ = s.conn.ExecContext(context.Background(), stmt)
	}
}

// Close discards pending work and releases the connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.rollback()
	if s.conn != nil {
		err = errors.Join(err, s.conn.Close())
		s.conn = nil
	}
	return err
}
