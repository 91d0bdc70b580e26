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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

// Engine is the pooled database of one named dataset. It doubles as the
// session maker: every Session is cut from the same pool.
type Engine struct {
	name     string
	location *Location
	config   *Config
	sqlDB    *sql.DB
	db       *bun.DB
	logger   Logger

	// keeper holds an in-memory database open for the engine's lifetime
	keeper *sql.Conn

	mu         sync.Mutex
	closed     bool
	autocommit *Session
}

func newEngine(name string, loc *Location, cfg *Config, logger Logger) (*Engine, error) {
	e := &Engine{
		name:     name,
		location: loc,
		config:   cfg,
		logger:   logger,
	}

	var err error
	switch loc.Driver {
	case DriverSQLite:
		err = e.openSQLite()
	case DriverPostgres:
		err = e.openPostgres()
	case DriverMySQL:
		err = e.openMySQL()
	default:
		err = fmt.Errorf("unsupported database driver: %s", loc.Driver)
	}
	if err != nil {
		return nil, err
	}

	e.configureConnectionPool()
	e.addQueryHooks()

	if loc.Memory {
		keeper, err := e.sqlDB.Conn(context.Background())
		if err != nil {
			_ = e.sqlDB.Close()
			return nil, fmt.Errorf("failed to open in-memory database: %w", err)
		}
		e.keeper = keeper
	}
	return e, nil
}

func (e *Engine) openSQLite() error {
	dsn := e.location.DSN
	if e.location.Memory {
		// every engine gets its own private in-memory database; pool
		// connections outside sessions need read_uncommitted as well
		dsn = fmt.Sprintf("file:%s-%s?mode=memory&cache=shared&_pragma=read_uncommitted(1)",
			e.name, uuid.NewString())
	}
	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database %s: %w", e.location.URL, err)
	}
	e.sqlDB = sqlDB
	e.db = bun.NewDB(sqlDB, sqlitedialect.New())
	return nil
}

func (e *Engine) openPostgres() error {
	sqlDB, err := sql.Open("postgres", e.location.DSN)
	if err != nil {
		return fmt.Errorf("failed to open postgres database: %w", err)
	}
	e.sqlDB = sqlDB
	e.db = bun.NewDB(sqlDB, pgdialect.New())
	return nil
}

func (e *Engine) openMySQL() error {
	sqlDB, err := sql.Open("mysql", e.location.DSN)
	if err != nil {
		return fmt.Errorf("failed to open mysql database: %w", err)
	}
	e.sqlDB = sqlDB
	e.db = bun.NewDB(sqlDB, mysqldialect.New())
	return nil
}

func (e *Engine) configureConnectionPool() {
	if e.config.MaxOpenConns > 0 {
		e.sqlDB.SetMaxOpenConns(e.config.MaxOpenConns)
	}
	if e.config.MaxIdleConns > 0 {
		e.sqlDB.SetMaxIdleConns(e.config.MaxIdleConns)
	}
	if e.location.Memory {
		e.sqlDB.SetConnMaxLifetime(0)
		return
	}
	e.sqlDB.SetConnMaxLifetime(e.config.ConnMaxLifetime)
}

func (e *Engine) addQueryHooks() {
	if e.config.Echo {
		e.db.AddQueryHook(NewQueryHook(e.name, true, os.Stdout))
	}
	if _, ok := os.LookupEnv("BUNDEBUG"); ok {
		e.db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))
	}
	if e.config.SlowQueryTime > 0 {
		e.db.AddQueryHook(NewSlowQueryHook(e.name, e.config.SlowQueryTime, e.logger))
	}
}

func (e *Engine) Name() string { return e.name }

// URL returns the canonical location, e.g. sqlite:///tmp/foo.db.
func (e *Engine) URL() string { return e.location.URL }

func (e *Engine) Driver() Driver { return e.location.Driver }

func (e *Engine) DB() *bun.DB { return e.db }

func (e *Engine) Dialect() schema.Dialect { return e.db.Dialect() }

func (e *Engine) SQLDB() *sql.DB { return e.sqlDB }

func (e *Engine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// NewSession cuts a new session from the engine's pool.
func (e *Engine) NewSession(ctx context.Context, opts ...SessionOption) (*Session, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("engine %s is disposed", e.name)
	}
	return newSession(ctx, e, opts...)
}

// Autocommit returns the shared session whose statements commit one by one.
// It is safe for concurrent use.
func (e *Engine) Autocommit() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.autocommit == nil {
		e.autocommit = newAutocommitSession(e)
	}
	return e.autocommit
}

// HealthCheck pings the database and reports pool usage.
func (e *Engine) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{Name: e.name, LastCheckTime: start}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := e.db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
	}

	stats := e.sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

func (e *Engine) Stats() *DBStats {
	stats := e.sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// Close disposes of the pool. Sessions still open are invalidated.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	var errs []error
	if e.autocommit != nil {
		errs = append(errs, e.autocommit.Close())
	}
	if e.keeper != nil {
		errs = append(errs, e.keeper.Close())
	}
	errs = append(errs, e.db.Close())
	err := errors.Join(errs...)
	if e.logger != nil {
		if err != nil {
			e.logger.Error("Failed to close database engine", "name", e.name, "error", err)
		} else {
			e.logger.Info("Database engine disposed", "name", e.name, "url", e.location.URL)
		}
	}
	return err
}
