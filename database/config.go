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
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tomoncle/hummer-sqlite/utils"
	"gopkg.in/yaml.v3"
)

const (
	// MemoryPath is the default location of a database with no configured path.
	MemoryPath = ":memory:"

	DefaultMigrationsDir = "sqlite-migrations"
)

// HealthStatus holds the result of a health check against an engine.
type HealthStatus struct {
	Name          string        `json:"name"`
	Healthy       bool          `json:"healthy"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats of an engine's pool.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// MigrateOptions are handed to the migration tool for every dataset.
type MigrateOptions struct {
	TableName            string `json:"table_name" yaml:"table_name"`
	LocksTableName       string `json:"locks_table_name" yaml:"locks_table_name"`
	MarkAppliedOnSuccess bool   `json:"mark_applied_on_success" yaml:"mark_applied_on_success"`
}

// LogConfig controls the process-wide logging output.
type LogConfig struct {
	Level     string `json:"level" yaml:"level"`
	Format    string `json:"format" yaml:"format"` // text, json
	File      string `json:"file" yaml:"file"`
	MaxSizeMB int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxFiles  int    `json:"max_files" yaml:"max_files"`
}

// Config describes where each named database lives and how engines are tuned.
type Config struct {
	Paths           map[string]string `json:"paths" yaml:"paths"`
	Echo            bool              `json:"echo" yaml:"echo"`
	SlowQueryTime   time.Duration     `json:"slow_query_time" yaml:"slow_query_time"`
	BusyTimeout     time.Duration     `json:"busy_timeout" yaml:"busy_timeout"`
	MaxOpenConns    int               `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int               `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration     `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	MigrationsDir   string            `json:"migrations_dir" yaml:"migrations_dir"`
	Migrate         MigrateOptions    `json:"migrate" yaml:"migrate"`
	Log             LogConfig         `json:"log" yaml:"log"`
}

type configFile struct {
	SQLite *Config `yaml:"sqlite"`
}

// DefaultConfig returns a config with sensible defaults and no paths.
func DefaultConfig() *Config {
	return &Config{
		Paths:         map[string]string{},
		BusyTimeout:   5 * time.Second,
		MaxOpenConns:  16,
		MaxIdleConns:  4,
		MigrationsDir: DefaultMigrationsDir,
		Migrate: MigrateOptions{
			TableName:      "bun_migrations",
			LocksTableName: "bun_migration_locks",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads the `sqlite:` section of a YAML file on top of the
// defaults and applies environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		file := configFile{SQLite: cfg}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if cfg.Paths == nil {
			cfg.Paths = map[string]string{}
		}
	}
	overrideFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// overrideFromEnv overrides configuration values from environment variables.
func overrideFromEnv(cfg *Config) {
	cfg.Echo = utils.EnvDefaultBool("SQLITE_ECHO", cfg.Echo)
	cfg.SlowQueryTime = utils.EnvDefaultDuration("SQLITE_SLOW_QUERY_TIME", cfg.SlowQueryTime)
	cfg.BusyTimeout = utils.EnvDefaultDuration("SQLITE_BUSY_TIMEOUT", cfg.BusyTimeout)
	cfg.MigrationsDir = utils.EnvDefaultString("SQLITE_MIGRATIONS_DIR", cfg.MigrationsDir)
	cfg.Log.Level = utils.EnvDefaultString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = utils.EnvDefaultString("LOG_FILE", cfg.Log.File)

	// SQLITE_PATHS=foo=/tmp/foo.db,bar=:memory:
	if raw := os.Getenv("SQLITE_PATHS"); raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			name, path, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if ok && name != "" {
				cfg.Paths[name] = path
			}
		}
	}
	// SQLITE_PATH_FOO=/tmp/foo.db
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		if name, ok := strings.CutPrefix(key, "SQLITE_PATH_"); ok && name != "" {
			cfg.Paths[strings.ToLower(name)] = value
		}
	}
}

// Validate reports configuration values that can never work.
func (c *Config) Validate() error {
	var errs []error
	for name, path := range c.Paths {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("dataset name cannot be empty"))
		}
		if strings.TrimSpace(path) == "" {
			errs = append(errs, fmt.Errorf("path of dataset %q cannot be empty", name))
		}
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		errs = append(errs, fmt.Errorf("connection pool sizes cannot be negative"))
	}
	if c.BusyTimeout < 0 || c.SlowQueryTime < 0 {
		errs = append(errs, fmt.Errorf("timeouts cannot be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	cp := *c
	cp.Paths = make(map[string]string, len(c.Paths))
	for k, v := range c.Paths {
		cp.Paths[k] = v
	}
	return &cp
}
