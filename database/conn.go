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
	"sync"

	"github.com/tomoncle/hummer-sqlite/utils"
)

var (
	globalFactory   *BindFactory
	globalFactoryMu sync.Mutex
)

// InitFactory replaces the process-wide factory. The previous one, if any,
// is closed. Logging is configured from cfg.Log.
func InitFactory(cfg *Config) (*BindFactory, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := ConfigureLogging(cfg.Log); err != nil {
		return nil, err
	}

	globalFactoryMu.Lock()
	defer globalFactoryMu.Unlock()
	if globalFactory != nil {
		_ = globalFactory.Close()
	}
	globalFactory = NewBindFactory(cfg)
	return globalFactory, nil
}

// GetFactory returns the process-wide factory, creating one with the default
// config when none was initialized.
func GetFactory() *BindFactory {
	globalFactoryMu.Lock()
	defer globalFactoryMu.Unlock()
	if globalFactory == nil {
		globalFactory = NewBindFactory(DefaultConfig())
	}
	return globalFactory
}

// CloseFactory closes the process-wide factory.
func CloseFactory() error {
	globalFactoryMu.Lock()
	defer globalFactoryMu.Unlock()
	if globalFactory == nil {
		return nil
	}
	err := globalFactory.Close()
	globalFactory = nil
	return err
}

// GetHealthStatus checks every engine of the process-wide factory.
func GetHealthStatus(ctx context.Context) map[string]*HealthStatus {
	return GetFactory().HealthCheck(ctx)
}

// ConfigureLogging applies a LogConfig to the logger registry.
func ConfigureLogging(cfg LogConfig) error {
	if cfg.Level != "" {
		utils.ConfigureLogLevel(cfg.Level)
	}
	if cfg.Format != "" {
		utils.ConfigureConsoleLogFormat(cfg.Format)
	}
	if cfg.File != "" {
		return utils.ConfigureFileLog(utils.FileLogConfig{
			File:      cfg.File,
			MaxSizeMB: cfg.MaxSizeMB,
			MaxFiles:  cfg.MaxFiles,
		})
	}
	return nil
}
