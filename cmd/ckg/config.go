// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/ckg/internal/contract"
)

// Config is the project configuration stored in .ckg/project.yaml.
type Config struct {
	ProjectID string         `yaml:"project_id"`
	Indexing  IndexingConfig `yaml:"indexing"`
	Store     StoreConfig    `yaml:"store"`
}

// IndexingConfig tunes the extraction pass.
type IndexingConfig struct {
	// Languages restricts the pass; empty means every supported language.
	Languages []string `yaml:"languages,omitempty"`

	// Workers is the parse worker pool size.
	Workers int `yaml:"workers"`

	// FileTimeoutSeconds bounds a single file's parse.
	FileTimeoutSeconds int `yaml:"file_timeout_seconds"`

	// BatchSize bounds rows per store transaction during builds.
	BatchSize int `yaml:"batch_size"`
}

// StoreConfig locates the graph database.
type StoreConfig struct {
	// DataDir overrides the default ~/.ckg/data/<project_id>.
	DataDir string `yaml:"data_dir,omitempty"`
}

// ConfigDir returns the .ckg directory under root.
func ConfigDir(root string) string {
	return filepath.Join(root, ".ckg")
}

// ConfigPath returns the configuration file path under root.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), "project.yaml")
}

// DefaultConfig returns the configuration written by 'ckg init'.
func DefaultConfig(projectID string) *Config {
	return &Config{
		ProjectID: projectID,
		Indexing: IndexingConfig{
			Workers:            4,
			FileTimeoutSeconds: 30,
			BatchSize:          contract.DefaultBatchSize,
		},
	}
}

// LoadConfig reads the configuration. An empty path means
// ./.ckg/project.yaml.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		path = ConfigPath(cwd)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's config file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration not found at %s (run 'ckg init' first)", path)
		}
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if err := contract.ValidateProjectID(cfg.ProjectID); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Indexing.Workers <= 0 {
		cfg.Indexing.Workers = 4
	}
	if cfg.Indexing.FileTimeoutSeconds <= 0 {
		cfg.Indexing.FileTimeoutSeconds = 30
	}
	if cfg.Indexing.BatchSize <= 0 {
		cfg.Indexing.BatchSize = contract.BatchSize()
	}
	return &cfg, nil
}

// SaveConfig writes the configuration as YAML.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}
	return nil
}
