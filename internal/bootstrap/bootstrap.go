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

// Package bootstrap wires projects to their on-disk graph stores.
//
// Project data lives under ~/.ckg/data/<project_id>/graph.db. InitProject
// is idempotent; OpenProject expects an existing project.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/ckg/pkg/graphstore"
)

// ProjectConfig identifies one project and where its data lives.
type ProjectConfig struct {
	// ProjectID is the logical project identifier.
	ProjectID string

	// DataDir is where the graph database is stored.
	// Defaults to ~/.ckg/data/<project_id>.
	DataDir string
}

// ProjectInfo describes an initialized project.
type ProjectInfo struct {
	ProjectID string
	DataDir   string
	StorePath string
}

func (c *ProjectConfig) resolve() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if c.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home dir: %w", err)
		}
		c.DataDir = filepath.Join(homeDir, ".ckg", "data", c.ProjectID)
	}
	return nil
}

func storePath(dataDir string) string {
	return filepath.Join(dataDir, "graph.db")
}

// InitProject creates a project's data directory and graph store with
// schema applied. Calling it on an existing project is safe.
func InitProject(ctx context.Context, config ProjectConfig, logger *slog.Logger) (*ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.resolve(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := storePath(config.DataDir)
	store, err := graphstore.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("bootstrap.project.init",
		"project_id", config.ProjectID,
		"store_path", path,
	)

	return &ProjectInfo{
		ProjectID: config.ProjectID,
		DataDir:   config.DataDir,
		StorePath: path,
	}, nil
}

// OpenProject opens an existing project's graph store. The caller owns
// the returned store and must close it.
func OpenProject(ctx context.Context, config ProjectConfig, logger *slog.Logger) (*graphstore.SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.resolve(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(config.DataDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("project not found: %s (run 'ckg init' and 'ckg index' first)", config.DataDir)
	}

	store, err := graphstore.NewSQLiteStore(storePath(config.DataDir), logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

// ListProjects returns the project IDs present in the default data
// directory.
func ListProjects() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".ckg", "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	return projects, nil
}

// RemoveProject deletes a project's data directory. Destructive.
func RemoveProject(config ProjectConfig) error {
	if err := config.resolve(); err != nil {
		return err
	}
	if err := os.RemoveAll(config.DataDir); err != nil {
		return fmt.Errorf("remove data dir: %w", err)
	}
	return nil
}
