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
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/ckg/internal/bootstrap"
	"github.com/kraklabs/ckg/internal/output"
	"github.com/kraklabs/ckg/internal/ui"
	"github.com/kraklabs/ckg/pkg/graph"
)

// StatusResult represents the project status for JSON output.
type StatusResult struct {
	ProjectID     string         `json:"project_id"`
	DataDir       string         `json:"data_dir"`
	Connected     bool           `json:"connected"`
	Files         int            `json:"files"`
	Entities      int            `json:"entities"`
	Relationships int            `json:"relationships"`
	ByKind        map[string]int `json:"by_kind,omitempty"`
	Error         string         `json:"error,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, displaying project graph
// statistics from the local store.
//
// Flags:
//   - --json: Output results as JSON (default: false)
func runStatus(args []string, configPath string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ckg status [options]

Shows local project status.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ui.InitColors(*noColor)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		statusFail(&StatusResult{Timestamp: time.Now(), Error: err.Error()}, *jsonOutput, err)
	}

	result := &StatusResult{
		ProjectID: cfg.ProjectID,
		Timestamp: time.Now(),
	}

	dataDir := cfg.Store.DataDir
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			result.Error = err.Error()
			statusFail(result, *jsonOutput, err)
		}
		dataDir = filepath.Join(homeDir, ".ckg", "data", cfg.ProjectID)
	}
	result.DataDir = dataDir

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		result.Error = "Project not indexed yet. Run 'ckg index' first."
		if *jsonOutput {
			_ = output.JSON(result)
		} else {
			fmt.Printf("Project '%s' not indexed yet.\n", cfg.ProjectID)
			fmt.Println("Run 'ckg index' to index the repository.")
		}
		os.Exit(0)
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := bootstrap.OpenProject(ctx, bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID,
		DataDir:   cfg.Store.DataDir,
	}, logger)
	if err != nil {
		result.Error = fmt.Sprintf("Cannot open database: %v", err)
		statusFail(result, *jsonOutput, err)
	}
	defer func() { _ = store.Close() }()

	summary, err := store.SummarizeProject(ctx, cfg.ProjectID)
	if err != nil {
		result.Error = fmt.Sprintf("Cannot summarize project: %v", err)
		statusFail(result, *jsonOutput, err)
	}

	result.Connected = true
	result.Files = summary.Files
	result.Entities = summary.Entities
	result.Relationships = summary.Relationships
	result.ByKind = make(map[string]int, len(summary.ByKind))
	for kind, count := range summary.ByKind {
		result.ByKind[string(kind)] = count
	}

	if *jsonOutput {
		_ = output.JSON(result)
	} else {
		printStatus(result)
	}
}

func statusFail(result *StatusResult, jsonOutput bool, err error) {
	if jsonOutput {
		_ = output.JSON(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// printStatus prints the status result as formatted text to stdout.
func printStatus(result *StatusResult) {
	ui.Header("CKG Project Status")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), result.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Data Dir:"), ui.DimText(result.DataDir))
	fmt.Println()

	ui.SubHeader("Graph:")
	fmt.Printf("  Files:          %s\n", ui.CountText(result.Files))
	fmt.Printf("  Entities:       %s\n", ui.CountText(result.Entities))
	fmt.Printf("  Relationships:  %s\n", ui.CountText(result.Relationships))

	if len(result.ByKind) > 0 {
		fmt.Println()
		ui.SubHeader("By kind:")
		for _, kind := range []graph.EntityKind{
			graph.KindFile, graph.KindClass, graph.KindInterface, graph.KindEnum,
			graph.KindMethod, graph.KindFunction, graph.KindField, graph.KindVariable,
		} {
			if count, ok := result.ByKind[string(kind)]; ok {
				fmt.Printf("  %-14s %s\n", string(kind)+":", ui.CountText(count))
			}
		}
	}

	if result.Error != "" {
		fmt.Println()
		ui.Warningf("%s", result.Error)
	}
}
