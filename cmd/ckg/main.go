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

// Package main implements the CKG CLI for indexing repositories into a
// code knowledge graph and querying it.
//
// Usage:
//
//	ckg init                        Create .ckg/project.yaml configuration
//	ckg index                       Index the current repository
//	ckg status [--json]             Show project status
//	ckg query <op> <name> [--json]  Query the graph (define|callers|callees|overview|complexity)
//	ckg analyze [--json]            Run architectural analyses
//	ckg reset --yes                 Delete local project data
package main

import (
	"flag"
	"fmt"
	"os"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags carries output-shaping flags shared by all commands.
type GlobalFlags struct {
	Quiet   bool
	NoColor bool
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .ckg/project.yaml (default: ./.ckg/project.yaml)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `CKG - Code Knowledge Graph

CKG indexes multi-language repositories (Java, Python, TypeScript,
JavaScript) into a unified graph of code entities and relationships,
then answers structural queries and architectural analyses over it.

Usage:
  ckg <command> [options]

Commands:
  init       Create .ckg/project.yaml configuration
  index      Index the current repository into the graph
  status     Show project status
  query      Query the graph (define|callers|callees|overview|complexity)
  analyze    Detect dependency cycles and unused public elements
  reset      Delete local project data (destructive!)

Global Options:
  --config   Path to .ckg/project.yaml
  --version  Show version and exit

Examples:
  ckg init                       Create configuration
  ckg index                      Index current repository
  ckg query define OrderService  Locate a definition
  ckg query callers helper       List resolved callers
  ckg analyze --json             Findings as JSON

Data Storage:
  Data is stored locally in ~/.ckg/data/<project_id>/

For detailed command help: ckg <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("ckg version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "index":
		runIndex(cmdArgs, *configPath)
	case "status":
		runStatus(cmdArgs, *configPath)
	case "query":
		runQuery(cmdArgs, *configPath)
	case "analyze":
		runAnalyze(cmdArgs, *configPath)
	case "reset":
		runReset(cmdArgs, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
