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
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/ckg/internal/contract"
	"github.com/kraklabs/ckg/internal/errors"
)

// runInit executes the 'init' CLI command, creating .ckg/project.yaml.
//
// Flags:
//   - --force: Overwrite existing configuration
//   - -y: Non-interactive mode, use all defaults
//   - --project-id: Project identifier (default: directory name)
//   - --languages: Comma-separated language subset (default: all)
func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing configuration")
	nonInteractive := fs.Bool("y", false, "Non-interactive mode (use defaults)")
	projectID := fs.String("project-id", "", "Project identifier")
	languages := fs.String("languages", "", "Comma-separated languages to index (java,python,typescript,javascript)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ckg init [options]

Creates .ckg/project.yaml configuration file.

Examples:
  ckg init                            Interactive setup
  ckg init -y                         Use all defaults
  ckg init --languages java,python    Restrict indexing

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot get current directory", err.Error(), "", err), false)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !*force {
		errors.FatalError(errors.NewInputError(
			"Configuration already exists",
			configPath+" is present",
			"Use --force to overwrite",
		), false)
	}

	pid := *projectID
	if pid == "" {
		pid = filepath.Base(cwd)
	}
	cfg := DefaultConfig(pid)
	if *languages != "" {
		cfg.Indexing.Languages = splitLanguages(*languages)
	}

	if !*nonInteractive {
		reader := bufio.NewReader(os.Stdin)
		fmt.Println("CKG Project Configuration")
		fmt.Println("=========================")
		fmt.Println()
		cfg.ProjectID = prompt(reader, "Project ID", cfg.ProjectID)
		langInput := prompt(reader, "Languages (empty for all)", strings.Join(cfg.Indexing.Languages, ","))
		if langInput != "" {
			cfg.Indexing.Languages = splitLanguages(langInput)
		}
		fmt.Println()
	}

	if err := contract.ValidateProjectID(cfg.ProjectID); err != nil {
		errors.FatalError(errors.NewInputError(
			"Invalid project ID",
			err.Error(),
			"Use letters, digits, '-', '_' or '.'",
		), false)
	}

	if err := os.MkdirAll(ConfigDir(cwd), 0750); err != nil {
		errors.FatalError(errors.NewPermissionError("Cannot create .ckg directory", err.Error(), "Check directory permissions", err), false)
	}
	if err := SaveConfig(cfg, configPath); err != nil {
		errors.FatalError(errors.NewConfigError("Cannot save configuration", err.Error(), "", err), false)
	}
	fmt.Printf("Created %s\n", configPath)
	addToGitignore(cwd)

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .ckg/project.yaml if needed")
	fmt.Println("  2. Run 'ckg index' to index your repository")
	fmt.Println("  3. Run 'ckg status' to verify indexing")
}

func splitLanguages(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// prompt displays an interactive prompt and reads user input from
// stdin, returning defaultValue on empty input.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore appends .ckg/ to the project's .gitignore if present
// and not already listed.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: path built from repo dir
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == ".ckg/" || line == ".ckg" || line == "/.ckg/" || line == "/.ckg" {
			return
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // G304: path built from repo dir
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# CKG configuration\n.ckg/\n")
	fmt.Println("Added .ckg/ to .gitignore")
}
