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
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ckg/internal/bootstrap"
	"github.com/kraklabs/ckg/internal/errors"
	"github.com/kraklabs/ckg/internal/output"
	"github.com/kraklabs/ckg/internal/ui"
	"github.com/kraklabs/ckg/pkg/analysis"
)

// runAnalyze executes the 'analyze' CLI command, running the
// architectural analyzers over the indexed graph.
//
// Flags:
//   - --json: Output findings as JSON (default: false)
//   - --severity: Minimum severity to report (info|warning|critical)
//   - --timeout: Analysis timeout duration (default: 60s)
func runAnalyze(args []string, configPath string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	minSeverity := fs.String("severity", "info", "Minimum severity to report (info|warning|critical)")
	timeout := fs.Duration("timeout", 60*time.Second, "Analysis timeout")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ckg analyze [options]

Runs architectural analyses over the indexed graph:
  - dependency cycles between files and between types
  - exported elements with no resolved incoming reference

Findings are advisory. Each carries a confidence grade and, where the
static graph cannot see everything (reflection, dependency injection),
an explicit caveat.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ui.InitColors(*noColor)

	rank, ok := severityRank[analysis.Severity(*minSeverity)]
	if !ok {
		errors.FatalError(errors.NewInputError(
			"Invalid severity",
			fmt.Sprintf("%q is not a severity", *minSeverity),
			"Use info, warning or critical",
		), *jsonOutput)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError("Cannot load configuration", err.Error(), "Run 'ckg init' first", err), *jsonOutput)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := bootstrap.OpenProject(ctx, bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID,
		DataDir:   cfg.Store.DataDir,
	}, logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("Cannot open graph database", err.Error(), "Run 'ckg index' first", err), *jsonOutput)
	}
	defer func() { _ = store.Close() }()

	findings, err := analysis.NewAnalyzer(store, logger).AnalyzeProject(ctx, cfg.ProjectID)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("Analysis failed", err.Error(), "", err), *jsonOutput)
	}

	filtered := findings[:0]
	for _, finding := range findings {
		if severityRank[finding.Severity] >= rank {
			filtered = append(filtered, finding)
		}
	}

	if *jsonOutput {
		if filtered == nil {
			filtered = []analysis.Finding{}
		}
		_ = output.JSON(filtered)
		return
	}
	printFindings(filtered)
}

var severityRank = map[analysis.Severity]int{
	analysis.SeverityInfo:     0,
	analysis.SeverityWarning:  1,
	analysis.SeverityCritical: 2,
}

func printFindings(findings []analysis.Finding) {
	ui.Header("Analysis Findings")
	if len(findings) == 0 {
		ui.Success("no findings")
		return
	}

	for i, finding := range findings {
		fmt.Println()
		switch finding.Severity {
		case analysis.SeverityCritical:
			ui.Errorf("[%d] %s", i+1, finding.Summary)
		case analysis.SeverityWarning:
			ui.Warningf("[%d] %s", i+1, finding.Summary)
		default:
			ui.Infof("[%d] %s", i+1, finding.Summary)
		}
		fmt.Printf("    %s %s, %s %s\n",
			ui.Label("severity:"), finding.Severity,
			ui.Label("confidence:"), finding.Confidence)
		for _, loc := range finding.Locations {
			fmt.Printf("    %s\n", ui.DimText(fmt.Sprintf("%s:%d %s", loc.FilePath, loc.StartLine, loc.QualifiedName)))
		}
		if finding.Recommendation != "" {
			fmt.Printf("    %s %s\n", ui.Label("recommendation:"), finding.Recommendation)
		}
		if finding.Caveat != "" {
			fmt.Printf("    %s\n", ui.DimText(finding.Caveat))
		}
	}

	fmt.Println()
	fmt.Printf("%d finding(s)\n", len(findings))
}
