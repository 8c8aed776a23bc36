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
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"

	"github.com/kraklabs/ckg/internal/bootstrap"
	"github.com/kraklabs/ckg/internal/errors"
	"github.com/kraklabs/ckg/internal/output"
	"github.com/kraklabs/ckg/internal/ui"
	"github.com/kraklabs/ckg/pkg/builder"
	"github.com/kraklabs/ckg/pkg/extraction"
	"github.com/kraklabs/ckg/pkg/graph"
)

// runIndex executes the 'index' CLI command: extract the repository and
// build the graph.
//
// Flags:
//   - --workers: Parse worker pool size (overrides config)
//   - --languages: Comma-separated language subset (overrides config)
//   - --debug: Enable debug logging
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//   - --no-color: Disable colored output
//   - --json: Emit the run summary as JSON on stdout
//   - -q: Quiet mode, no progress output
func runIndex(args []string, configPath string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	workers := fs.Int("workers", 0, "Parse worker pool size (0 = from config)")
	languages := fs.String("languages", "", "Comma-separated languages to index (empty = from config)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	quiet := fs.Bool("q", false, "Quiet mode")
	jsonOutput := fs.Bool("json", false, "Output summary in JSON format")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ckg index [options]

Indexes the current repository using configuration from .ckg/project.yaml.
Data is stored locally in ~/.ckg/data/<project_id>/

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
		errors.FatalError(errors.NewConfigError("Cannot load configuration", err.Error(), "Run 'ckg init' first", err), *jsonOutput)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logDest := os.Stdout
	if *jsonOutput {
		// Keep stdout parseable; logs go to stderr.
		logDest = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logDest, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot get current directory", err.Error(), "", err), *jsonOutput)
	}

	langs := cfg.Indexing.Languages
	if *languages != "" {
		langs = splitLanguages(*languages)
	}
	poolSize := cfg.Indexing.Workers
	if *workers > 0 {
		poolSize = *workers
	}

	progressCfg := NewProgressConfig(GlobalFlags{Quiet: *quiet || *jsonOutput, NoColor: *noColor})

	// The file total is only known after discovery, so the bar is created
	// on the first progress callback.
	var bar *progressbar.ProgressBar
	coordinator := extraction.NewCoordinator(
		extraction.DefaultRegistry(logger),
		extraction.CoordinatorConfig{
			Workers:     poolSize,
			FileTimeout: time.Duration(cfg.Indexing.FileTimeoutSeconds) * time.Second,
			OnFileParsed: func(done, total int) {
				if !progressCfg.Enabled {
					return
				}
				if bar == nil {
					bar = NewProgressBar(progressCfg, int64(total), "Parsing "+cfg.ProjectID)
				}
				_ = bar.Add(1)
			},
		},
		logger,
	)

	result, err := coordinator.CoordinateParsing(ctx, cwd, langs)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		errors.FatalError(errors.NewInputError("Extraction failed", err.Error(), "Check the source root and configured languages"), *jsonOutput)
	}

	projectCfg := bootstrap.ProjectConfig{ProjectID: cfg.ProjectID, DataDir: cfg.Store.DataDir}
	if _, err := bootstrap.InitProject(ctx, projectCfg, logger); err != nil {
		errors.FatalError(errors.NewDatabaseError("Cannot initialize graph database", err.Error(), "Check ~/.ckg/data permissions", err), *jsonOutput)
	}
	store, err := bootstrap.OpenProject(ctx, projectCfg, logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("Cannot open graph database", err.Error(), "Check ~/.ckg/data permissions", err), *jsonOutput)
	}
	defer func() { _ = store.Close() }()

	spinner := NewSpinner(progressCfg, "Writing graph")
	report, err := builder.New(store, builder.Config{BatchSize: cfg.Indexing.BatchSize}, logger).
		Build(ctx, result, cfg.ProjectID)
	if spinner != nil {
		_ = spinner.Finish()
	}
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("Graph build failed", err.Error(), "Re-run 'ckg index'; builds are safe to repeat", err), *jsonOutput)
	}

	if *jsonOutput {
		summary := struct {
			Report           *builder.Report                `json:"report"`
			Stats            map[string]graph.LanguageStats `json:"stats"`
			SkippedLanguages []string                       `json:"skipped_languages,omitempty"`
			FailedFiles      []graph.ParseFailure           `json:"failed_file_details,omitempty"`
		}{report, result.Stats, result.SkippedLanguages, result.FailedFiles}
		if err := output.JSON(summary); err != nil {
			errors.FatalError(errors.NewInternalError("Cannot encode summary", err.Error(), "", err), true)
		}
		return
	}
	printIndexSummary(result, report)
}

// printIndexSummary prints the extraction and build summary to stdout.
func printIndexSummary(result *graph.CoordinatorResult, report *builder.Report) {
	fmt.Println()
	ui.Header("Indexing Complete")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), report.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Run ID:"), report.RunID)
	fmt.Println()

	ui.SubHeader("Per language:")
	langs := make([]string, 0, len(result.Stats))
	for lang := range result.Stats {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		s := result.Stats[lang]
		fmt.Printf("  %-11s files %s/%s  entities %s  relationships %s\n",
			lang,
			ui.CountText(s.FilesParsed), ui.CountText(s.FilesDiscovered),
			ui.CountText(s.Entities), ui.CountText(s.Relationships))
	}
	for _, lang := range result.SkippedLanguages {
		ui.Warningf("language %s skipped (no extractor)", lang)
	}

	fmt.Println()
	fmt.Printf("%s %d nodes, %d edges\n", ui.Label("Written:"), report.NodesWritten, report.EdgesWritten)
	if report.UnresolvedReferences > 0 {
		fmt.Printf("%s %d (counted, not written)\n", ui.Label("Unresolved references:"), report.UnresolvedReferences)
	}
	if report.FailedFiles > 0 {
		ui.Warningf("%d files failed to parse", report.FailedFiles)
		for _, failure := range result.FailedFiles {
			fmt.Printf("  %s: %s\n", failure.FilePath, ui.DimText(failure.Reason))
		}
	}
	fmt.Println()
	fmt.Printf("Timings: write %s, total %s\n", report.WriteDuration, report.TotalDuration)
	ui.Successf("indexed %s", report.ProjectID)
}
