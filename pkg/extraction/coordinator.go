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

package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/kraklabs/ckg/pkg/graph"
)

// ConfigurationError reports an extraction pass that cannot start: the
// source root does not exist, or none of the requested languages has a
// registered extractor.
type ConfigurationError struct {
	Op     string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("extraction configuration: %s: %s", e.Op, e.Detail)
}

// CoordinatorConfig tunes an extraction pass.
type CoordinatorConfig struct {
	// Workers is the size of the parse worker pool. Zero means 4.
	Workers int

	// FileTimeout bounds a single file's parse. A file exceeding it is
	// recorded as a failure, it never aborts the pass. Zero means 30s.
	FileTimeout time.Duration

	// OnFileParsed, when set, is called after each file task completes
	// with the number of completed files and the total discovered. It is
	// invoked from the aggregation goroutine only, never concurrently.
	OnFileParsed func(done, total int)
}

// Coordinator runs a full extraction pass: file discovery per language,
// parallel parsing, aggregation, and project-scope reference resolution.
//
// A pass is all-or-nothing only at the configuration level. Once running,
// individual file failures and whole missing languages degrade to recorded
// results; the pass itself always completes.
type Coordinator struct {
	registry *Registry
	config   CoordinatorConfig
	logger   *slog.Logger
}

// NewCoordinator creates a coordinator over the given extractor registry.
func NewCoordinator(registry *Registry, config CoordinatorConfig, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.FileTimeout <= 0 {
		config.FileTimeout = 30 * time.Second
	}
	return &Coordinator{registry: registry, config: config, logger: logger}
}

// CoordinateParsing extracts all requested languages under root into one
// aggregated result. languages may be empty, meaning every registered
// language. A requested language with no registered extractor is skipped
// and recorded, not fatal; requesting ONLY unknown languages is a
// configuration error.
func (co *Coordinator) CoordinateParsing(ctx context.Context, root string, languages []string) (*graph.CoordinatorResult, error) {
	extMetrics.init()
	passStart := time.Now()

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &ConfigurationError{Op: "source_root", Detail: fmt.Sprintf("%s is not a readable directory", root)}
	}

	if len(languages) == 0 {
		languages = co.registry.Languages()
	}

	result := &graph.CoordinatorResult{
		SourceRoot: root,
		Stats:      make(map[string]graph.LanguageStats),
	}

	var extractors []Extractor
	for _, lang := range languages {
		ext, ok := co.registry.Lookup(lang)
		if !ok {
			co.logger.Warn("coordinator.language.skipped", "language", lang, "reason", "no extractor registered")
			result.SkippedLanguages = append(result.SkippedLanguages, lang)
			continue
		}
		extractors = append(extractors, ext)
	}
	if len(extractors) == 0 {
		return nil, &ConfigurationError{Op: "languages", Detail: "no registered extractor for any requested language"}
	}

	// Discovery is sequential per language; parsing shares one pool.
	type job struct {
		ext  Extractor
		file SourceFile
	}
	var jobs []job
	for _, ext := range extractors {
		files, err := ext.FindSourceFiles(root)
		if err != nil {
			co.logger.Warn("coordinator.discovery.error", "language", ext.Language(), "err", err)
			result.SkippedLanguages = append(result.SkippedLanguages, ext.Language())
			continue
		}
		stats := result.Stats[ext.Language()]
		stats.FilesDiscovered = len(files)
		result.Stats[ext.Language()] = stats
		extMetrics.filesDiscovered.WithLabelValues(ext.Language()).Add(float64(len(files)))
		for _, f := range files {
			jobs = append(jobs, job{ext: ext, file: f})
		}
	}

	co.logger.Info("coordinator.pass.start",
		"root", root,
		"languages", len(extractors),
		"files", len(jobs),
		"workers", co.config.Workers,
	)

	jobCh := make(chan job, len(jobs))
	resultCh := make(chan *graph.ParseResult, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < co.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				resultCh <- co.parseOne(j.ext, j.file)
			}
		}()
	}
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Single accumulation point: workers never touch the shared slices.
	parsed := 0
	for pr := range resultCh {
		parsed++
		if co.config.OnFileParsed != nil {
			co.config.OnFileParsed(parsed, len(jobs))
		}
		result.Entities = append(result.Entities, pr.Entities...)
		result.Relationships = append(result.Relationships, pr.Relationships...)
		result.FailedFiles = append(result.FailedFiles, pr.Failures...)

		lang := parseResultLanguage(pr)
		if lang == "" {
			continue
		}
		stats := result.Stats[lang]
		if len(pr.Failures) > 0 {
			stats.FilesFailed++
		} else {
			stats.FilesParsed++
		}
		stats.Entities += len(pr.Entities)
		stats.Relationships += len(pr.Relationships)
		result.Stats[lang] = stats

		if len(pr.Failures) > 0 {
			extMetrics.filesFailed.WithLabelValues(lang).Inc()
		} else {
			extMetrics.filesParsed.WithLabelValues(lang).Inc()
		}
		extMetrics.entitiesExtracted.WithLabelValues(lang).Add(float64(len(pr.Entities)))
		extMetrics.relationsExtracted.WithLabelValues(lang).Add(float64(len(pr.Relationships)))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Project-scope resolution over the aggregated pass.
	res := newResolver(result.Entities)
	importsResolved := res.resolveImports(result.Relationships)
	refsResolved := res.resolveReferences(result.Relationships)

	result.Relationships = graph.DedupeRelationships(result.Relationships)
	result.Canonicalize()

	unresolved := 0
	for _, rel := range result.Relationships {
		if !rel.Resolved {
			unresolved++
		}
	}
	extMetrics.refsResolved.Add(float64(importsResolved + refsResolved))
	extMetrics.refsUnresolved.Add(float64(unresolved))
	extMetrics.passDuration.Observe(time.Since(passStart).Seconds())

	co.logger.Info("coordinator.pass.complete",
		"entities", len(result.Entities),
		"relationships", len(result.Relationships),
		"failed_files", len(result.FailedFiles),
		"imports_resolved", importsResolved,
		"refs_resolved", refsResolved,
		"refs_unresolved", unresolved,
		"duration_ms", time.Since(passStart).Milliseconds(),
	)

	sort.Strings(result.SkippedLanguages)
	return result, nil
}

// parseOne parses a single file under the per-file timeout. Timeouts and
// parser errors degrade to a recorded failure for that file.
func (co *Coordinator) parseOne(ext Extractor, file SourceFile) *graph.ParseResult {
	start := time.Now()
	defer func() {
		extMetrics.parseDuration.Observe(time.Since(start).Seconds())
	}()

	type outcome struct {
		pr  *graph.ParseResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		pr, err := ext.ParseFile(file)
		done <- outcome{pr, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			co.logger.Warn("coordinator.parse.error", "path", file.Path, "language", ext.Language(), "err", out.err)
			return malformedResult(file, out.err.Error())
		}
		return out.pr
	case <-time.After(co.config.FileTimeout):
		co.logger.Warn("coordinator.parse.timeout", "path", file.Path, "language", ext.Language(), "timeout", co.config.FileTimeout)
		return malformedResult(file, fmt.Sprintf("parse exceeded %s", co.config.FileTimeout))
	}
}

// parseResultLanguage reads the language of a per-file result from its
// failure record or its File entity.
func parseResultLanguage(pr *graph.ParseResult) string {
	if len(pr.Failures) > 0 {
		return pr.Failures[0].Language
	}
	for i := range pr.Entities {
		if pr.Entities[i].Kind == graph.KindFile {
			return pr.Entities[i].Language
		}
	}
	return ""
}
