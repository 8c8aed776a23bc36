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

// Package builder turns an extraction pass into persisted graph state.
//
// The builder is idempotent: entity and relationship identity is stable
// across runs, every write is an upsert, so building the same source tree
// twice leaves the store byte-for-byte unchanged. Unresolved references
// never become edges; they are counted on the report instead.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/ckg/pkg/graph"
	"github.com/kraklabs/ckg/pkg/graphstore"
)

// Config tunes a build.
type Config struct {
	// BatchSize bounds how many rows go into one store transaction.
	// Zero means 500.
	BatchSize int

	// MaxRetries is how many times a failed batch is retried before the
	// build aborts. Zero means 3.
	MaxRetries int

	// RetryBackoff is the initial backoff between retries. It doubles per
	// attempt, capped at 2s. Zero means 100ms.
	RetryBackoff time.Duration
}

// Report summarizes one build run.
type Report struct {
	ProjectID string `json:"project_id"`
	RunID     string `json:"run_id"`

	NodesWritten int `json:"nodes_written"`
	EdgesWritten int `json:"edges_written"`

	// UnresolvedReferences counts relationships the extraction pass could
	// not resolve to an entity. They are not written to the store.
	UnresolvedReferences int `json:"unresolved_references"`

	// DanglingSkipped counts resolved relationships whose endpoint entity
	// was missing from the pass. Normally zero; nonzero points at an
	// extractor bug.
	DanglingSkipped int `json:"dangling_skipped,omitempty"`

	FailedFiles  int `json:"failed_files"`
	Batches      int `json:"batches"`
	BatchRetries int `json:"batch_retries,omitempty"`

	WriteDuration time.Duration `json:"write_duration_ns"`
	TotalDuration time.Duration `json:"total_duration_ns"`
}

// Builder writes coordinator results into a graph store.
type Builder struct {
	store  graphstore.Store
	config Config
	logger *slog.Logger
}

// New creates a builder over the given store.
func New(store graphstore.Store, config Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 100 * time.Millisecond
	}
	return &Builder{store: store, config: config, logger: logger}
}

// Build persists one extraction pass under projectID.
//
// The project root node and its CONTAINS edges to every file are
// synthesized here; everything else comes from the pass. Local keys are
// rewritten to project-scoped keys before writing.
func (b *Builder) Build(ctx context.Context, result *graph.CoordinatorResult, projectID string) (*Report, error) {
	bldMetrics.init()
	start := time.Now()

	report := &Report{
		ProjectID:   projectID,
		RunID:       uuid.NewString(),
		FailedFiles: len(result.FailedFiles),
	}

	b.logger.Info("builder.run.start",
		"project_id", projectID,
		"run_id", report.RunID,
		"entities", len(result.Entities),
		"relationships", len(result.Relationships),
	)

	if err := b.store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}

	entities, keyMap := b.mapEntities(result, projectID)
	edges := b.mapRelationships(result, projectID, keyMap, report)

	writeStart := time.Now()
	if err := b.writeEntities(ctx, entities, report); err != nil {
		return nil, err
	}
	if err := b.writeRelationships(ctx, edges, report); err != nil {
		return nil, err
	}
	report.WriteDuration = time.Since(writeStart)
	report.TotalDuration = time.Since(start)

	bldMetrics.nodesWritten.Add(float64(report.NodesWritten))
	bldMetrics.edgesWritten.Add(float64(report.EdgesWritten))
	bldMetrics.unresolvedRefs.Add(float64(report.UnresolvedReferences))
	bldMetrics.buildDuration.Observe(report.TotalDuration.Seconds())

	b.logger.Info("builder.run.complete",
		"project_id", projectID,
		"run_id", report.RunID,
		"nodes_written", report.NodesWritten,
		"edges_written", report.EdgesWritten,
		"unresolved_refs", report.UnresolvedReferences,
		"failed_files", report.FailedFiles,
		"batches", report.Batches,
		"retries", report.BatchRetries,
		"duration_ms", report.TotalDuration.Milliseconds(),
	)

	return report, nil
}

// mapEntities rewrites local keys to project-scoped keys and synthesizes
// the project root node.
func (b *Builder) mapEntities(result *graph.CoordinatorResult, projectID string) ([]graphstore.StoredEntity, map[string]string) {
	keyMap := make(map[string]string, len(result.Entities)+1)
	entities := make([]graphstore.StoredEntity, 0, len(result.Entities)+1)

	projectKey := graph.ProjectKey(projectID)
	entities = append(entities, graphstore.StoredEntity{
		Key:           projectKey,
		ProjectID:     projectID,
		Kind:          graph.KindProject,
		QualifiedName: projectID,
		DisplayName:   projectID,
		Visibility:    graph.VisibilityPublic,
	})

	for i := range result.Entities {
		e := &result.Entities[i]
		key := graph.EntityKey(projectID, e.FilePath, e.QualifiedName)
		keyMap[e.LocalKey()] = key
		entities = append(entities, graphstore.StoredEntity{
			Key:           key,
			ProjectID:     projectID,
			Kind:          e.Kind,
			QualifiedName: e.QualifiedName,
			DisplayName:   e.DisplayName,
			FilePath:      e.FilePath,
			StartLine:     e.StartLine,
			EndLine:       e.EndLine,
			Visibility:    e.Visibility,
			Language:      e.Language,
			Signature:     e.Signature,
		})
	}
	return entities, keyMap
}

// mapRelationships rewrites resolved edges to project keys and adds the
// project-to-file containment edges. Unresolved references are counted
// and dropped.
func (b *Builder) mapRelationships(result *graph.CoordinatorResult, projectID string, keyMap map[string]string, report *Report) []graphstore.StoredRelationship {
	projectKey := graph.ProjectKey(projectID)
	edges := make([]graphstore.StoredRelationship, 0, len(result.Relationships))

	for i := range result.Entities {
		e := &result.Entities[i]
		if e.Kind != graph.KindFile {
			continue
		}
		edges = append(edges, graphstore.StoredRelationship{
			Kind:        graph.RelationContains,
			ProjectID:   projectID,
			SourceKey:   projectKey,
			TargetKey:   keyMap[e.LocalKey()],
			Occurrences: 1,
		})
	}

	for i := range result.Relationships {
		rel := &result.Relationships[i]
		if !rel.Resolved {
			report.UnresolvedReferences++
			continue
		}
		source, okS := keyMap[rel.SourceKey]
		target, okT := keyMap[rel.TargetKey]
		if !okS || !okT {
			report.DanglingSkipped++
			b.logger.Warn("builder.edge.dangling", "kind", rel.Kind, "source", rel.SourceKey, "target", rel.TargetKey)
			continue
		}
		edges = append(edges, graphstore.StoredRelationship{
			Kind:        rel.Kind,
			ProjectID:   projectID,
			SourceKey:   source,
			TargetKey:   target,
			SiteLine:    rel.SiteLine,
			Occurrences: rel.Occurrences,
		})
	}
	return edges
}

func (b *Builder) writeEntities(ctx context.Context, entities []graphstore.StoredEntity, report *Report) error {
	for offset := 0; offset < len(entities); offset += b.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := offset + b.config.BatchSize
		if end > len(entities) {
			end = len(entities)
		}
		batch := entities[offset:end]
		if err := b.withRetry(ctx, report, func() error {
			return b.store.UpsertEntities(ctx, batch)
		}); err != nil {
			return fmt.Errorf("builder: write entity batch at %d: %w", offset, err)
		}
		report.Batches++
		report.NodesWritten += len(batch)
	}
	return nil
}

func (b *Builder) writeRelationships(ctx context.Context, edges []graphstore.StoredRelationship, report *Report) error {
	for offset := 0; offset < len(edges); offset += b.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := offset + b.config.BatchSize
		if end > len(edges) {
			end = len(edges)
		}
		batch := edges[offset:end]
		if err := b.withRetry(ctx, report, func() error {
			return b.store.UpsertRelationships(ctx, batch)
		}); err != nil {
			return fmt.Errorf("builder: write edge batch at %d: %w", offset, err)
		}
		report.Batches++
		report.EdgesWritten += len(batch)
	}
	return nil
}

// withRetry runs one batch write, retrying transient failures with
// doubling backoff capped at 2s.
func (b *Builder) withRetry(ctx context.Context, report *Report, write func() error) error {
	backoff := b.config.RetryBackoff
	var err error
	for attempt := 0; attempt <= b.config.MaxRetries; attempt++ {
		if attempt > 0 {
			report.BatchRetries++
			bldMetrics.batchRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 2*time.Second {
				backoff = 2 * time.Second
			}
		}
		if err = write(); err == nil {
			return nil
		}
		b.logger.Warn("builder.batch.retry", "attempt", attempt+1, "err", err)
	}
	return err
}
