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

// Package analysis derives architectural findings from the persisted
// graph: dependency cycles and unused public elements.
//
// Findings are advisory. The graph is built from conservative static
// extraction, so analyzers attach an explicit confidence and caveat to
// everything they report instead of presenting results as ground truth.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kraklabs/ckg/pkg/graph"
	"github.com/kraklabs/ckg/pkg/graphstore"
)

// Severity grades a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// FindingKind names the analyzer that produced a finding.
type FindingKind string

const (
	FindingDependencyCycle FindingKind = "dependency_cycle"
	FindingUnusedElement   FindingKind = "unused_public_element"
)

// Confidence grades how much a finding should be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Location is one code position a finding refers to.
type Location struct {
	FilePath      string `json:"file_path"`
	StartLine     int    `json:"start_line"`
	QualifiedName string `json:"qualified_name"`
}

// Finding is one analyzer result.
type Finding struct {
	Kind           FindingKind `json:"kind"`
	Severity       Severity    `json:"severity"`
	Summary        string      `json:"summary"`
	Locations      []Location  `json:"locations"`
	Recommendation string      `json:"recommendation"`
	Confidence     Confidence  `json:"confidence"`
	Caveat         string      `json:"caveat,omitempty"`
}

// Analyzer runs architectural analyses over one project's graph.
type Analyzer struct {
	store  graphstore.Store
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer over the given store.
func NewAnalyzer(store graphstore.Store, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{store: store, logger: logger}
}

// AnalyzeProject runs every analyzer and returns the combined findings
// in stable order.
func (a *Analyzer) AnalyzeProject(ctx context.Context, projectID string) ([]Finding, error) {
	view, err := a.loadView(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	findings = append(findings, a.detectCycles(view)...)
	findings = append(findings, a.detectUnused(view)...)

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Kind != findings[j].Kind {
			return findings[i].Kind < findings[j].Kind
		}
		return findings[i].Summary < findings[j].Summary
	})

	a.logger.Info("analysis.complete", "project_id", projectID, "findings", len(findings))
	return findings, nil
}

// projectView is a project's graph loaded into memory for analysis.
type projectView struct {
	projectID string
	entities  map[string]*graphstore.StoredEntity
	rels      []graphstore.StoredRelationship
	parent    map[string]string            // containment: child key -> parent key
	incoming  map[string]map[string]int    // target key -> kind -> count
}

func (a *Analyzer) loadView(ctx context.Context, projectID string) (*projectView, error) {
	entities, err := a.store.EntitiesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("analysis load: %w", err)
	}
	rels, err := a.store.RelationshipsByProject(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("analysis load: %w", err)
	}

	view := &projectView{
		projectID: projectID,
		entities:  make(map[string]*graphstore.StoredEntity, len(entities)),
		rels:      rels,
		parent:    make(map[string]string),
		incoming:  make(map[string]map[string]int),
	}
	for i := range entities {
		view.entities[entities[i].Key] = &entities[i]
	}
	for _, rel := range rels {
		if rel.Kind == graph.RelationContains {
			view.parent[rel.TargetKey] = rel.SourceKey
		}
		m := view.incoming[rel.TargetKey]
		if m == nil {
			m = make(map[string]int)
			view.incoming[rel.TargetKey] = m
		}
		m[string(rel.Kind)] += rel.Occurrences
	}
	return view, nil
}

// containingFile walks containment up to the file holding an entity.
// Returns "" for the project root and detached nodes.
func (v *projectView) containingFile(key string) string {
	for cur := key; cur != ""; cur = v.parent[cur] {
		e, ok := v.entities[cur]
		if !ok {
			return ""
		}
		if e.Kind == graph.KindFile {
			return cur
		}
	}
	return ""
}

// containingType walks containment up to the nearest type-like ancestor,
// including the entity itself.
func (v *projectView) containingType(key string) string {
	for cur := key; cur != ""; cur = v.parent[cur] {
		e, ok := v.entities[cur]
		if !ok {
			return ""
		}
		if e.Kind.IsTypeLike() {
			return cur
		}
		if e.Kind == graph.KindFile {
			return ""
		}
	}
	return ""
}

// topLevelDir is the first path segment of an entity's file, used as a
// coarse module boundary. Files at the repository root share the empty
// boundary.
func topLevelDir(path string) string {
	if i := strings.Index(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}
