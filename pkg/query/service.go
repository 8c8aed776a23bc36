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

// Package query answers read-only questions against the persisted graph.
//
// A missing entity is a normal outcome, reported as *NotFoundError so
// callers can distinguish "not indexed" from a failing store. Results of
// pure lookups are cached; the cache must be reset after a rebuild.
package query

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kraklabs/ckg/pkg/graph"
	"github.com/kraklabs/ckg/pkg/graphstore"
)

// NotFoundError reports that a named entity is not in the graph.
type NotFoundError struct {
	ProjectID string
	Name      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity %q not found in project %q", e.Name, e.ProjectID)
}

// Definition is one entity matching a definition lookup. Ambiguous is
// set when the lookup matched by simple name and other candidates exist.
type Definition struct {
	Entity    graphstore.StoredEntity
	Ambiguous bool
}

// CallEdge is one resolved call relationship with both endpoints loaded.
type CallEdge struct {
	Caller      graphstore.StoredEntity
	Callee      graphstore.StoredEntity
	SiteLine    int
	Occurrences int
}

// Overview aggregates a project's graph for humans.
type Overview struct {
	ProjectID     string
	Files         int
	Entities      int
	Relationships int
	ByKind        map[graph.EntityKind]int
}

// ComplexitySignal is a coarse size/coupling reading for one entity.
// It is a heuristic over graph shape, not a parsed cyclomatic value.
type ComplexitySignal struct {
	Entity  graphstore.StoredEntity
	Members int // direct CONTAINS children
	FanIn   int // distinct resolved callers
	FanOut  int // distinct resolved callees
	Lines   int
}

// Service answers queries against one store.
type Service struct {
	store  graphstore.Store
	logger *slog.Logger
	cache  *lru.Cache[string, []Definition]
}

// NewService creates a query service. cacheSize <= 0 means 256.
func NewService(store graphstore.Store, cacheSize int, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, []Definition](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("query service: %w", err)
	}
	return &Service{store: store, logger: logger, cache: cache}, nil
}

// ResetCache drops cached lookups. Call after a rebuild.
func (s *Service) ResetCache() {
	s.cache.Purge()
}

// LocateDefinition finds the entities defining name. An exact qualified
// name wins; otherwise simple-name candidates are returned with the
// Ambiguous flag set when there is more than one.
func (s *Service) LocateDefinition(ctx context.Context, projectID, name string) ([]Definition, error) {
	cacheKey := projectID + "\x00" + name
	if defs, ok := s.cache.Get(cacheKey); ok {
		return defs, nil
	}

	entities, err := s.store.EntitiesByQualifiedName(ctx, projectID, name)
	if err != nil {
		return nil, fmt.Errorf("locate definition: %w", err)
	}
	if len(entities) == 0 {
		entities, err = s.store.EntitiesByDisplayName(ctx, projectID, name)
		if err != nil {
			return nil, fmt.Errorf("locate definition: %w", err)
		}
	}
	if len(entities) == 0 {
		return nil, &NotFoundError{ProjectID: projectID, Name: name}
	}

	defs := make([]Definition, len(entities))
	for i, e := range entities {
		defs[i] = Definition{Entity: e, Ambiguous: len(entities) > 1}
	}
	s.cache.Add(cacheKey, defs)
	return defs, nil
}

// ListCallers returns the resolved call edges into the named entity.
// Ambiguous names aggregate callers across all candidates.
func (s *Service) ListCallers(ctx context.Context, projectID, name string) ([]CallEdge, error) {
	defs, err := s.LocateDefinition(ctx, projectID, name)
	if err != nil {
		return nil, err
	}

	var out []CallEdge
	for _, def := range defs {
		rels, err := s.store.IncomingRelationships(ctx, def.Entity.Key, graph.RelationCalls)
		if err != nil {
			return nil, fmt.Errorf("list callers: %w", err)
		}
		for _, rel := range rels {
			caller, err := s.store.EntityByKey(ctx, rel.SourceKey)
			if err != nil {
				return nil, fmt.Errorf("list callers: %w", err)
			}
			if caller == nil {
				continue
			}
			out = append(out, CallEdge{
				Caller:      *caller,
				Callee:      def.Entity,
				SiteLine:    rel.SiteLine,
				Occurrences: rel.Occurrences,
			})
		}
	}
	return out, nil
}

// ListCallees returns the resolved call edges out of the named entity.
func (s *Service) ListCallees(ctx context.Context, projectID, name string) ([]CallEdge, error) {
	defs, err := s.LocateDefinition(ctx, projectID, name)
	if err != nil {
		return nil, err
	}

	var out []CallEdge
	for _, def := range defs {
		rels, err := s.store.OutgoingRelationships(ctx, def.Entity.Key, graph.RelationCalls)
		if err != nil {
			return nil, fmt.Errorf("list callees: %w", err)
		}
		for _, rel := range rels {
			callee, err := s.store.EntityByKey(ctx, rel.TargetKey)
			if err != nil {
				return nil, fmt.Errorf("list callees: %w", err)
			}
			if callee == nil {
				continue
			}
			out = append(out, CallEdge{
				Caller:      def.Entity,
				Callee:      *callee,
				SiteLine:    rel.SiteLine,
				Occurrences: rel.Occurrences,
			})
		}
	}
	return out, nil
}

// ProjectOverview aggregates stored counts for a project. An empty
// project is a NotFoundError, not an all-zero overview.
func (s *Service) ProjectOverview(ctx context.Context, projectID string) (*Overview, error) {
	summary, err := s.store.SummarizeProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("project overview: %w", err)
	}
	if summary.Entities == 0 {
		return nil, &NotFoundError{ProjectID: projectID, Name: projectID}
	}
	return &Overview{
		ProjectID:     projectID,
		Files:         summary.Files,
		Entities:      summary.Entities,
		Relationships: summary.Relationships,
		ByKind:        summary.ByKind,
	}, nil
}

// Complexity computes the coarse complexity signal for the named entity.
// With an ambiguous name the first candidate in stable order is used.
func (s *Service) Complexity(ctx context.Context, projectID, name string) (*ComplexitySignal, error) {
	defs, err := s.LocateDefinition(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	entity := defs[0].Entity

	contains, err := s.store.OutgoingRelationships(ctx, entity.Key, graph.RelationContains)
	if err != nil {
		return nil, fmt.Errorf("complexity: %w", err)
	}
	callersIn, err := s.store.IncomingRelationships(ctx, entity.Key, graph.RelationCalls)
	if err != nil {
		return nil, fmt.Errorf("complexity: %w", err)
	}
	callsOut, err := s.store.OutgoingRelationships(ctx, entity.Key, graph.RelationCalls)
	if err != nil {
		return nil, fmt.Errorf("complexity: %w", err)
	}

	lines := entity.EndLine - entity.StartLine + 1
	if entity.EndLine == 0 {
		lines = 0
	}
	return &ComplexitySignal{
		Entity:  entity,
		Members: len(contains),
		FanIn:   len(callersIn),
		FanOut:  len(callsOut),
		Lines:   lines,
	}, nil
}
