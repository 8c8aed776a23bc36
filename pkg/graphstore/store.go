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

package graphstore

import (
	"context"

	"github.com/kraklabs/ckg/pkg/graph"
)

// StoredEntity is a graph node at rest: a code entity plus its
// project-scoped key.
type StoredEntity struct {
	Key           string
	ProjectID     string
	Kind          graph.EntityKind
	QualifiedName string
	DisplayName   string
	FilePath      string
	StartLine     int
	EndLine       int
	Visibility    graph.Visibility
	Language      string
	Signature     string
}

// StoredRelationship is a graph edge at rest. Identity is the
// (SourceKey, TargetKey, Kind) triple; repeated sites of the same edge
// are folded into Occurrences.
type StoredRelationship struct {
	Kind        graph.RelationKind
	ProjectID   string
	SourceKey   string
	TargetKey   string
	SiteLine    int
	Occurrences int
}

// ProjectSummary aggregates stored counts for one project.
type ProjectSummary struct {
	ProjectID     string
	Entities      int
	Relationships int
	Files         int
	ByKind        map[graph.EntityKind]int
}

// Store is the persistence interface for the code knowledge graph.
// Implementations must make every write an upsert on stable identity.
type Store interface {
	// EnsureSchema creates tables and indexes if they do not exist.
	EnsureSchema(ctx context.Context) error

	// UpsertEntities writes a batch of nodes. Existing keys are
	// overwritten with the incoming values.
	UpsertEntities(ctx context.Context, entities []StoredEntity) error

	// UpsertRelationships writes a batch of edges. An existing
	// (source, target, kind) triple takes the incoming occurrence count.
	UpsertRelationships(ctx context.Context, rels []StoredRelationship) error

	// EntityByKey fetches one node. Returns (nil, nil) when absent.
	EntityByKey(ctx context.Context, key string) (*StoredEntity, error)

	// EntitiesByQualifiedName fetches nodes of a project with an exact
	// qualified name.
	EntitiesByQualifiedName(ctx context.Context, projectID, qualifiedName string) ([]StoredEntity, error)

	// EntitiesByDisplayName fetches nodes of a project with a simple name.
	EntitiesByDisplayName(ctx context.Context, projectID, displayName string) ([]StoredEntity, error)

	// EntitiesByProject fetches all nodes of a project.
	EntitiesByProject(ctx context.Context, projectID string) ([]StoredEntity, error)

	// RelationshipsByProject fetches all edges of a project, optionally
	// filtered by kind. Kind "" means all kinds.
	RelationshipsByProject(ctx context.Context, projectID string, kind graph.RelationKind) ([]StoredRelationship, error)

	// IncomingRelationships fetches edges pointing at a node, optionally
	// filtered by kind.
	IncomingRelationships(ctx context.Context, targetKey string, kind graph.RelationKind) ([]StoredRelationship, error)

	// OutgoingRelationships fetches edges leaving a node, optionally
	// filtered by kind.
	OutgoingRelationships(ctx context.Context, sourceKey string, kind graph.RelationKind) ([]StoredRelationship, error)

	// SummarizeProject aggregates stored counts for a project.
	SummarizeProject(ctx context.Context, projectID string) (*ProjectSummary, error)

	// DeleteProject removes every node and edge of a project.
	DeleteProject(ctx context.Context, projectID string) error

	// Close releases backend resources.
	Close() error
}
