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

// Package testing provides helpers for tests that need a live graph
// store: an in-memory SQLite store with the schema applied, and seed
// helpers for entities and relationships.
package testing

import (
	"context"
	"testing"

	"github.com/kraklabs/ckg/pkg/graph"
	"github.com/kraklabs/ckg/pkg/graphstore"
)

// SetupTestStore creates an in-memory store with the schema applied.
// The store is closed when the test finishes.
//
//	store := testing.SetupTestStore(t)
//	testing.SeedEntity(t, store, "proj", graph.KindFunction, "app.helper", "app.py")
func SetupTestStore(t *testing.T) *graphstore.SQLiteStore {
	t.Helper()

	store, err := graphstore.NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedEntity writes one entity and returns its key. The display name is
// the last dotted segment of the qualified name.
func SeedEntity(t *testing.T, store graphstore.Store, projectID string, kind graph.EntityKind, qualifiedName, filePath string) string {
	t.Helper()

	display := qualifiedName
	for i := len(qualifiedName) - 1; i >= 0; i-- {
		if qualifiedName[i] == '.' {
			display = qualifiedName[i+1:]
			break
		}
	}

	key := graph.EntityKey(projectID, filePath, qualifiedName)
	err := store.UpsertEntities(context.Background(), []graphstore.StoredEntity{{
		Key:           key,
		ProjectID:     projectID,
		Kind:          kind,
		QualifiedName: qualifiedName,
		DisplayName:   display,
		FilePath:      filePath,
		StartLine:     1,
		EndLine:       1,
		Visibility:    graph.VisibilityPublic,
		Language:      "python",
	}})
	if err != nil {
		t.Fatalf("seed entity %s: %v", qualifiedName, err)
	}
	return key
}

// SeedRelationship writes one edge between previously seeded keys.
func SeedRelationship(t *testing.T, store graphstore.Store, projectID string, kind graph.RelationKind, sourceKey, targetKey string) {
	t.Helper()

	err := store.UpsertRelationships(context.Background(), []graphstore.StoredRelationship{{
		Kind:        kind,
		ProjectID:   projectID,
		SourceKey:   sourceKey,
		TargetKey:   targetKey,
		Occurrences: 1,
	}})
	if err != nil {
		t.Fatalf("seed relationship %s: %v", kind, err)
	}
}
