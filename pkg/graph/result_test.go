// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeIsOrderIndependent(t *testing.T) {
	entities := []CodeEntity{
		{Kind: KindFunction, QualifiedName: "b.f", FilePath: "b.py"},
		{Kind: KindFile, QualifiedName: "a", FilePath: "a.py"},
		{Kind: KindFunction, QualifiedName: "a.f", FilePath: "a.py"},
	}
	rels := []CodeRelationship{
		{Kind: RelationCalls, SourceKey: "s2", TargetKey: "t1", Resolved: true, Occurrences: 1},
		{Kind: RelationContains, SourceKey: "s1", TargetKey: "t2", Resolved: true, Occurrences: 1},
	}

	forward := &CoordinatorResult{
		Entities:      append([]CodeEntity(nil), entities...),
		Relationships: append([]CodeRelationship(nil), rels...),
	}
	reversed := &CoordinatorResult{
		Entities:      []CodeEntity{entities[2], entities[0], entities[1]},
		Relationships: []CodeRelationship{rels[1], rels[0]},
	}

	forward.Canonicalize()
	reversed.Canonicalize()

	assert.Equal(t, forward.Entities, reversed.Entities)
	assert.Equal(t, forward.Relationships, reversed.Relationships)
	assert.Equal(t, "a", forward.Entities[0].QualifiedName)
}

func TestEntityByLocalKey(t *testing.T) {
	result := &CoordinatorResult{
		Entities: []CodeEntity{
			{Kind: KindFunction, QualifiedName: "app.f", FilePath: "app.py"},
		},
	}
	index := result.EntityByLocalKey()
	entity, ok := index[LocalKey("app.py", "app.f")]
	require.True(t, ok)
	assert.Equal(t, KindFunction, entity.Kind)
}
