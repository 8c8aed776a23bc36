// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package graphstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/kraklabs/ckg/internal/testing"
	"github.com/kraklabs/ckg/pkg/graph"
	"github.com/kraklabs/ckg/pkg/graphstore"
)

func TestUpsertEntityIdempotent(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	key := graph.EntityKey("proj-upsert", "app.py", "app.helper")
	entity := graphstore.StoredEntity{
		Key:           key,
		ProjectID:     "proj-upsert",
		Kind:          graph.KindFunction,
		QualifiedName: "app.helper",
		DisplayName:   "helper",
		FilePath:      "app.py",
		StartLine:     3,
		EndLine:       9,
		Visibility:    graph.VisibilityPublic,
		Language:      "python",
	}

	require.NoError(t, store.UpsertEntities(ctx, []graphstore.StoredEntity{entity}))

	// Same key with moved lines must update in place, not duplicate.
	entity.StartLine = 5
	entity.EndLine = 12
	require.NoError(t, store.UpsertEntities(ctx, []graphstore.StoredEntity{entity}))

	all, err := store.EntitiesByProject(ctx, "proj-upsert")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 5, all[0].StartLine)
	assert.Equal(t, 12, all[0].EndLine)
}

func TestUpsertRelationshipReplacesOccurrences(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	src := testutil.SeedEntity(t, store, "proj-rel", graph.KindFunction, "app.caller", "app.py")
	dst := testutil.SeedEntity(t, store, "proj-rel", graph.KindFunction, "app.callee", "app.py")

	rel := graphstore.StoredRelationship{
		Kind:        graph.RelationCalls,
		ProjectID:   "proj-rel",
		SourceKey:   src,
		TargetKey:   dst,
		SiteLine:    4,
		Occurrences: 3,
	}
	require.NoError(t, store.UpsertRelationships(ctx, []graphstore.StoredRelationship{rel}))

	// A rebuild that sees the call only once must converge to 1.
	rel.Occurrences = 1
	require.NoError(t, store.UpsertRelationships(ctx, []graphstore.StoredRelationship{rel}))

	rels, err := store.RelationshipsByProject(ctx, "proj-rel", graph.RelationCalls)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, 1, rels[0].Occurrences)
}

func TestEntityByKeyMissing(t *testing.T) {
	store := testutil.SetupTestStore(t)

	entity, err := store.EntityByKey(context.Background(), "ent:does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestEntityLookupsByName(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	testutil.SeedEntity(t, store, "proj-names", graph.KindClass, "billing.Invoice", "billing.py")
	testutil.SeedEntity(t, store, "proj-names", graph.KindClass, "orders.Invoice", "orders.py")

	byQName, err := store.EntitiesByQualifiedName(ctx, "proj-names", "billing.Invoice")
	require.NoError(t, err)
	require.Len(t, byQName, 1)
	assert.Equal(t, "billing.py", byQName[0].FilePath)

	byDName, err := store.EntitiesByDisplayName(ctx, "proj-names", "Invoice")
	require.NoError(t, err)
	assert.Len(t, byDName, 2)

	none, err := store.EntitiesByQualifiedName(ctx, "proj-names", "missing.Name")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIncomingOutgoingFilteredByKind(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	file := testutil.SeedEntity(t, store, "proj-edges", graph.KindFile, "app", "app.py")
	fn := testutil.SeedEntity(t, store, "proj-edges", graph.KindFunction, "app.run", "app.py")
	helper := testutil.SeedEntity(t, store, "proj-edges", graph.KindFunction, "app.helper", "app.py")

	testutil.SeedRelationship(t, store, "proj-edges", graph.RelationContains, file, fn)
	testutil.SeedRelationship(t, store, "proj-edges", graph.RelationContains, file, helper)
	testutil.SeedRelationship(t, store, "proj-edges", graph.RelationCalls, fn, helper)

	calls, err := store.IncomingRelationships(ctx, helper, graph.RelationCalls)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, fn, calls[0].SourceKey)

	all, err := store.IncomingRelationships(ctx, helper, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	out, err := store.OutgoingRelationships(ctx, file, graph.RelationContains)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSummarizeProject(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	file := testutil.SeedEntity(t, store, "proj-sum", graph.KindFile, "app", "app.py")
	fn := testutil.SeedEntity(t, store, "proj-sum", graph.KindFunction, "app.run", "app.py")
	testutil.SeedRelationship(t, store, "proj-sum", graph.RelationContains, file, fn)

	summary, err := store.SummarizeProject(ctx, "proj-sum")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Entities)
	assert.Equal(t, 1, summary.Relationships)
	assert.Equal(t, 1, summary.Files)
	assert.Equal(t, 1, summary.ByKind[graph.KindFunction])
}

func TestDeleteProjectIsScoped(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	a := testutil.SeedEntity(t, store, "proj-del-a", graph.KindFile, "a", "a.py")
	testutil.SeedEntity(t, store, "proj-del-b", graph.KindFile, "b", "b.py")

	require.NoError(t, store.DeleteProject(ctx, "proj-del-a"))

	gone, err := store.EntityByKey(ctx, a)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.EntitiesByProject(ctx, "proj-del-b")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}
