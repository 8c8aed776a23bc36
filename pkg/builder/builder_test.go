// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package builder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/kraklabs/ckg/internal/testing"
	"github.com/kraklabs/ckg/pkg/builder"
	"github.com/kraklabs/ckg/pkg/graph"
)

// twoFileResult is a minimal extraction pass: two files, two functions,
// one resolved call between them and one unresolved reference.
func twoFileResult() *graph.CoordinatorResult {
	result := &graph.CoordinatorResult{
		SourceRoot: "/src",
		Entities: []graph.CodeEntity{
			{Kind: graph.KindFile, QualifiedName: "app", FilePath: "app.py", Visibility: graph.VisibilityPublic, Language: "python"},
			{Kind: graph.KindFunction, QualifiedName: "app.run", DisplayName: "run", FilePath: "app.py", StartLine: 1, EndLine: 3, Visibility: graph.VisibilityPublic, Language: "python"},
			{Kind: graph.KindFile, QualifiedName: "util", FilePath: "util.py", Visibility: graph.VisibilityPublic, Language: "python"},
			{Kind: graph.KindFunction, QualifiedName: "util.helper", DisplayName: "helper", FilePath: "util.py", StartLine: 1, EndLine: 2, Visibility: graph.VisibilityPublic, Language: "python"},
		},
		Relationships: []graph.CodeRelationship{
			{Kind: graph.RelationContains, SourceKey: graph.LocalKey("app.py", "app"), TargetKey: graph.LocalKey("app.py", "app.run"), Resolved: true, Occurrences: 1},
			{Kind: graph.RelationContains, SourceKey: graph.LocalKey("util.py", "util"), TargetKey: graph.LocalKey("util.py", "util.helper"), Resolved: true, Occurrences: 1},
			{Kind: graph.RelationCalls, SourceKey: graph.LocalKey("app.py", "app.run"), TargetKey: graph.LocalKey("util.py", "util.helper"), SiteLine: 2, Resolved: true, Occurrences: 1},
			{Kind: graph.RelationCalls, SourceKey: graph.LocalKey("app.py", "app.run"), TargetName: "mystery", SiteLine: 3, Occurrences: 1},
		},
		Stats: map[string]graph.LanguageStats{},
	}
	result.Canonicalize()
	return result
}

func TestBuildWritesGraph(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	report, err := builder.New(store, builder.Config{}, nil).Build(ctx, twoFileResult(), "proj-build")
	require.NoError(t, err)

	assert.Equal(t, 5, report.NodesWritten, "4 entities plus the project root")
	assert.Equal(t, 5, report.EdgesWritten, "3 resolved edges plus 2 project-to-file edges")
	assert.Equal(t, 1, report.UnresolvedReferences)
	assert.Equal(t, 0, report.DanglingSkipped)
	assert.NotEmpty(t, report.RunID)

	root, err := store.EntityByKey(ctx, graph.ProjectKey("proj-build"))
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, graph.KindProject, root.Kind)

	files, err := store.OutgoingRelationships(ctx, root.Key, graph.RelationContains)
	require.NoError(t, err)
	assert.Len(t, files, 2, "project contains both files")
}

func TestBuildUnresolvedNeverWritten(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	_, err := builder.New(store, builder.Config{}, nil).Build(ctx, twoFileResult(), "proj-unres")
	require.NoError(t, err)

	rels, err := store.RelationshipsByProject(ctx, "proj-unres", "")
	require.NoError(t, err)
	for _, rel := range rels {
		assert.NotEmpty(t, rel.TargetKey, "no edge may dangle")
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()
	b := builder.New(store, builder.Config{}, nil)

	first, err := b.Build(ctx, twoFileResult(), "proj-idem")
	require.NoError(t, err)
	second, err := b.Build(ctx, twoFileResult(), "proj-idem")
	require.NoError(t, err)

	assert.Equal(t, first.NodesWritten, second.NodesWritten)
	assert.Equal(t, first.EdgesWritten, second.EdgesWritten)

	summary, err := store.SummarizeProject(ctx, "proj-idem")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Entities)
	assert.Equal(t, 5, summary.Relationships)

	calls, err := store.RelationshipsByProject(ctx, "proj-idem", graph.RelationCalls)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].Occurrences, "occurrences converge instead of accumulating")
}

func TestBuildSkipsDanglingEdges(t *testing.T) {
	store := testutil.SetupTestStore(t)
	result := twoFileResult()
	result.Relationships = append(result.Relationships, graph.CodeRelationship{
		Kind:        graph.RelationCalls,
		SourceKey:   graph.LocalKey("app.py", "app.run"),
		TargetKey:   "loc:feedfacefeedfacefeedfacefeedface",
		Resolved:    true,
		Occurrences: 1,
	})

	report, err := builder.New(store, builder.Config{}, nil).Build(context.Background(), result, "proj-dangling")
	require.NoError(t, err)
	assert.Equal(t, 1, report.DanglingSkipped)
}

func TestBuildBatches(t *testing.T) {
	store := testutil.SetupTestStore(t)

	report, err := builder.New(store, builder.Config{BatchSize: 1}, nil).Build(context.Background(), twoFileResult(), "proj-batch")
	require.NoError(t, err)
	assert.Equal(t, report.NodesWritten+report.EdgesWritten, report.Batches)
}
