// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ckg/pkg/graph"
)

func TestJavaScriptExtractEntities(t *testing.T) {
	pr, err := NewJavaScriptExtractor(nil).ParseFile(testFile(t, LangJavaScript, "js/app.js"))
	require.NoError(t, err)
	require.Empty(t, pr.Failures)

	class := requireEntity(t, pr, graph.KindClass, "app.Queue")
	requireEntity(t, pr, graph.KindConstructor, "app.Queue.constructor")
	push := requireEntity(t, pr, graph.KindMethod, "app.Queue.push")
	drain := requireEntity(t, pr, graph.KindMethod, "app.Queue._drain")
	maker := requireEntity(t, pr, graph.KindFunction, "app.makeQueue")
	size := requireEntity(t, pr, graph.KindFunction, "app.size")
	report := requireEntity(t, pr, graph.KindFunction, "app.report")

	assert.Equal(t, graph.VisibilityPublic, class.Visibility)
	assert.Equal(t, graph.VisibilityPublic, push.Visibility)
	assert.Equal(t, graph.VisibilityPrivate, drain.Visibility, "underscore convention")
	assert.Equal(t, graph.VisibilityPublic, maker.Visibility)
	assert.Equal(t, graph.VisibilityInternal, report.Visibility)
	assert.Greater(t, class.EndLine, class.StartLine, "brace tracking closes the class span")
	_ = size
}

func TestJavaScriptRelationships(t *testing.T) {
	pr, err := NewJavaScriptExtractor(nil).ParseFile(testFile(t, LangJavaScript, "js/app.js"))
	require.NoError(t, err)

	maker := entityByQName(pr, "app.makeQueue")
	ctor := entityByQName(pr, "app.Queue.constructor")
	report := entityByQName(pr, "app.report")
	size := entityByQName(pr, "app.size")

	assert.NotNil(t, resolvedEdge(pr, graph.RelationCalls, maker, ctor),
		"new Queue() resolves to the constructor")
	assert.NotNil(t, resolvedEdge(pr, graph.RelationCalls, report, size))

	file := entityByQName(pr, "app.js")
	imports := edgesFrom(pr, graph.RelationImports, file.LocalKey())
	names := make(map[string]bool)
	for _, rel := range imports {
		names[rel.TargetName] = true
	}
	assert.True(t, names["./fmt"], "es module import recorded")
	assert.True(t, names["os"], "require() import recorded")
	assert.False(t, names["./legacy"], "commented-out import is not recorded")
	assert.Len(t, imports, 2)

	// format comes from another module; intra-file resolution leaves it.
	assert.True(t, unresolvedNames(pr, graph.RelationCalls)["format"])
}

func TestJavaScriptUnbalancedBracesDegradeToFailure(t *testing.T) {
	pr, err := NewJavaScriptExtractor(nil).ParseFile(testFile(t, LangJavaScript, "js/broken.js"))
	require.NoError(t, err)

	assert.Empty(t, pr.Entities)
	require.Len(t, pr.Failures, 1)
	assert.Contains(t, pr.Failures[0].Reason, "unbalanced braces")
}
