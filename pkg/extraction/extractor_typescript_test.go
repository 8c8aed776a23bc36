// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ckg/pkg/graph"
)

func TestTypeScriptExtractEntities(t *testing.T) {
	pr, err := NewTypeScriptExtractor(nil).ParseFile(testFile(t, LangTypeScript, "ts/service.ts"))
	require.NoError(t, err)
	require.Empty(t, pr.Failures)

	iface := requireEntity(t, pr, graph.KindInterface, "service.Sink")
	requireEntity(t, pr, graph.KindMethod, "service.Sink.write")
	requireEntity(t, pr, graph.KindEnum, "service.Level")
	class := requireEntity(t, pr, graph.KindClass, "service.ConsoleSink")
	requireEntity(t, pr, graph.KindConstructor, "service.ConsoleSink.constructor")
	count := requireEntity(t, pr, graph.KindField, "service.ConsoleSink.count")
	bump := requireEntity(t, pr, graph.KindFunction, "service.bump")
	maker := requireEntity(t, pr, graph.KindFunction, "service.makeSink")

	assert.Equal(t, graph.VisibilityPublic, iface.Visibility)
	assert.Equal(t, graph.VisibilityPublic, class.Visibility)
	assert.Equal(t, graph.VisibilityPrivate, count.Visibility)
	assert.Equal(t, graph.VisibilityPublic, bump.Visibility)
	assert.Equal(t, graph.VisibilityInternal, maker.Visibility, "unexported binding is module-local")
}

func TestTypeScriptRelationships(t *testing.T) {
	pr, err := NewTypeScriptExtractor(nil).ParseFile(testFile(t, LangTypeScript, "ts/service.ts"))
	require.NoError(t, err)

	class := entityByQName(pr, "service.ConsoleSink")
	iface := entityByQName(pr, "service.Sink")
	write := entityByQName(pr, "service.ConsoleSink.write")
	bump := entityByQName(pr, "service.bump")
	maker := entityByQName(pr, "service.makeSink")
	ctor := entityByQName(pr, "service.ConsoleSink.constructor")

	assert.NotNil(t, resolvedEdge(pr, graph.RelationImplements, class, iface))
	assert.NotNil(t, resolvedEdge(pr, graph.RelationCalls, write, bump))
	assert.NotNil(t, resolvedEdge(pr, graph.RelationCalls, maker, ctor),
		"new expression resolves to the constructor")

	file := entityByQName(pr, "service.ts")
	imports := edgesFrom(pr, graph.RelationImports, file.LocalKey())
	require.Len(t, imports, 1)
	assert.Equal(t, "./math", imports[0].TargetName)
}

func TestTypeScriptMalformedDegradesToFailure(t *testing.T) {
	pr, err := NewTypeScriptExtractor(nil).ParseFile(testFile(t, LangTypeScript, "ts/broken.ts"))
	require.NoError(t, err)

	assert.Empty(t, pr.Entities)
	require.Len(t, pr.Failures, 1)
	assert.Equal(t, LangTypeScript, pr.Failures[0].Language)
}
