// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ckg/pkg/graph"
)

func TestPythonExtractEntities(t *testing.T) {
	pr, err := NewPythonExtractor(nil).ParseFile(testFile(t, LangPython, "python/app.py"))
	require.NoError(t, err)
	require.Empty(t, pr.Failures)

	requireEntity(t, pr, graph.KindFile, "app.py")
	requireEntity(t, pr, graph.KindVariable, "app.GREETING")
	class := requireEntity(t, pr, graph.KindClass, "app.Greeter")
	ctor := requireEntity(t, pr, graph.KindConstructor, "app.Greeter.__init__")
	greet := requireEntity(t, pr, graph.KindMethod, "app.Greeter.greet")
	internal := requireEntity(t, pr, graph.KindMethod, "app.Greeter._internal")
	format := requireEntity(t, pr, graph.KindFunction, "app.format_name")
	run := requireEntity(t, pr, graph.KindFunction, "app.run")

	assert.Equal(t, graph.VisibilityPublic, class.Visibility)
	assert.Equal(t, graph.VisibilityPublic, ctor.Visibility, "dunder names stay public")
	assert.Equal(t, graph.VisibilityPrivate, internal.Visibility)
	assert.Contains(t, greet.Signature, "def greet(self)")
	assert.Equal(t, "format_name", format.DisplayName)
	assert.Greater(t, run.EndLine, run.StartLine)
}

func TestPythonContainmentForest(t *testing.T) {
	pr, err := NewPythonExtractor(nil).ParseFile(testFile(t, LangPython, "python/app.py"))
	require.NoError(t, err)

	// Every entity except the File has exactly one incoming CONTAINS edge.
	incoming := make(map[string]int)
	for _, rel := range pr.Relationships {
		if rel.Kind == graph.RelationContains {
			incoming[rel.TargetKey]++
		}
	}
	for i := range pr.Entities {
		e := &pr.Entities[i]
		if e.Kind == graph.KindFile {
			assert.Zero(t, incoming[e.LocalKey()])
			continue
		}
		assert.Equal(t, 1, incoming[e.LocalKey()], "entity %s", e.QualifiedName)
	}

	file := entityByQName(pr, "app.py")
	class := entityByQName(pr, "app.Greeter")
	greet := entityByQName(pr, "app.Greeter.greet")
	require.NotNil(t, resolvedEdge(pr, graph.RelationContains, file, class))
	require.NotNil(t, resolvedEdge(pr, graph.RelationContains, class, greet))
}

func TestPythonIntraFileCallResolution(t *testing.T) {
	pr, err := NewPythonExtractor(nil).ParseFile(testFile(t, LangPython, "python/app.py"))
	require.NoError(t, err)

	greet := entityByQName(pr, "app.Greeter.greet")
	format := entityByQName(pr, "app.format_name")
	run := entityByQName(pr, "app.run")
	ctor := entityByQName(pr, "app.Greeter.__init__")

	assert.NotNil(t, resolvedEdge(pr, graph.RelationCalls, greet, format))
	assert.NotNil(t, resolvedEdge(pr, graph.RelationCalls, run, ctor),
		"instantiation resolves to the constructor")

	// Calls into the standard library stay unresolved.
	assert.True(t, unresolvedNames(pr, graph.RelationCalls)["title"])
}

func TestPythonImportsStayUnresolvedInFile(t *testing.T) {
	pr, err := NewPythonExtractor(nil).ParseFile(testFile(t, LangPython, "python/app.py"))
	require.NoError(t, err)

	file := entityByQName(pr, "app.py")
	imports := edgesFrom(pr, graph.RelationImports, file.LocalKey())
	require.Len(t, imports, 1)
	assert.Equal(t, "util", imports[0].TargetName)
	assert.False(t, imports[0].Resolved, "imports resolve at project scope, not file scope")
}

func TestPythonMalformedDegradesToFailure(t *testing.T) {
	pr, err := NewPythonExtractor(nil).ParseFile(testFile(t, LangPython, "python/broken.py"))
	require.NoError(t, err, "malformed input is data, not an error")

	assert.Empty(t, pr.Entities)
	require.Len(t, pr.Failures, 1)
	assert.Equal(t, "broken.py", pr.Failures[0].FilePath)
	assert.Equal(t, LangPython, pr.Failures[0].Language)
	assert.NotEmpty(t, pr.Failures[0].Reason)
}
