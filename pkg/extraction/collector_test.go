// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ckg/pkg/graph"
)

func TestCollectorContainment(t *testing.T) {
	c := newFileCollector("./src/app.py", LangPython)
	classKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindClass,
		QualifiedName: "src.app.Greeter",
		DisplayName:   "Greeter",
		StartLine:     3,
	})
	methodKey := c.add(classKey, graph.CodeEntity{
		Kind:          graph.KindMethod,
		QualifiedName: "src.app.Greeter.greet",
		DisplayName:   "greet",
		StartLine:     4,
	})

	pr := c.finish()
	require.Len(t, pr.Entities, 3)

	file := entityByQName(pr, "src/app.py")
	require.NotNil(t, file, "leading ./ is stripped from the file path")
	assert.Equal(t, graph.KindFile, file.Kind)
	assert.Equal(t, "app.py", file.DisplayName)

	// File -> class -> method, one incoming CONTAINS each.
	contains := edgesFrom(pr, graph.RelationContains, c.fileKey)
	require.Len(t, contains, 1)
	assert.Equal(t, classKey, contains[0].TargetKey)
	contains = edgesFrom(pr, graph.RelationContains, classKey)
	require.Len(t, contains, 1)
	assert.Equal(t, methodKey, contains[0].TargetKey)

	for i := range pr.Entities {
		e := &pr.Entities[i]
		assert.Equal(t, "src/app.py", e.FilePath)
		assert.Equal(t, LangPython, e.Language)
	}
}

func TestCollectorResolvesUniqueLocalName(t *testing.T) {
	c := newFileCollector("lib.py", LangPython)
	helperKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindFunction,
		QualifiedName: "lib.helper",
		DisplayName:   "helper",
	})
	mainKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindFunction,
		QualifiedName: "lib.main",
		DisplayName:   "main",
	})
	c.addCall(mainKey, "helper", 10)
	c.addCall(mainKey, "missing", 11)

	pr := c.finish()
	calls := edgesFrom(pr, graph.RelationCalls, mainKey)
	require.Len(t, calls, 2)

	byName := make(map[string]graph.CodeRelationship)
	for _, rel := range calls {
		byName[rel.TargetName] = rel
	}
	assert.True(t, byName["helper"].Resolved)
	assert.Equal(t, helperKey, byName["helper"].TargetKey)

	assert.False(t, byName["missing"].Resolved)
	assert.Empty(t, byName["missing"].TargetKey)
}

func TestCollectorAmbiguousNameStaysUnresolved(t *testing.T) {
	c := newFileCollector("lib.py", LangPython)
	aKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindClass,
		QualifiedName: "lib.A",
		DisplayName:   "A",
	})
	bKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindClass,
		QualifiedName: "lib.B",
		DisplayName:   "B",
	})
	// The same method name under two classes.
	c.add(aKey, graph.CodeEntity{
		Kind:          graph.KindMethod,
		QualifiedName: "lib.A.render",
		DisplayName:   "render",
	})
	c.add(bKey, graph.CodeEntity{
		Kind:          graph.KindMethod,
		QualifiedName: "lib.B.render",
		DisplayName:   "render",
	})
	caller := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindFunction,
		QualifiedName: "lib.run",
		DisplayName:   "run",
	})
	c.addCall(caller, "render", 20)

	pr := c.finish()
	calls := edgesFrom(pr, graph.RelationCalls, caller)
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Resolved)
	assert.Equal(t, "render", calls[0].TargetName)
}

func TestCollectorInstantiationPrefersConstructor(t *testing.T) {
	c := newFileCollector("svc.py", LangPython)
	classKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindClass,
		QualifiedName: "svc.Service",
		DisplayName:   "Service",
	})
	ctorKey := c.add(classKey, graph.CodeEntity{
		Kind:          graph.KindConstructor,
		QualifiedName: "svc.Service.__init__",
		DisplayName:   "__init__",
	})
	caller := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindFunction,
		QualifiedName: "svc.run",
		DisplayName:   "run",
	})
	c.addCall(caller, "Service", 9)

	pr := c.finish()
	calls := edgesFrom(pr, graph.RelationCalls, caller)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Resolved)
	assert.Equal(t, ctorKey, calls[0].TargetKey)
}

func TestCollectorInstantiationWithoutConstructor(t *testing.T) {
	c := newFileCollector("svc.py", LangPython)
	classKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindClass,
		QualifiedName: "svc.Plain",
		DisplayName:   "Plain",
	})
	caller := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindFunction,
		QualifiedName: "svc.run",
		DisplayName:   "run",
	})
	c.addCall(caller, "Plain", 5)

	pr := c.finish()
	calls := edgesFrom(pr, graph.RelationCalls, caller)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Resolved)
	assert.Equal(t, classKey, calls[0].TargetKey)
}

func TestCollectorTypeRefRejectsCallables(t *testing.T) {
	c := newFileCollector("svc.py", LangPython)
	// A function shares the name of the referenced base; EXTENDS must not
	// bind to it.
	c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindFunction,
		QualifiedName: "svc.Base",
		DisplayName:   "Base",
	})
	classKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindClass,
		QualifiedName: "svc.Child",
		DisplayName:   "Child",
	})
	c.addTypeRef(graph.RelationExtends, classKey, "Base", 3)

	pr := c.finish()
	extends := edgesFrom(pr, graph.RelationExtends, classKey)
	require.Len(t, extends, 1)
	assert.False(t, extends[0].Resolved)
}

func TestCollectorImportsLeftForProjectScope(t *testing.T) {
	c := newFileCollector("app.py", LangPython)
	c.addImport("util", 1)
	c.addImport("", 2)

	pr := c.finish()
	imports := edgesFrom(pr, graph.RelationImports, c.fileKey)
	require.Len(t, imports, 1, "empty module paths are dropped")
	assert.False(t, imports[0].Resolved)
	assert.Equal(t, "util", imports[0].TargetName)
}
