// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package analysis_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/kraklabs/ckg/internal/testing"
	"github.com/kraklabs/ckg/pkg/analysis"
	"github.com/kraklabs/ckg/pkg/graph"
	"github.com/kraklabs/ckg/pkg/graphstore"
)

func analyze(t *testing.T, store graphstore.Store, projectID string) []analysis.Finding {
	t.Helper()
	findings, err := analysis.NewAnalyzer(store, nil).AnalyzeProject(context.Background(), projectID)
	require.NoError(t, err)
	return findings
}

func findingsOfKind(findings []analysis.Finding, kind analysis.FindingKind) []analysis.Finding {
	var out []analysis.Finding
	for _, f := range findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func TestDetectFileCycle(t *testing.T) {
	store := testutil.SetupTestStore(t)
	const proj = "proj-cycle"

	a := testutil.SeedEntity(t, store, proj, graph.KindFile, "src.a", "src/a.py")
	b := testutil.SeedEntity(t, store, proj, graph.KindFile, "src.b", "src/b.py")
	c := testutil.SeedEntity(t, store, proj, graph.KindFile, "src.c", "src/c.py")
	testutil.SeedRelationship(t, store, proj, graph.RelationImports, a, b)
	testutil.SeedRelationship(t, store, proj, graph.RelationImports, b, c)
	testutil.SeedRelationship(t, store, proj, graph.RelationImports, c, a)

	cycles := findingsOfKind(analyze(t, store, proj), analysis.FindingDependencyCycle)
	require.Len(t, cycles, 1)
	finding := cycles[0]

	assert.Equal(t, analysis.SeverityWarning, finding.Severity, "three files in one directory")
	assert.Equal(t, analysis.ConfidenceHigh, finding.Confidence)
	assert.Contains(t, finding.Summary, "file-level dependency cycle")
	assert.Contains(t, finding.Summary, " -> ")
	assert.Len(t, finding.Locations, 3)
}

func TestCycleAcrossDirectoriesIsCritical(t *testing.T) {
	store := testutil.SetupTestStore(t)
	const proj = "proj-cycle-crit"

	a := testutil.SeedEntity(t, store, proj, graph.KindFile, "core.a", "core/a.py")
	b := testutil.SeedEntity(t, store, proj, graph.KindFile, "api.b", "api/b.py")
	testutil.SeedRelationship(t, store, proj, graph.RelationImports, a, b)
	testutil.SeedRelationship(t, store, proj, graph.RelationImports, b, a)

	cycles := findingsOfKind(analyze(t, store, proj), analysis.FindingDependencyCycle)
	require.Len(t, cycles, 1)
	assert.Equal(t, analysis.SeverityCritical, cycles[0].Severity)
}

func TestNoCycleNoFinding(t *testing.T) {
	store := testutil.SetupTestStore(t)
	const proj = "proj-acyclic"

	a := testutil.SeedEntity(t, store, proj, graph.KindFile, "src.a", "src/a.py")
	b := testutil.SeedEntity(t, store, proj, graph.KindFile, "src.b", "src/b.py")
	testutil.SeedRelationship(t, store, proj, graph.RelationImports, a, b)

	assert.Empty(t, findingsOfKind(analyze(t, store, proj), analysis.FindingDependencyCycle))
}

func TestTypeLevelCycleThroughCalls(t *testing.T) {
	store := testutil.SetupTestStore(t)
	const proj = "proj-type-cycle"

	fileA := testutil.SeedEntity(t, store, proj, graph.KindFile, "src.a", "src/a.py")
	fileB := testutil.SeedEntity(t, store, proj, graph.KindFile, "src.b", "src/b.py")
	classA := testutil.SeedEntity(t, store, proj, graph.KindClass, "src.a.Alpha", "src/a.py")
	classB := testutil.SeedEntity(t, store, proj, graph.KindClass, "src.b.Beta", "src/b.py")
	mA := testutil.SeedEntity(t, store, proj, graph.KindMethod, "src.a.Alpha.go_", "src/a.py")
	mB := testutil.SeedEntity(t, store, proj, graph.KindMethod, "src.b.Beta.back", "src/b.py")

	testutil.SeedRelationship(t, store, proj, graph.RelationContains, fileA, classA)
	testutil.SeedRelationship(t, store, proj, graph.RelationContains, fileB, classB)
	testutil.SeedRelationship(t, store, proj, graph.RelationContains, classA, mA)
	testutil.SeedRelationship(t, store, proj, graph.RelationContains, classB, mB)
	testutil.SeedRelationship(t, store, proj, graph.RelationCalls, mA, mB)
	testutil.SeedRelationship(t, store, proj, graph.RelationCalls, mB, mA)

	cycles := findingsOfKind(analyze(t, store, proj), analysis.FindingDependencyCycle)

	var levels []string
	for _, f := range cycles {
		levels = append(levels, f.Summary[:strings.Index(f.Summary, "-level")])
	}
	assert.ElementsMatch(t, []string{"file", "type"}, levels,
		"mutual calls surface as both a file cycle and a type cycle")
}

func TestDetectUnusedTogglesWithCallEdge(t *testing.T) {
	store := testutil.SetupTestStore(t)
	const proj = "proj-unused"

	// "main" is an entry point name and stays exempt.
	caller := testutil.SeedEntity(t, store, proj, graph.KindFunction, "app.main", "app.py")
	helper := testutil.SeedEntity(t, store, proj, graph.KindFunction, "util.helper", "util.py")

	unused := findingsOfKind(analyze(t, store, proj), analysis.FindingUnusedElement)
	require.Len(t, unused, 1)
	finding := unused[0]
	assert.Contains(t, finding.Summary, "util.helper")
	assert.Equal(t, analysis.SeverityInfo, finding.Severity)
	assert.Equal(t, analysis.ConfidenceMedium, finding.Confidence)
	assert.Contains(t, finding.Caveat, "Reflection")

	testutil.SeedRelationship(t, store, proj, graph.RelationCalls, caller, helper)

	assert.Empty(t, findingsOfKind(analyze(t, store, proj), analysis.FindingUnusedElement),
		"a resolved incoming call removes the finding")
}

func TestUnusedSkipsDunderAndEntryPoints(t *testing.T) {
	store := testutil.SetupTestStore(t)
	const proj = "proj-unused-skip"

	testutil.SeedEntity(t, store, proj, graph.KindFunction, "app.main", "app.py")
	testutil.SeedEntity(t, store, proj, graph.KindMethod, "app.Thing.__repr__", "app.py")

	assert.Empty(t, findingsOfKind(analyze(t, store, proj), analysis.FindingUnusedElement))
}

func TestUnusedSkipsAccessorsAndTestSuites(t *testing.T) {
	store := testutil.SetupTestStore(t)
	const proj = "proj-unused-idioms"

	testutil.SeedEntity(t, store, proj, graph.KindMethod, "app.Order.getTotal", "app.py")
	testutil.SeedEntity(t, store, proj, graph.KindMethod, "app.Order.setTotal", "app.py")
	testutil.SeedEntity(t, store, proj, graph.KindMethod, "app.Order.isPaid", "app.py")
	testutil.SeedEntity(t, store, proj, graph.KindClass, "app.OrderTest", "app_test.py")
	testutil.SeedEntity(t, store, proj, graph.KindFunction, "app.test_totals", "app_test.py")
	testutil.SeedEntity(t, store, proj, graph.KindFunction, "app.orphan", "app.py")

	unused := findingsOfKind(analyze(t, store, proj), analysis.FindingUnusedElement)
	require.Len(t, unused, 1, "accessors and test code are exempt")
	assert.Contains(t, unused[0].Summary, "app.orphan")
}

func TestUnusedTypeSavedByConstructorCall(t *testing.T) {
	store := testutil.SetupTestStore(t)
	const proj = "proj-unused-ctor"

	class := testutil.SeedEntity(t, store, proj, graph.KindClass, "app.Service", "app.py")
	ctor := testutil.SeedEntity(t, store, proj, graph.KindConstructor, "app.Service.__init__", "app.py")
	caller := testutil.SeedEntity(t, store, proj, graph.KindFunction, "app.main", "app.py")
	testutil.SeedRelationship(t, store, proj, graph.RelationContains, class, ctor)
	testutil.SeedRelationship(t, store, proj, graph.RelationCalls, caller, ctor)

	unused := findingsOfKind(analyze(t, store, proj), analysis.FindingUnusedElement)
	for _, f := range unused {
		assert.NotContains(t, f.Summary, "app.Service ", "constructed type counts as used")
	}
}
