// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package extraction

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ckg/pkg/graph"
)

func testCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCoordinator(DefaultRegistry(logger), CoordinatorConfig{Workers: 2}, logger)
}

func resultEntity(result *graph.CoordinatorResult, qname string) *graph.CodeEntity {
	for i := range result.Entities {
		if result.Entities[i].QualifiedName == qname {
			return &result.Entities[i]
		}
	}
	return nil
}

func TestCoordinatePassResolvesAcrossFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "util.py", "def helper(n):\n    return n + 1\n")
	writeTestFile(t, root, "main.py", "import util\n\n\ndef run():\n    return util.helper(1)\n")

	result, err := testCoordinator(t).CoordinateParsing(context.Background(), root, []string{LangPython})
	require.NoError(t, err)

	stats := result.Stats[LangPython]
	assert.Equal(t, 2, stats.FilesDiscovered)
	assert.Equal(t, 2, stats.FilesParsed)
	assert.Zero(t, stats.FilesFailed)
	assert.Empty(t, result.FailedFiles)

	mainFile := resultEntity(result, "main.py")
	utilFile := resultEntity(result, "util.py")
	run := resultEntity(result, "main.run")
	helper := resultEntity(result, "util.helper")
	require.NotNil(t, mainFile)
	require.NotNil(t, utilFile)
	require.NotNil(t, run)
	require.NotNil(t, helper)

	var importResolved, callResolved bool
	for _, rel := range result.Relationships {
		if rel.Kind == graph.RelationImports &&
			rel.SourceKey == mainFile.LocalKey() && rel.TargetKey == utilFile.LocalKey() && rel.Resolved {
			importResolved = true
		}
		if rel.Kind == graph.RelationCalls &&
			rel.SourceKey == run.LocalKey() && rel.TargetKey == helper.LocalKey() && rel.Resolved {
			callResolved = true
		}
	}
	assert.True(t, importResolved, "import binds to the defining file")
	assert.True(t, callResolved, "call resolves through the import graph")
}

func TestCoordinateAggregationOrderIndependent(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "util.py", "def helper(n):\n    return n + 1\n")
	writeTestFile(t, root, "main.py", "import util\n\n\ndef run():\n    return util.helper(1)\n")
	writeTestFile(t, root, "extra.py", "import util\n\n\ndef more():\n    return util.helper(2)\n")
	writeTestFile(t, root, "standalone.py", "VALUE = 3\n\n\ndef value():\n    return VALUE\n")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	run := func(workers int) *graph.CoordinatorResult {
		co := NewCoordinator(DefaultRegistry(logger), CoordinatorConfig{Workers: workers}, logger)
		result, err := co.CoordinateParsing(context.Background(), root, []string{LangPython})
		require.NoError(t, err)
		return result
	}

	serial := run(1)
	parallel := run(4)

	assert.Equal(t, serial.Entities, parallel.Entities,
		"aggregated entities do not depend on task completion order")
	assert.Equal(t, serial.Relationships, parallel.Relationships,
		"aggregated relationships do not depend on task completion order")
	assert.Equal(t, serial.Stats, parallel.Stats)
}

func TestCoordinateReportsProgress(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.py", "x = 1\n")
	writeTestFile(t, root, "b.py", "y = 2\n")
	writeTestFile(t, root, "c.py", "z = 3\n")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var dones []int
	var totals []int
	co := NewCoordinator(DefaultRegistry(logger), CoordinatorConfig{
		Workers: 2,
		OnFileParsed: func(done, total int) {
			dones = append(dones, done)
			totals = append(totals, total)
		},
	}, logger)

	_, err := co.CoordinateParsing(context.Background(), root, []string{LangPython})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, dones)
	assert.Equal(t, []int{3, 3, 3}, totals)
}

func TestCoordinateRecordsFailedFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "good.py", "def ok():\n    return 1\n")
	writeTestFile(t, root, "broken.py", "def broken(:\n")

	result, err := testCoordinator(t).CoordinateParsing(context.Background(), root, []string{LangPython})
	require.NoError(t, err, "file failures never abort the pass")

	stats := result.Stats[LangPython]
	assert.Equal(t, 2, stats.FilesDiscovered)
	assert.Equal(t, 1, stats.FilesParsed)
	assert.Equal(t, 1, stats.FilesFailed)
	require.Len(t, result.FailedFiles, 1)
	assert.Equal(t, "broken.py", result.FailedFiles[0].FilePath)
	assert.NotNil(t, resultEntity(result, "good.ok"))
}

func TestCoordinateSkipsUnknownLanguage(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "app.py", "x = 1\n")

	result, err := testCoordinator(t).CoordinateParsing(context.Background(), root, []string{LangPython, "cobol"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cobol"}, result.SkippedLanguages)
	assert.Contains(t, result.Stats, LangPython)
}

func TestCoordinateOnlyUnknownLanguagesFails(t *testing.T) {
	root := t.TempDir()

	_, err := testCoordinator(t).CoordinateParsing(context.Background(), root, []string{"cobol", "fortran"})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "languages", cfgErr.Op)
}

func TestCoordinateRejectsBadRoot(t *testing.T) {
	_, err := testCoordinator(t).CoordinateParsing(context.Background(), "/nonexistent/source/root", nil)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "source_root", cfgErr.Op)
}

func TestCoordinateHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "app.py", "x = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testCoordinator(t).CoordinateParsing(ctx, root, []string{LangPython})
	assert.ErrorIs(t, err, context.Canceled)
}
