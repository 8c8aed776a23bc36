// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package extraction

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func discoveredPaths(files []SourceFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestDiscoverFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "app.py", "x = 1\n")
	writeTestFile(t, root, "src/util.py", "y = 2\n")
	writeTestFile(t, root, "notes.txt", "not code\n")
	writeTestFile(t, root, "script.js", "const a = 1;\n")

	files, err := discoverSourceFiles(root, LangPython, []string{".py"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app.py", "src/util.py"}, discoveredPaths(files))
	for _, f := range files {
		assert.Equal(t, LangPython, f.Language)
		assert.True(t, filepath.IsAbs(f.FullPath))
	}
}

func TestDiscoverSkipsDependencyAndVCSDirs(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "app.py", "x = 1\n")
	writeTestFile(t, root, "node_modules/pkg/index.py", "skip\n")
	writeTestFile(t, root, "vendor/lib.py", "skip\n")
	writeTestFile(t, root, ".git/hooks/fake.py", "skip\n")
	writeTestFile(t, root, ".hidden/module.py", "skip\n")
	writeTestFile(t, root, "__pycache__/app.py", "skip\n")

	files, err := discoverSourceFiles(root, LangPython, []string{".py"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app.py"}, discoveredPaths(files))
}

func TestDiscoverHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, ".gitignore", "generated/\nscratch.py\n")
	writeTestFile(t, root, "app.py", "x = 1\n")
	writeTestFile(t, root, "scratch.py", "skip\n")
	writeTestFile(t, root, "generated/gen.py", "skip\n")

	files, err := discoverSourceFiles(root, LangPython, []string{".py"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app.py"}, discoveredPaths(files))
}

func TestDiscoverRejectsNonDirectoryRoot(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "app.py", "x = 1\n")

	_, err := discoverSourceFiles(filepath.Join(root, "app.py"), LangPython, []string{".py"})
	assert.Error(t, err)

	_, err = discoverSourceFiles(filepath.Join(root, "missing"), LangPython, []string{".py"})
	assert.Error(t, err)
}

func TestDiscoverSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "small.py", "x = 1\n")
	big := make([]byte, discoverMaxFileSize+1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.py"), big, 0o644))

	files, err := discoverSourceFiles(root, LangPython, []string{".py"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"small.py"}, discoveredPaths(files))
}
