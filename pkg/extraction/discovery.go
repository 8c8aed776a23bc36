// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extraction

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultExcludedDirs are directory names skipped during discovery in every
// language: dependency trees, build output and VCS metadata.
var defaultExcludedDirs = map[string]bool{
	".git":             true,
	".hg":              true,
	".svn":             true,
	"node_modules":     true,
	"vendor":           true,
	"bower_components": true,
	"build":            true,
	"dist":             true,
	"out":              true,
	"target":           true,
	"bin":              true,
	"obj":              true,
	"__pycache__":      true,
	".venv":            true,
	"venv":             true,
	".tox":             true,
	".mypy_cache":      true,
	".idea":            true,
	".vscode":          true,
	"coverage":         true,
}

// discoverMaxFileSize caps how large a file discovery will hand to a
// parser. Oversized files are skipped rather than parsed partially.
const discoverMaxFileSize = 2 << 20 // 2 MiB

// discoverSourceFiles walks root and returns files whose extension is in
// exts, excluding build/vendor directories and anything matched by the
// repository's top-level .gitignore. Returned paths are relative to root
// and slash-separated.
func discoverSourceFiles(root, language string, exts []string) ([]SourceFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root is not a directory: %s", absRoot)
	}

	ignore := loadGitignore(absRoot)

	extSet := make(map[string]bool, len(exts))
	for _, ext := range exts {
		extSet[ext] = true
	}

	var files []SourceFile
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Permission problems on a subtree skip the subtree, not the run.
			return nil
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if defaultExcludedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if ignore != nil && ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !extSet[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}

		fi, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if fi.Size() > discoverMaxFileSize {
			return nil
		}

		files = append(files, SourceFile{
			Path:     rel,
			FullPath: path,
			Size:     fi.Size(),
			Language: language,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk source root: %w", walkErr)
	}
	return files, nil
}

// loadGitignore compiles the root .gitignore when present. A missing or
// unreadable file disables gitignore filtering.
func loadGitignore(root string) *gitignore.GitIgnore {
	ign, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ign
}
