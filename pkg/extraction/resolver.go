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
	"strings"

	"github.com/kraklabs/ckg/pkg/graph"
)

// resolver performs the project-scope half of reference resolution after
// all files of a pass have been parsed. It maintains the name table the
// coordinator exposes to extractors conceptually: entities indexed by
// simple name, files indexed by module qualifier, and the import graph
// between files.
//
// Resolution is deliberately conservative: a cross-file reference resolves
// only when the source file imports the defining file and exactly one
// compatible candidate exists there. Everything else stays unresolved and
// is reported in the build counts rather than guessed at.
type resolver struct {
	byLocal map[string]*graph.CodeEntity
	byName  map[string][]*graph.CodeEntity
	files   []*graph.CodeEntity
	modules map[string]string // file path -> module qualifier
	imports map[string]map[string]bool
	ctorOf  map[string]*graph.CodeEntity // type local key -> constructor
}

// newResolver indexes the aggregated entities of a pass.
func newResolver(entities []graph.CodeEntity) *resolver {
	r := &resolver{
		byLocal: make(map[string]*graph.CodeEntity, len(entities)),
		byName:  make(map[string][]*graph.CodeEntity),
		modules: make(map[string]string),
		imports: make(map[string]map[string]bool),
		ctorOf:  make(map[string]*graph.CodeEntity),
	}

	typeByQualified := make(map[string]*graph.CodeEntity)
	for i := range entities {
		e := &entities[i]
		r.byLocal[e.LocalKey()] = e
		r.byName[e.DisplayName] = append(r.byName[e.DisplayName], e)
		switch {
		case e.Kind == graph.KindFile:
			r.files = append(r.files, e)
			r.modules[e.FilePath] = moduleQualifier(e.FilePath)
		case e.Kind.IsTypeLike():
			typeByQualified[e.FilePath+"|"+e.QualifiedName] = e
		}
	}
	for i := range entities {
		e := &entities[i]
		if e.Kind != graph.KindConstructor {
			continue
		}
		qualified := e.QualifiedName
		if dot := strings.LastIndex(qualified, "."); dot >= 0 {
			if t, ok := typeByQualified[e.FilePath+"|"+qualified[:dot]]; ok {
				r.ctorOf[t.LocalKey()] = e
			}
		}
	}
	return r
}

// resolveImports matches IMPORTS references to File entities by module
// qualifier and records the resulting file-to-file import links. Imports
// of external modules stay unresolved.
func (r *resolver) resolveImports(rels []graph.CodeRelationship) int {
	resolved := 0
	for i := range rels {
		rel := &rels[i]
		if rel.Kind != graph.RelationImports || rel.Resolved {
			continue
		}
		source, ok := r.byLocal[rel.SourceKey]
		if !ok {
			continue
		}
		target := r.matchModule(rel.TargetName)
		if target == nil || target.FilePath == source.FilePath {
			continue
		}
		rel.TargetKey = target.LocalKey()
		rel.Resolved = true
		resolved++

		if r.imports[source.FilePath] == nil {
			r.imports[source.FilePath] = make(map[string]bool)
		}
		r.imports[source.FilePath][target.FilePath] = true
	}
	return resolved
}

// resolveReferences attempts to resolve the remaining CALLS/EXTENDS/
// IMPLEMENTS references through the import graph. Call it after
// resolveImports.
func (r *resolver) resolveReferences(rels []graph.CodeRelationship) int {
	resolved := 0
	for i := range rels {
		rel := &rels[i]
		if rel.Resolved || rel.Kind == graph.RelationImports || rel.Kind == graph.RelationContains {
			continue
		}
		source, ok := r.byLocal[rel.SourceKey]
		if !ok {
			continue
		}
		imported := r.imports[source.FilePath]
		if len(imported) == 0 {
			continue
		}

		var match *graph.CodeEntity
		ambiguous := false
		for _, cand := range r.byName[simpleName(rel.TargetName)] {
			if !compatibleTarget(rel.Kind, cand.Kind) {
				continue
			}
			if cand.FilePath == source.FilePath || !imported[cand.FilePath] {
				continue
			}
			if match != nil {
				ambiguous = true
				break
			}
			match = cand
		}
		if match == nil || ambiguous {
			continue
		}

		targetKey := match.LocalKey()
		if rel.Kind == graph.RelationCalls && match.Kind.IsTypeLike() {
			if ctor, ok := r.ctorOf[targetKey]; ok {
				targetKey = ctor.LocalKey()
			}
		}
		rel.TargetKey = targetKey
		rel.Resolved = true
		resolved++
	}
	return resolved
}

// matchModule finds the unique file whose module qualifier ends with the
// normalized import path. "./helpers", "app/helpers" and "com.acme.Helpers"
// all normalize to dotted form before suffix matching.
func (r *resolver) matchModule(importPath string) *graph.CodeEntity {
	normalized := normalizeImportPath(importPath)
	if normalized == "" {
		return nil
	}

	var match *graph.CodeEntity
	for _, file := range r.files {
		module := r.modules[file.FilePath]
		if module != normalized && !strings.HasSuffix(module, "."+normalized) {
			continue
		}
		if match != nil {
			return nil // ambiguous across files
		}
		match = file
	}
	return match
}

// normalizeImportPath converts an import path to dotted module form:
// leading relative markers dropped, slashes to dots, extension stripped.
func normalizeImportPath(path string) string {
	path = strings.TrimSpace(path)
	for strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		path = strings.TrimPrefix(path, "./")
		path = strings.TrimPrefix(path, "../")
	}
	path = strings.Trim(path, "./")
	if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, "/") {
		switch path[i:] {
		case ".js", ".mjs", ".cjs", ".ts", ".tsx", ".jsx", ".py", ".java":
			path = path[:i]
		}
	}
	return strings.ReplaceAll(path, "/", ".")
}
