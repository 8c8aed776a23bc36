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

// fileCollector accumulates the entities and relationships of a single
// file parse and enforces the containment invariant: every entity added
// through it receives exactly one incoming CONTAINS edge.
//
// It also performs the intra-file half of call resolution: references
// recorded through addCall/addTypeRef start unresolved and are matched
// against the file's own name table in finish. Whatever stays unresolved
// is left for the coordinator's project-scope pass.
type fileCollector struct {
	fileKey  string
	filePath string
	language string

	entities []graph.CodeEntity
	contains []graph.CodeRelationship
	refs     []graph.CodeRelationship

	// byName maps a simple name to the local keys of entities declared
	// under that name in this file.
	byName map[string][]int // name -> indices into entities
}

// newFileCollector creates a collector seeded with the File entity itself.
func newFileCollector(relPath, language string) *fileCollector {
	path := graph.NormalizePath(relPath)
	file := graph.CodeEntity{
		Kind:          graph.KindFile,
		QualifiedName: path,
		DisplayName:   baseName(path),
		FilePath:      path,
		StartLine:     1,
		Visibility:    graph.VisibilityUnspecified,
		Language:      language,
	}
	return &fileCollector{
		fileKey:  file.LocalKey(),
		filePath: path,
		language: language,
		entities: []graph.CodeEntity{file},
		byName:   make(map[string][]int),
	}
}

// add records an entity contained in parentKey and returns its local key.
// Pass c.fileKey as parent for top-level entities.
func (c *fileCollector) add(parentKey string, e graph.CodeEntity) string {
	e.FilePath = c.filePath
	e.Language = c.language
	if e.Visibility == "" {
		e.Visibility = graph.VisibilityUnspecified
	}
	key := e.LocalKey()

	c.byName[e.DisplayName] = append(c.byName[e.DisplayName], len(c.entities))
	c.entities = append(c.entities, e)

	c.contains = append(c.contains, graph.CodeRelationship{
		Kind:        graph.RelationContains,
		SourceKey:   parentKey,
		TargetKey:   key,
		Resolved:    true,
		Occurrences: 1,
	})
	return key
}

// addCall records a call reference from sourceKey to a callee named name.
// Instantiations are calls whose callee is a class name; finish resolves
// them to the class's constructor when one exists, else to the class.
func (c *fileCollector) addCall(sourceKey, name string, line int) {
	if name == "" {
		return
	}
	c.refs = append(c.refs, graph.CodeRelationship{
		Kind:        graph.RelationCalls,
		SourceKey:   sourceKey,
		TargetName:  name,
		SiteLine:    line,
		Occurrences: 1,
	})
}

// addTypeRef records an EXTENDS or IMPLEMENTS reference to a type name.
func (c *fileCollector) addTypeRef(kind graph.RelationKind, sourceKey, name string, line int) {
	if name == "" {
		return
	}
	c.refs = append(c.refs, graph.CodeRelationship{
		Kind:        kind,
		SourceKey:   sourceKey,
		TargetName:  name,
		SiteLine:    line,
		Occurrences: 1,
	})
}

// addImport records an IMPORTS reference from the File entity to a module
// path. Import targets are never local to the file, so they stay
// unresolved until the coordinator pass.
func (c *fileCollector) addImport(modulePath string, line int) {
	if modulePath == "" {
		return
	}
	c.refs = append(c.refs, graph.CodeRelationship{
		Kind:        graph.RelationImports,
		SourceKey:   c.fileKey,
		TargetName:  modulePath,
		SiteLine:    line,
		Occurrences: 1,
	})
}

// finish resolves intra-file references and returns the parse result.
func (c *fileCollector) finish() *graph.ParseResult {
	for i := range c.refs {
		ref := &c.refs[i]
		if ref.Resolved || ref.Kind == graph.RelationImports {
			continue
		}
		if target, ok := c.resolveName(ref.Kind, ref.TargetName); ok {
			ref.TargetKey = target
			ref.Resolved = true
		}
	}

	rels := make([]graph.CodeRelationship, 0, len(c.contains)+len(c.refs))
	rels = append(rels, c.contains...)
	rels = append(rels, c.refs...)

	return &graph.ParseResult{
		Entities:      c.entities,
		Relationships: graph.DedupeRelationships(rels),
	}
}

// resolveName matches a referenced name against this file's declarations.
// Calls resolve to callables; a call to a type name resolves to that
// type's constructor when one exists, otherwise to the type itself
// (instantiation). EXTENDS/IMPLEMENTS resolve to type-like entities only.
// Ambiguous names (several compatible declarations) stay unresolved.
func (c *fileCollector) resolveName(kind graph.RelationKind, name string) (string, bool) {
	simple := simpleName(name)
	var match *graph.CodeEntity
	for _, idx := range c.byName[simple] {
		e := &c.entities[idx]
		if !compatibleTarget(kind, e.Kind) {
			continue
		}
		if match != nil {
			return "", false // ambiguous within the file
		}
		match = e
	}
	if match == nil {
		return "", false
	}
	if kind == graph.RelationCalls && match.Kind.IsTypeLike() {
		// Instantiation: prefer the declared constructor.
		if ctor := c.constructorOf(match); ctor != nil {
			return ctor.LocalKey(), true
		}
	}
	return match.LocalKey(), true
}

// constructorOf finds the constructor entity declared under a type, if any.
func (c *fileCollector) constructorOf(t *graph.CodeEntity) *graph.CodeEntity {
	prefix := t.QualifiedName + "."
	for i := range c.entities {
		e := &c.entities[i]
		if e.Kind == graph.KindConstructor && strings.HasPrefix(e.QualifiedName, prefix) {
			return e
		}
	}
	return nil
}

// compatibleTarget reports whether an entity kind is a legal target for a
// reference kind.
func compatibleTarget(rel graph.RelationKind, kind graph.EntityKind) bool {
	switch rel {
	case graph.RelationCalls:
		return kind.IsCallable() || kind.IsTypeLike()
	case graph.RelationExtends, graph.RelationImplements:
		return kind.IsTypeLike()
	case graph.RelationImports:
		return kind == graph.KindFile
	}
	return false
}

// simpleName strips any dotted qualifier: "Foo.bar" -> "bar".
func simpleName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// baseName returns the last path segment of a slash path.
func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// moduleQualifier derives the dotted module qualifier of a file from its
// relative path: "src/app/main.py" -> "src.app.main". Used by extractors
// whose language has no in-file package declaration.
func moduleQualifier(relPath string) string {
	path := graph.NormalizePath(relPath)
	if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, "/") {
		path = path[:i]
	}
	return strings.ReplaceAll(path, "/", ".")
}
