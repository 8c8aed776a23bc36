// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package extraction

import (
	"path/filepath"
	"testing"

	"github.com/kraklabs/ckg/pkg/graph"
)

// testFile builds the SourceFile for a fixture under testdata.
func testFile(t *testing.T, language, rel string) SourceFile {
	t.Helper()
	full, err := filepath.Abs(filepath.Join("testdata", rel))
	if err != nil {
		t.Fatalf("abs fixture path: %v", err)
	}
	return SourceFile{
		Path:     filepath.Base(rel),
		FullPath: full,
		Language: language,
	}
}

// entityByQName finds an extracted entity by qualified name.
func entityByQName(pr *graph.ParseResult, qname string) *graph.CodeEntity {
	for i := range pr.Entities {
		if pr.Entities[i].QualifiedName == qname {
			return &pr.Entities[i]
		}
	}
	return nil
}

// requireEntity asserts an entity exists with the given kind.
func requireEntity(t *testing.T, pr *graph.ParseResult, kind graph.EntityKind, qname string) *graph.CodeEntity {
	t.Helper()
	e := entityByQName(pr, qname)
	if e == nil {
		t.Fatalf("entity %s not extracted", qname)
	}
	if e.Kind != kind {
		t.Fatalf("entity %s: kind %s, want %s", qname, e.Kind, kind)
	}
	return e
}

// edgesFrom returns relationships of one kind originating at sourceKey.
func edgesFrom(pr *graph.ParseResult, kind graph.RelationKind, sourceKey string) []graph.CodeRelationship {
	var out []graph.CodeRelationship
	for _, rel := range pr.Relationships {
		if rel.Kind == kind && rel.SourceKey == sourceKey {
			out = append(out, rel)
		}
	}
	return out
}

// resolvedEdge finds a resolved edge between two entities.
func resolvedEdge(pr *graph.ParseResult, kind graph.RelationKind, source, target *graph.CodeEntity) *graph.CodeRelationship {
	for i := range pr.Relationships {
		rel := &pr.Relationships[i]
		if rel.Kind == kind && rel.Resolved &&
			rel.SourceKey == source.LocalKey() && rel.TargetKey == target.LocalKey() {
			return rel
		}
	}
	return nil
}

// unresolvedNames collects the target names of unresolved edges of a kind.
func unresolvedNames(pr *graph.ParseResult, kind graph.RelationKind) map[string]bool {
	out := make(map[string]bool)
	for _, rel := range pr.Relationships {
		if rel.Kind == kind && !rel.Resolved {
			out[rel.TargetName] = true
		}
	}
	return out
}
