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

package graph

// RelationKind classifies an edge in the code knowledge graph.
type RelationKind string

const (
	// RelationContains links a container to a member: Project→File,
	// File→top-level entity, Class→member. Every non-Project entity has
	// exactly one incoming CONTAINS edge, so the CONTAINS subgraph is a
	// forest.
	RelationContains RelationKind = "contains"

	// RelationCalls links a callable to the callable it invokes.
	// Instantiation is modelled as a CALLS edge targeting a constructor.
	RelationCalls RelationKind = "calls"

	// RelationExtends links a type to its superclass.
	RelationExtends RelationKind = "extends"

	// RelationImplements links a type to an interface it implements.
	RelationImplements RelationKind = "implements"

	// RelationImports links a file to a file or module it imports.
	RelationImports RelationKind = "imports"
)

// CodeRelationship is one edge of the code knowledge graph.
//
// Within a parse pass, SourceKey and TargetKey are local entity keys (see
// LocalKey). Edges whose target could not be matched to an entity in the
// same pass carry Resolved=false and an empty TargetKey; TargetName then
// holds the textual name the source referred to. Unresolved edges are
// counted by the graph builder but never materialized in the store.
type CodeRelationship struct {
	Kind      RelationKind `json:"kind"`
	SourceKey string       `json:"source_key"`
	TargetKey string       `json:"target_key,omitempty"`

	// TargetName is the referenced name as written in source. It is the
	// resolution input for the coordinator's name-table pass and the only
	// target information available on unresolved edges.
	TargetName string `json:"target_name,omitempty"`

	// SiteLine is the line of the referencing expression, 0 when unknown.
	SiteLine int `json:"site_line,omitempty"`

	Resolved bool `json:"resolved"`

	// Occurrences counts collapsed duplicate edges between the same
	// (source, target, kind) triple. Always >= 1.
	Occurrences int `json:"occurrences"`
}

// DedupeRelationships collapses duplicate (source, target, kind) edges into
// single edges with summed occurrence counts. The earliest site line wins.
// Unresolved edges are deduplicated on (source, target name, kind) instead,
// so repeated unresolved references to one name count once per pair.
func DedupeRelationships(rels []CodeRelationship) []CodeRelationship {
	type edgeID struct {
		kind   RelationKind
		source string
		target string
	}
	index := make(map[edgeID]int, len(rels))
	out := make([]CodeRelationship, 0, len(rels))

	for _, rel := range rels {
		if rel.Occurrences < 1 {
			rel.Occurrences = 1
		}
		target := rel.TargetKey
		if !rel.Resolved {
			target = "?" + rel.TargetName
		}
		id := edgeID{kind: rel.Kind, source: rel.SourceKey, target: target}
		if at, ok := index[id]; ok {
			out[at].Occurrences += rel.Occurrences
			if rel.SiteLine > 0 && (out[at].SiteLine == 0 || rel.SiteLine < out[at].SiteLine) {
				out[at].SiteLine = rel.SiteLine
			}
			continue
		}
		index[id] = len(out)
		out = append(out, rel)
	}
	return out
}
