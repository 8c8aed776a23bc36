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

// EntityKind classifies a node in the code knowledge graph.
type EntityKind string

// Entity kinds. The set is closed: extractors must map every language
// construct onto one of these or drop it.
const (
	KindProject     EntityKind = "project"
	KindFile        EntityKind = "file"
	KindPackage     EntityKind = "package"
	KindClass       EntityKind = "class"
	KindInterface   EntityKind = "interface"
	KindEnum        EntityKind = "enum"
	KindMethod      EntityKind = "method"
	KindConstructor EntityKind = "constructor"
	KindFunction    EntityKind = "function"
	KindField       EntityKind = "field"
	KindVariable    EntityKind = "variable"
)

// IsCallable reports whether entities of this kind can be the target of a
// CALLS edge.
func (k EntityKind) IsCallable() bool {
	switch k {
	case KindMethod, KindConstructor, KindFunction:
		return true
	}
	return false
}

// IsTypeLike reports whether entities of this kind can participate in
// EXTENDS/IMPLEMENTS edges.
func (k EntityKind) IsTypeLike() bool {
	switch k {
	case KindClass, KindInterface, KindEnum:
		return true
	}
	return false
}

// Visibility is the normalized access level of an entity. Each extractor
// infers it from its language's own convention (explicit modifiers in Java,
// underscore prefixes in Python, export/private keywords in TS/JS).
type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityPrivate     Visibility = "private"
	VisibilityProtected   Visibility = "protected"
	VisibilityInternal    Visibility = "internal"
	VisibilityUnspecified Visibility = "unspecified"
)

// CodeEntity is one node of the code knowledge graph.
//
// Entities are immutable value records. FilePath is always relative to the
// source root and slash-separated; QualifiedName is the dotted path from
// the file's module qualifier down to the entity (e.g.
// "com.acme.billing.Invoice.total").
type CodeEntity struct {
	Kind          EntityKind `json:"kind"`
	QualifiedName string     `json:"qualified_name"`
	DisplayName   string     `json:"display_name"`
	FilePath      string     `json:"file_path"`
	StartLine     int        `json:"start_line"`
	EndLine       int        `json:"end_line"`
	Visibility    Visibility `json:"visibility"`
	Language      string     `json:"language"`

	// Signature is the declared signature for callables, empty otherwise.
	Signature string `json:"signature,omitempty"`
}

// LocalKey returns the pass-local identity key of the entity, derived from
// (file_path, qualified_name). See EntityKey for the project-scoped form.
func (e *CodeEntity) LocalKey() string {
	return LocalKey(e.FilePath, e.QualifiedName)
}

// Exported reports whether the entity is visible outside its declaring
// scope. Unspecified visibility counts as exported so that analyses err on
// the side of not flagging entities whose visibility the extractor could
// not determine.
func (e *CodeEntity) Exported() bool {
	switch e.Visibility {
	case VisibilityPrivate, VisibilityInternal:
		return false
	}
	return true
}
