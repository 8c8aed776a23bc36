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

// Package graph defines the shared data model of the Code Knowledge Graph.
//
// Every other CKG package depends on the contracts in this package: code
// entities (files, classes, functions, ...), relationships between them
// (CONTAINS, CALLS, EXTENDS, IMPLEMENTS, IMPORTS), and the aggregate result
// types exchanged between the parsing coordinator and the graph builder.
//
// # Identity
//
// Entity identity is the tuple (project_id, file_path, qualified_name).
// Within a single parse pass, before a project id is known, entities are
// addressed by a local key derived from (file_path, qualified_name); the
// graph builder later maps local keys to project-scoped keys. Both key
// forms are deterministic, so re-parsing the same file can never produce a
// duplicate node.
//
// Relationship identity is (source_key, target_key, kind). Repeated call
// sites between the same pair collapse into one edge with an occurrence
// count; the graph is never a multigraph.
//
// Entities and relationships are immutable value records: they are produced
// once per file-parse event and never mutated afterwards.
package graph
