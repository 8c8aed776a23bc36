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

import "sort"

// ParseFailure records one file that could not be parsed. Failures are
// data, not errors: a bad file never aborts a batch.
type ParseFailure struct {
	FilePath string `json:"file_path"`
	Language string `json:"language"`
	Reason   string `json:"reason"`
}

// ParseResult is the output of parsing a single source file. Extractors
// never fail on malformed input; a syntax problem degrades to an entry in
// Failures and the file contributes no entities.
type ParseResult struct {
	Entities      []CodeEntity
	Relationships []CodeRelationship
	Failures      []ParseFailure
}

// LanguageStats aggregates per-language counters for one coordinator run.
type LanguageStats struct {
	FilesDiscovered int `json:"files_discovered"`
	FilesParsed     int `json:"files_parsed"`
	FilesFailed     int `json:"files_failed"`
	Entities        int `json:"entities"`
	Relationships   int `json:"relationships"`
}

// CoordinatorResult is the aggregate of one full parsing pass over a source
// root. It is the unit handed to the graph builder.
//
// The entity and relationship slices are sets: their contents are
// independent of file-task completion order (the coordinator sorts them
// into a canonical order before returning).
type CoordinatorResult struct {
	SourceRoot       string                   `json:"source_root"`
	Entities         []CodeEntity             `json:"entities"`
	Relationships    []CodeRelationship       `json:"relationships"`
	Stats            map[string]LanguageStats `json:"per_language_stats"`
	FailedFiles      []ParseFailure           `json:"failed_files"`
	SkippedLanguages []string                 `json:"skipped_languages,omitempty"`
}

// EntityByLocalKey returns an index from local key to entity. The index is
// rebuilt on each call; callers that need repeated lookups should hold on
// to it.
func (r *CoordinatorResult) EntityByLocalKey() map[string]*CodeEntity {
	index := make(map[string]*CodeEntity, len(r.Entities))
	for i := range r.Entities {
		index[r.Entities[i].LocalKey()] = &r.Entities[i]
	}
	return index
}

// Canonicalize sorts entities, relationships and failure lists into a
// stable order so that two runs over the same inputs compare equal
// regardless of worker scheduling.
func (r *CoordinatorResult) Canonicalize() {
	sort.Slice(r.Entities, func(i, j int) bool {
		a, b := &r.Entities[i], &r.Entities[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.QualifiedName != b.QualifiedName {
			return a.QualifiedName < b.QualifiedName
		}
		return a.Kind < b.Kind
	})
	sort.Slice(r.Relationships, func(i, j int) bool {
		a, b := &r.Relationships[i], &r.Relationships[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.SourceKey != b.SourceKey {
			return a.SourceKey < b.SourceKey
		}
		if a.TargetKey != b.TargetKey {
			return a.TargetKey < b.TargetKey
		}
		return a.TargetName < b.TargetName
	})
	sort.Slice(r.FailedFiles, func(i, j int) bool {
		return r.FailedFiles[i].FilePath < r.FailedFiles[j].FilePath
	})
	sort.Strings(r.SkippedLanguages)
}
