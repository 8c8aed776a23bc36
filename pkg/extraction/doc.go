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

// Package extraction turns source trees into language-neutral parse
// results.
//
// Each supported language implements the Extractor interface. Java,
// Python and TypeScript use Tree-sitter grammars; JavaScript uses a
// lightweight pattern scanner. Extractors differ in technique but emit
// the same graph vocabulary, so everything downstream of the Coordinator
// is language-agnostic.
//
// Reference resolution happens in two stages. While a file is parsed, a
// fileCollector resolves references against names defined in that same
// file. After the whole pass is aggregated, the coordinator's resolver
// links imports to files and resolves the remaining references through
// the import graph. References that survive both stages stay unresolved
// and are reported, never silently dropped and never turned into
// dangling edges.
package extraction
