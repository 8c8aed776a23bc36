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
	"log/slog"
	"sort"
	"sync"

	"github.com/kraklabs/ckg/pkg/graph"
)

// Supported language identifiers. These are the strings callers pass to
// CoordinateParsing and the keys of the extractor registry.
const (
	LangJava       = "java"
	LangPython     = "python"
	LangTypeScript = "typescript"
	LangJavaScript = "javascript"
)

// SourceFile identifies one candidate file discovered under a source root.
type SourceFile struct {
	// Path is the slash-separated path relative to the source root. It is
	// the path recorded on every entity extracted from the file.
	Path string

	// FullPath is the absolute filesystem path used for reading.
	FullPath string

	// Size in bytes, as reported by discovery.
	Size int64

	// Language the file was discovered for.
	Language string
}

// Extractor turns one source file into entities and relationships.
//
// Implementations are stateless across files and safe for concurrent use:
// the coordinator calls ParseFile from multiple workers at once. An
// extractor may use any technique (full-grammar parsing, pattern matching)
// as long as it honors the ParseResult contract: malformed input degrades
// to a recorded ParseFailure, never an error return; the error return is
// reserved for environmental problems such as an unreadable file.
type Extractor interface {
	// Language returns the registry key this extractor serves.
	Language() string

	// ParseFile parses one source file into entities and relationships.
	ParseFile(file SourceFile) (*graph.ParseResult, error)

	// FindSourceFiles discovers candidate files for this extractor's
	// language under root, filtering by extension and common build/vendor
	// excludes.
	FindSourceFiles(root string) ([]SourceFile, error)
}

// Registry maps language identifiers to extractors. Adding a language means
// registering a new Extractor; the coordinator never changes.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register adds an extractor, replacing any previous one for the same
// language.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Language()] = e
}

// Lookup returns the extractor registered for the language, if any.
func (r *Registry) Lookup(language string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[language]
	return e, ok
}

// Languages returns the registered language identifiers in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.extractors))
	for lang := range r.extractors {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// DefaultRegistry returns a registry with all built-in extractors: grammar
// based extractors for Java, Python and TypeScript, and the pattern-based
// JavaScript extractor.
func DefaultRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := NewRegistry()
	r.Register(NewJavaExtractor(logger))
	r.Register(NewPythonExtractor(logger))
	r.Register(NewTypeScriptExtractor(logger))
	r.Register(NewJavaScriptExtractor(logger))
	return r
}
