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

package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/ckg/pkg/extraction"
	"github.com/kraklabs/ckg/pkg/graph"
	"github.com/kraklabs/ckg/pkg/graphstore"
)

// unusedCaveat is attached to every unused-element finding. The static
// graph cannot see reflection, dependency injection, framework dispatch
// or dynamic imports, and cross-file resolution is intentionally
// conservative, so absence of edges is evidence, not proof.
const unusedCaveat = "No resolved reference was found in the indexed graph. " +
	"Reflection, dependency injection, framework callbacks, callers outside " +
	"this repository and references the resolver declined to guess at are " +
	"invisible here; verify before deleting."

// entryPointNames are names that are invoked by runtimes or conventions
// rather than by in-project references, per language.
var entryPointNames = map[string]map[string]bool{
	extraction.LangJava: {
		"main": true, "toString": true, "equals": true, "hashCode": true,
		"values": true, "valueOf": true, "run": true, "close": true,
	},
	extraction.LangPython: {
		"main": true,
	},
	extraction.LangTypeScript: {
		"main": true, "render": true, "default": true,
	},
	extraction.LangJavaScript: {
		"main": true, "render": true, "default": true,
	},
}

// detectUnused reports exported callable and type-like entities with no
// resolved incoming reference other than their containment edge.
func (a *Analyzer) detectUnused(view *projectView) []Finding {
	// Constructors are reached through their type; index them per type so
	// a constructor call marks the type as used.
	ctorsOf := make(map[string][]string)
	for key, e := range view.entities {
		if e.Kind == graph.KindConstructor {
			if parent := view.parent[key]; parent != "" {
				ctorsOf[parent] = append(ctorsOf[parent], key)
			}
		}
	}

	var candidates []*graphstore.StoredEntity
	for key, e := range view.entities {
		if !unusedCandidate(e) {
			continue
		}
		if entryPointNames[e.Language][e.DisplayName] {
			continue
		}
		if isDunder(e.DisplayName) {
			continue
		}
		if e.Kind == graph.KindMethod && isAccessor(e.DisplayName) {
			continue
		}
		if isTestSuite(e) {
			continue
		}
		if view.referenced(key) {
			continue
		}
		used := false
		for _, ctor := range ctorsOf[key] {
			if view.referenced(ctor) {
				used = true
				break
			}
		}
		if used {
			continue
		}
		candidates = append(candidates, e)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FilePath != candidates[j].FilePath {
			return candidates[i].FilePath < candidates[j].FilePath
		}
		return candidates[i].QualifiedName < candidates[j].QualifiedName
	})

	findings := make([]Finding, 0, len(candidates))
	for _, e := range candidates {
		findings = append(findings, Finding{
			Kind:     FindingUnusedElement,
			Severity: SeverityInfo,
			Summary: fmt.Sprintf("%s %s appears unused (%s:%d)",
				e.Kind, e.QualifiedName, e.FilePath, e.StartLine),
			Locations: []Location{{
				FilePath:      e.FilePath,
				StartLine:     e.StartLine,
				QualifiedName: e.QualifiedName,
			}},
			Recommendation: "If this element is not part of an external API, consider removing it or narrowing its visibility.",
			Confidence:     ConfidenceMedium,
			Caveat:         unusedCaveat,
		})
	}
	return findings
}

// referenced reports whether a node has any resolved incoming edge
// besides containment.
func (v *projectView) referenced(key string) bool {
	for kind, count := range v.incoming[key] {
		if kind != string(graph.RelationContains) && count > 0 {
			return true
		}
	}
	return false
}

// unusedCandidate limits the analysis to exported elements a project
// author could plausibly delete.
func unusedCandidate(e *graphstore.StoredEntity) bool {
	switch e.Kind {
	case graph.KindClass, graph.KindInterface, graph.KindEnum,
		graph.KindMethod, graph.KindFunction:
	default:
		return false
	}
	switch e.Visibility {
	case graph.VisibilityPublic, graph.VisibilityProtected, graph.VisibilityUnspecified:
		return true
	}
	return false
}

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// isAccessor matches the getX/setX/isX property idiom. Accessor pairs
// are often kept for API symmetry or framework binding even when one
// side has no in-project caller.
func isAccessor(name string) bool {
	for _, prefix := range []string{"get", "set", "is"} {
		if len(name) > len(prefix) && strings.HasPrefix(name, prefix) {
			if c := name[len(prefix)]; c >= 'A' && c <= 'Z' {
				return true
			}
		}
	}
	return false
}

// isTestSuite matches test-class and test-function naming conventions.
// Test code is invoked by a runner, never by in-project references.
func isTestSuite(e *graphstore.StoredEntity) bool {
	name := e.DisplayName
	switch e.Kind {
	case graph.KindClass:
		return strings.HasSuffix(name, "Test") ||
			strings.HasSuffix(name, "Tests") ||
			strings.HasSuffix(name, "Spec")
	case graph.KindMethod, graph.KindFunction:
		if strings.HasPrefix(name, "test_") {
			return true
		}
		return len(name) > 4 && strings.HasPrefix(name, "test") &&
			name[4] >= 'A' && name[4] <= 'Z'
	}
	return false
}
