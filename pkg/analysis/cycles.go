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

	"github.com/kraklabs/ckg/pkg/graph"
)

// detectCycles finds dependency cycles at two granularities: between
// files (imports plus any cross-file reference) and between types
// (inheritance and calls mapped to the owning type).
func (a *Analyzer) detectCycles(view *projectView) []Finding {
	var findings []Finding

	fileEdges := make(map[string]map[string]bool)
	typeEdges := make(map[string]map[string]bool)
	addEdge := func(edges map[string]map[string]bool, from, to string) {
		if from == "" || to == "" || from == to {
			return
		}
		if edges[from] == nil {
			edges[from] = make(map[string]bool)
		}
		edges[from][to] = true
	}

	for _, rel := range view.rels {
		switch rel.Kind {
		case graph.RelationContains:
			continue
		case graph.RelationImports:
			addEdge(fileEdges, rel.SourceKey, rel.TargetKey)
		default:
			addEdge(fileEdges, view.containingFile(rel.SourceKey), view.containingFile(rel.TargetKey))
			addEdge(typeEdges, view.containingType(rel.SourceKey), view.containingType(rel.TargetKey))
		}
	}

	for _, scc := range stronglyConnected(fileEdges) {
		findings = append(findings, a.cycleFinding(view, scc, fileEdges, "file"))
	}
	for _, scc := range stronglyConnected(typeEdges) {
		findings = append(findings, a.cycleFinding(view, scc, typeEdges, "type"))
	}
	return findings
}

// cycleFinding builds one finding from a strongly connected component.
func (a *Analyzer) cycleFinding(view *projectView, scc []string, edges map[string]map[string]bool, level string) Finding {
	sort.Strings(scc)
	cycle := shortestCycle(scc, edges)

	var names []string
	var locations []Location
	boundaries := make(map[string]bool)
	for _, key := range cycle {
		e := view.entities[key]
		if e == nil {
			continue
		}
		name := e.QualifiedName
		if level == "file" {
			name = e.FilePath
		}
		names = append(names, name)
		locations = append(locations, Location{
			FilePath:      e.FilePath,
			StartLine:     e.StartLine,
			QualifiedName: e.QualifiedName,
		})
		boundaries[topLevelDir(e.FilePath)] = true
	}

	severity := SeverityWarning
	if len(cycle) >= 4 || len(boundaries) > 1 {
		severity = SeverityCritical
	}

	return Finding{
		Kind:     FindingDependencyCycle,
		Severity: severity,
		Summary: fmt.Sprintf("%s-level dependency cycle: %s",
			level, strings.Join(names, " -> ")),
		Locations:      locations,
		Recommendation: "Break the cycle by extracting the shared pieces into a dependency both sides can use, or by inverting one of the references.",
		Confidence:     ConfidenceHigh,
		Caveat:         "Cycle membership reflects statically resolved references only.",
	}
}

// stronglyConnected runs Tarjan's algorithm and returns the components
// that form cycles: size greater than one, or a single node with a
// self-edge.
func stronglyConnected(edges map[string]map[string]bool) [][]string {
	nodes := make([]string, 0, len(edges))
	seen := make(map[string]bool)
	for from, tos := range edges {
		if !seen[from] {
			seen[from] = true
			nodes = append(nodes, from)
		}
		for to := range tos {
			if !seen[to] {
				seen[to] = true
				nodes = append(nodes, to)
			}
		}
	}
	sort.Strings(nodes)

	index := make(map[string]int, len(nodes))
	lowlink := make(map[string]int, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	var stack []string
	next := 0
	var components [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		var targets []string
		for to := range edges[v] {
			targets = append(targets, to)
		}
		sort.Strings(targets)
		for _, w := range targets {
			if _, visited := index[w]; !visited {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && index[w] < lowlink[v] {
				lowlink[v] = index[w]
			}
		}

		if lowlink[v] == index[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 || edges[scc[0]][scc[0]] {
				components = append(components, scc)
			}
		}
	}

	for _, v := range nodes {
		if _, visited := index[v]; !visited {
			strongconnect(v)
		}
	}
	return components
}

// shortestCycle finds a minimal cycle through the component's first node
// using BFS restricted to component members. Falls back to the sorted
// component when the search fails.
func shortestCycle(scc []string, edges map[string]map[string]bool) []string {
	if len(scc) == 1 {
		return scc
	}
	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}
	start := scc[0]

	prev := make(map[string]string)
	queue := []string{start}
	visited := map[string]bool{start: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		var targets []string
		for to := range edges[cur] {
			targets = append(targets, to)
		}
		sort.Strings(targets)
		for _, to := range targets {
			if !member[to] {
				continue
			}
			if to == start && cur != start {
				path := []string{start}
				for at := cur; at != start; at = prev[at] {
					path = append(path, at)
				}
				// prev chains backward, reverse into forward order
				for i, j := 1, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			if !visited[to] {
				visited[to] = true
				prev[to] = cur
				queue = append(queue, to)
			}
		}
	}
	return scc
}
