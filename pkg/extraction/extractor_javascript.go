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
	"regexp"
	"strings"

	"github.com/kraklabs/ckg/pkg/graph"
)

// =============================================================================
// JAVASCRIPT EXTRACTOR (pattern-based)
// =============================================================================

// JavaScriptExtractor extracts entities and relationships from JavaScript
// source using lightweight pattern matching instead of a full grammar.
//
// It recognizes class/function/method declarations, const-bound arrow
// functions, import statements and call sites by scanning lines and
// tracking brace depth. The trade-off is deliberate: it needs no grammar,
// tolerates most dialect variation, and still satisfies the extractor
// contract the coordinator depends on. Constructs it cannot see (computed
// member names, functions built at runtime) are simply absent from the
// graph.
type JavaScriptExtractor struct {
	logger *slog.Logger
}

// NewJavaScriptExtractor creates a JavaScript extractor.
func NewJavaScriptExtractor(logger *slog.Logger) *JavaScriptExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &JavaScriptExtractor{logger: logger}
}

// Language implements Extractor.
func (e *JavaScriptExtractor) Language() string { return LangJavaScript }

// FindSourceFiles implements Extractor.
func (e *JavaScriptExtractor) FindSourceFiles(root string) ([]SourceFile, error) {
	return discoverSourceFiles(root, LangJavaScript, []string{".js", ".jsx", ".mjs", ".cjs"})
}

var (
	jsImportPattern  = regexp.MustCompile(`(?:^|\s)import\b.*?from\s+['"]([^'"]+)['"]|require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	jsClassPattern   = regexp.MustCompile(`^\s*(export\s+)?(?:default\s+)?class\s+([A-Za-z_$][\w$]*)(?:\s+extends\s+([A-Za-z_$][\w$.]*))?`)
	jsFuncPattern    = regexp.MustCompile(`^\s*(export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(([^)]*)`)
	jsArrowPattern   = regexp.MustCompile(`^\s*(export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`)
	jsMethodPattern  = regexp.MustCompile(`^\s*(?:static\s+)?(?:async\s+)?(?:get\s+|set\s+)?(#?[A-Za-z_$][\w$]*)\s*\(([^)]*)\)\s*\{`)
	jsCallPattern    = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*\(`)
	jsNewPattern     = regexp.MustCompile(`new\s+([A-Za-z_$][\w$.]*)`)
	jsLineComment    = regexp.MustCompile(`//.*$`)
	jsStringLiterals = regexp.MustCompile("'(?:[^'\\\\]|\\\\.)*'|\"(?:[^\"\\\\]|\\\\.)*\"|`(?:[^`\\\\]|\\\\.)*`")
)

// jsKeywords are identifiers that look like call sites but never are.
var jsKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "function": true, "typeof": true, "new": true,
	"await": true, "yield": true, "super": true,
	"require": true, "import": true,
}

// jsScope is one open brace scope carrying the entity it belongs to.
type jsScope struct {
	key       string // local key of the owning entity, "" for plain blocks
	entityIdx int    // index into collector entities, -1 for plain blocks
	isClass   bool
	qualified string // qualified name of the class for member naming
}

// ParseFile implements Extractor. The scan is line-oriented: comments are
// stripped, imports are read while their quoted paths are still present,
// then string literals are blanked so brace counting stays honest.
// Unbalanced braces at end of file degrade to a recorded failure.
func (e *JavaScriptExtractor) ParseFile(file SourceFile) (*graph.ParseResult, error) {
	content, err := readSource(file)
	if err != nil {
		return nil, err
	}

	c := newFileCollector(file.Path, LangJavaScript)
	qualifier := moduleQualifier(file.Path)

	lines := strings.Split(string(content), "\n")

	var stack []jsScope
	inBlockComment := false

	currentFunc := func() string {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].key != "" && !stack[i].isClass {
				return stack[i].key
			}
		}
		return ""
	}
	currentClass := func() *jsScope {
		if len(stack) > 0 && stack[len(stack)-1].isClass {
			return &stack[len(stack)-1]
		}
		return nil
	}

	for lineNo, raw := range lines {
		line, nowInComment := blankComments(raw, inBlockComment)
		inBlockComment = nowInComment
		line = jsLineComment.ReplaceAllString(line, "")
		lineNum := lineNo + 1

		// Imports are matched before string literals are blanked: the
		// module path lives inside the quotes.
		if m := jsImportPattern.FindStringSubmatch(line); m != nil {
			path := m[1]
			if path == "" {
				path = m[2]
			}
			c.addImport(path, lineNum)
		}

		line = jsStringLiterals.ReplaceAllString(line, `""`)

		opened := false

		if m := jsClassPattern.FindStringSubmatch(line); m != nil {
			name := m[2]
			key := c.add(c.fileKey, graph.CodeEntity{
				Kind:          graph.KindClass,
				QualifiedName: qualifier + "." + name,
				DisplayName:   name,
				StartLine:     lineNum,
				EndLine:       lineNum,
				Visibility:    moduleVisibility(m[1] != ""),
			})
			if m[3] != "" {
				c.addTypeRef(graph.RelationExtends, key, simpleName(m[3]), lineNum)
			}
			stack = append(stack, jsScope{key: key, entityIdx: len(c.entities) - 1, isClass: true, qualified: qualifier + "." + name})
			opened = true
		} else if m := jsFuncPattern.FindStringSubmatch(line); m != nil {
			name := m[2]
			key := c.add(c.fileKey, graph.CodeEntity{
				Kind:          graph.KindFunction,
				QualifiedName: qualifier + "." + name,
				DisplayName:   name,
				StartLine:     lineNum,
				EndLine:       lineNum,
				Visibility:    moduleVisibility(m[1] != ""),
				Signature:     "function " + name + "(" + strings.TrimSpace(m[3]) + ")",
			})
			stack = append(stack, jsScope{key: key, entityIdx: len(c.entities) - 1})
			opened = true
		} else if m := jsArrowPattern.FindStringSubmatch(line); m != nil {
			name := m[2]
			key := c.add(c.fileKey, graph.CodeEntity{
				Kind:          graph.KindFunction,
				QualifiedName: qualifier + "." + name,
				DisplayName:   name,
				StartLine:     lineNum,
				EndLine:       lineNum,
				Visibility:    moduleVisibility(m[1] != ""),
				Signature:     name + " => ...",
			})
			if strings.Contains(line, "{") {
				stack = append(stack, jsScope{key: key, entityIdx: len(c.entities) - 1})
				opened = true
			} else {
				// Single-expression arrow: calls live on this line.
				e.recordCalls(line, lineNum, key, c)
				c.entities[len(c.entities)-1].EndLine = lineNum
			}
		} else if cls := currentClass(); cls != nil {
			if m := jsMethodPattern.FindStringSubmatch(line); m != nil && !jsKeywords[m[1]] {
				name := m[1]
				kind := graph.KindMethod
				if name == "constructor" {
					kind = graph.KindConstructor
				}
				key := c.add(cls.key, graph.CodeEntity{
					Kind:          kind,
					QualifiedName: cls.qualified + "." + name,
					DisplayName:   name,
					StartLine:     lineNum,
					EndLine:       lineNum,
					Visibility:    jsMemberVisibility(name),
					Signature:     name + "(" + strings.TrimSpace(m[2]) + ")",
				})
				stack = append(stack, jsScope{key: key, entityIdx: len(c.entities) - 1})
				opened = true
			}
		}

		// Call sites belong to the innermost enclosing function scope. On a
		// declaration line only the part after the opening brace is scanned,
		// so the declaration itself is not mistaken for a call.
		callLine := line
		if opened {
			if i := strings.Index(line, "{"); i >= 0 {
				callLine = line[i+1:]
			} else {
				callLine = ""
			}
		}
		if src := currentFunc(); src != "" && callLine != "" {
			e.recordCalls(callLine, lineNum, src, c)
		}

		// Brace bookkeeping. The declaration line's own opening brace is
		// accounted to the scope pushed above.
		depthDelta := strings.Count(line, "{") - strings.Count(line, "}")
		if opened {
			depthDelta--
		}
		for ; depthDelta > 0; depthDelta-- {
			stack = append(stack, jsScope{entityIdx: -1})
		}
		for ; depthDelta < 0; depthDelta++ {
			if len(stack) == 0 {
				return malformedResult(file, "unbalanced braces"), nil
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.entityIdx >= 0 {
				c.entities[top.entityIdx].EndLine = lineNum
			}
		}
	}

	if len(stack) > 0 {
		return malformedResult(file, "unbalanced braces at end of file"), nil
	}

	return c.finish(), nil
}

// recordCalls scans one blanked line for call and new expressions.
func (e *JavaScriptExtractor) recordCalls(line string, lineNum int, sourceKey string, c *fileCollector) {
	for _, m := range jsNewPattern.FindAllStringSubmatch(line, -1) {
		c.addCall(sourceKey, simpleName(m[1]), lineNum)
	}
	for _, m := range jsCallPattern.FindAllStringSubmatch(line, -1) {
		name := m[1]
		if jsKeywords[name] || name == "function" {
			continue
		}
		c.addCall(sourceKey, name, lineNum)
	}
}

// jsMemberVisibility applies the #name and underscore conventions.
func jsMemberVisibility(name string) graph.Visibility {
	if strings.HasPrefix(name, "#") || strings.HasPrefix(name, "_") {
		return graph.VisibilityPrivate
	}
	return graph.VisibilityPublic
}

// blankComments removes block-comment content from a line, carrying the
// in-comment state across lines.
func blankComments(line string, inComment bool) (string, bool) {
	var out strings.Builder
	for {
		if inComment {
			end := strings.Index(line, "*/")
			if end < 0 {
				return out.String(), true
			}
			line = line[end+2:]
			inComment = false
			continue
		}
		start := strings.Index(line, "/*")
		if start < 0 {
			out.WriteString(line)
			return out.String(), false
		}
		out.WriteString(line[:start])
		line = line[start+2:]
		inComment = true
	}
}
