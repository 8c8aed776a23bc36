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
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/kraklabs/ckg/pkg/graph"
)

// =============================================================================
// PYTHON EXTRACTOR (grammar-based)
// =============================================================================

// PythonExtractor extracts entities and relationships from Python source
// using Tree-sitter.
//
// Classes, functions, methods (including __init__ as constructor),
// module-level assignments and imports are extracted. Visibility follows
// the underscore convention: a leading underscore means private, dunder
// names stay public.
type PythonExtractor struct {
	logger *slog.Logger
}

// NewPythonExtractor creates a Python extractor.
func NewPythonExtractor(logger *slog.Logger) *PythonExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PythonExtractor{logger: logger}
}

// Language implements Extractor.
func (e *PythonExtractor) Language() string { return LangPython }

// FindSourceFiles implements Extractor.
func (e *PythonExtractor) FindSourceFiles(root string) ([]SourceFile, error) {
	return discoverSourceFiles(root, LangPython, []string{".py"})
}

// ParseFile implements Extractor.
func (e *PythonExtractor) ParseFile(file SourceFile) (*graph.ParseResult, error) {
	content, err := readSource(file)
	if err != nil {
		return nil, err
	}

	tree, err := parseTree(python.GetLanguage(), content)
	if err != nil {
		return malformedResult(file, err.Error()), nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if n := countSyntaxErrors(root); n > 0 {
		e.logger.Warn("extractor.python.syntax_errors", "path", file.Path, "error_count", n)
		return malformedResult(file, fmt.Sprintf("%d syntax errors", n)), nil
	}

	c := newFileCollector(file.Path, LangPython)
	qualifier := moduleQualifier(file.Path)

	e.extractBlock(root, content, c, c.fileKey, qualifier, false)

	return c.finish(), nil
}

// extractBlock extracts the statements of a module, class or function
// body. insideClass switches function definitions to methods.
func (e *PythonExtractor) extractBlock(node *sitter.Node, content []byte, c *fileCollector, parentKey, qualifier string, insideClass bool) {
	eachNamedChild(node, func(stmt *sitter.Node) {
		switch stmt.Type() {
		case "import_statement", "import_from_statement":
			e.extractImport(stmt, content, c)
		case "class_definition":
			e.extractClass(stmt, content, c, parentKey, qualifier)
		case "function_definition":
			e.extractFunction(stmt, content, c, parentKey, qualifier, insideClass)
		case "decorated_definition":
			if def := stmt.ChildByFieldName("definition"); def != nil {
				switch def.Type() {
				case "class_definition":
					e.extractClass(def, content, c, parentKey, qualifier)
				case "function_definition":
					e.extractFunction(def, content, c, parentKey, qualifier, insideClass)
				}
			}
		case "expression_statement":
			if !insideClass && parentKey == c.fileKey {
				e.extractModuleAssignment(stmt, content, c, qualifier)
			}
		}
	})
}

// extractImport records IMPORTS references for import and from-import
// statements.
func (e *PythonExtractor) extractImport(node *sitter.Node, content []byte, c *fileCollector) {
	line, _ := nodeLines(node)
	if node.Type() == "import_from_statement" {
		if module := node.ChildByFieldName("module_name"); module != nil {
			c.addImport(strings.TrimLeft(nodeText(module, content), "."), line)
		}
		return
	}
	eachNamedChild(node, func(child *sitter.Node) {
		switch child.Type() {
		case "dotted_name":
			c.addImport(nodeText(child, content), line)
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				c.addImport(nodeText(name, content), line)
			}
		}
	})
}

// extractClass extracts a class definition, its bases and its body.
func (e *PythonExtractor) extractClass(node *sitter.Node, content []byte, c *fileCollector, parentKey, qualifier string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	qualified := qualifier + "." + name
	startLine, endLine := nodeLines(node)

	classKey := c.add(parentKey, graph.CodeEntity{
		Kind:          graph.KindClass,
		QualifiedName: qualified,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    pythonVisibility(name),
	})

	// Base classes: EXTENDS references. Keyword arguments (metaclass=...)
	// are not inheritance and are skipped.
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		line, _ := nodeLines(node)
		eachNamedChild(supers, func(base *sitter.Node) {
			switch base.Type() {
			case "identifier", "attribute":
				c.addTypeRef(graph.RelationExtends, classKey, simpleName(nodeText(base, content)), line)
			}
		})
	}

	if body := node.ChildByFieldName("body"); body != nil {
		e.extractBlock(body, content, c, classKey, qualified, true)
	}
}

// extractFunction extracts a function or method definition and the call
// references inside its body.
func (e *PythonExtractor) extractFunction(node *sitter.Node, content []byte, c *fileCollector, parentKey, qualifier string, insideClass bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	qualified := qualifier + "." + name
	startLine, endLine := nodeLines(node)

	kind := graph.KindFunction
	if insideClass {
		kind = graph.KindMethod
		if name == "__init__" || name == "__new__" {
			kind = graph.KindConstructor
		}
	}

	params := nodeText(node.ChildByFieldName("parameters"), content)
	signature := "def " + name + params
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		signature += " -> " + nodeText(ret, content)
	}

	funcKey := c.add(parentKey, graph.CodeEntity{
		Kind:          kind,
		QualifiedName: qualified,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    pythonVisibility(name),
		Signature:     signature,
	})

	if body := node.ChildByFieldName("body"); body != nil {
		e.extractCalls(body, content, c, funcKey)
		// Nested defs become their own entities under this function.
		e.extractBlock(body, content, c, funcKey, qualified, false)
	}
}

// extractModuleAssignment records simple module-level assignment targets as
// Variable entities.
func (e *PythonExtractor) extractModuleAssignment(stmt *sitter.Node, content []byte, c *fileCollector, qualifier string) {
	eachNamedChild(stmt, func(expr *sitter.Node) {
		if expr.Type() != "assignment" {
			return
		}
		left := expr.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			return
		}
		name := nodeText(left, content)
		startLine, endLine := nodeLines(stmt)
		c.add(c.fileKey, graph.CodeEntity{
			Kind:          graph.KindVariable,
			QualifiedName: qualifier + "." + name,
			DisplayName:   name,
			StartLine:     startLine,
			EndLine:       endLine,
			Visibility:    pythonVisibility(name),
		})
	})
}

// extractCalls walks a body recording call expressions. Nested function
// and class definitions are skipped; their bodies are extracted separately.
func (e *PythonExtractor) extractCalls(node *sitter.Node, content []byte, c *fileCollector, sourceKey string) {
	switch node.Type() {
	case "function_definition", "class_definition":
		return
	case "call":
		if fn := node.ChildByFieldName("function"); fn != nil {
			line, _ := nodeLines(node)
			switch fn.Type() {
			case "identifier":
				c.addCall(sourceKey, nodeText(fn, content), line)
			case "attribute":
				// self.helper() / obj.helper(): record the attribute name.
				if attr := fn.ChildByFieldName("attribute"); attr != nil {
					c.addCall(sourceKey, nodeText(attr, content), line)
				}
			}
		}
	}
	eachChild(node, func(child *sitter.Node) {
		e.extractCalls(child, content, c, sourceKey)
	})
}

// pythonVisibility applies the underscore convention: _name is private,
// __dunder__ names are public API.
func pythonVisibility(name string) graph.Visibility {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return graph.VisibilityPublic
	}
	if strings.HasPrefix(name, "_") {
		return graph.VisibilityPrivate
	}
	return graph.VisibilityPublic
}
