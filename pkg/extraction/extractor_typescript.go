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
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/ckg/pkg/graph"
)

// =============================================================================
// TYPESCRIPT EXTRACTOR (grammar-based)
// =============================================================================

// TypeScriptExtractor extracts entities and relationships from TypeScript
// source using Tree-sitter.
//
// Extracted entities: classes (with extends/implements clauses),
// interfaces and their method signatures, enums, functions, arrow and
// function expressions bound to const/let, methods and constructors.
// Exported declarations are public; unexported module-scope declarations
// are internal. Class members honor accessibility modifiers and the #name
// convention.
type TypeScriptExtractor struct {
	logger *slog.Logger
}

// NewTypeScriptExtractor creates a TypeScript extractor.
func NewTypeScriptExtractor(logger *slog.Logger) *TypeScriptExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TypeScriptExtractor{logger: logger}
}

// Language implements Extractor.
func (e *TypeScriptExtractor) Language() string { return LangTypeScript }

// FindSourceFiles implements Extractor.
func (e *TypeScriptExtractor) FindSourceFiles(root string) ([]SourceFile, error) {
	return discoverSourceFiles(root, LangTypeScript, []string{".ts", ".tsx"})
}

// ParseFile implements Extractor.
func (e *TypeScriptExtractor) ParseFile(file SourceFile) (*graph.ParseResult, error) {
	content, err := readSource(file)
	if err != nil {
		return nil, err
	}

	tree, err := parseTree(typescript.GetLanguage(), content)
	if err != nil {
		return malformedResult(file, err.Error()), nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if n := countSyntaxErrors(root); n > 0 {
		e.logger.Warn("extractor.typescript.syntax_errors", "path", file.Path, "error_count", n)
		return malformedResult(file, fmt.Sprintf("%d syntax errors", n)), nil
	}

	c := newFileCollector(file.Path, LangTypeScript)
	qualifier := moduleQualifier(file.Path)

	eachNamedChild(root, func(stmt *sitter.Node) {
		e.extractStatement(stmt, content, c, qualifier, false)
	})

	return c.finish(), nil
}

// extractStatement handles one top-level statement. exported is true when
// the statement sits inside an export_statement.
func (e *TypeScriptExtractor) extractStatement(stmt *sitter.Node, content []byte, c *fileCollector, qualifier string, exported bool) {
	switch stmt.Type() {
	case "export_statement":
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			e.extractStatement(decl, content, c, qualifier, true)
		}
	case "import_statement":
		if source := stmt.ChildByFieldName("source"); source != nil {
			line, _ := nodeLines(stmt)
			c.addImport(strings.Trim(nodeText(source, content), `"'`), line)
		}
	case "class_declaration", "abstract_class_declaration":
		e.extractClass(stmt, content, c, qualifier, exported)
	case "interface_declaration":
		e.extractInterface(stmt, content, c, qualifier, exported)
	case "enum_declaration":
		e.extractEnum(stmt, content, c, qualifier, exported)
	case "function_declaration":
		e.extractFunction(stmt, content, c, qualifier, exported)
	case "lexical_declaration", "variable_declaration":
		e.extractVariableFunctions(stmt, content, c, qualifier, exported)
	}
}

// extractClass extracts a class declaration, its heritage clauses and its
// members.
func (e *TypeScriptExtractor) extractClass(node *sitter.Node, content []byte, c *fileCollector, qualifier string, exported bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	qualified := qualifier + "." + name
	startLine, endLine := nodeLines(node)

	classKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindClass,
		QualifiedName: qualified,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    moduleVisibility(exported),
	})

	// extends/implements clauses live under class_heritage.
	eachNamedChild(node, func(child *sitter.Node) {
		if child.Type() != "class_heritage" {
			return
		}
		line, _ := nodeLines(child)
		eachNamedChild(child, func(clause *sitter.Node) {
			switch clause.Type() {
			case "extends_clause":
				eachNamedChild(clause, func(t *sitter.Node) {
					c.addTypeRef(graph.RelationExtends, classKey, tsTypeName(t, content), line)
				})
			case "implements_clause":
				eachNamedChild(clause, func(t *sitter.Node) {
					c.addTypeRef(graph.RelationImplements, classKey, tsTypeName(t, content), line)
				})
			}
		})
	})

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	eachNamedChild(body, func(member *sitter.Node) {
		switch member.Type() {
		case "method_definition":
			e.extractMethod(member, content, c, classKey, qualified)
		case "public_field_definition":
			e.extractField(member, content, c, classKey, qualified)
		}
	})
}

// extractInterface extracts an interface declaration and its method
// signatures.
func (e *TypeScriptExtractor) extractInterface(node *sitter.Node, content []byte, c *fileCollector, qualifier string, exported bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	qualified := qualifier + "." + name
	startLine, endLine := nodeLines(node)

	ifaceKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindInterface,
		QualifiedName: qualified,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    moduleVisibility(exported),
	})

	// interface X extends Y
	eachNamedChild(node, func(child *sitter.Node) {
		if child.Type() != "extends_type_clause" && child.Type() != "extends_clause" {
			return
		}
		line, _ := nodeLines(child)
		eachNamedChild(child, func(t *sitter.Node) {
			c.addTypeRef(graph.RelationExtends, ifaceKey, tsTypeName(t, content), line)
		})
	})

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	eachNamedChild(body, func(member *sitter.Node) {
		if member.Type() != "method_signature" {
			return
		}
		nameNode := member.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		mName := nodeText(nameNode, content)
		mStart, mEnd := nodeLines(member)
		c.add(ifaceKey, graph.CodeEntity{
			Kind:          graph.KindMethod,
			QualifiedName: qualified + "." + mName,
			DisplayName:   mName,
			StartLine:     mStart,
			EndLine:       mEnd,
			Visibility:    graph.VisibilityPublic,
			Signature:     nodeText(member, content),
		})
	})
}

// extractEnum extracts an enum declaration.
func (e *TypeScriptExtractor) extractEnum(node *sitter.Node, content []byte, c *fileCollector, qualifier string, exported bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	startLine, endLine := nodeLines(node)
	c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindEnum,
		QualifiedName: qualifier + "." + name,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    moduleVisibility(exported),
	})
}

// extractFunction extracts a top-level function declaration.
func (e *TypeScriptExtractor) extractFunction(node *sitter.Node, content []byte, c *fileCollector, qualifier string, exported bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	startLine, endLine := nodeLines(node)

	funcKey := c.add(c.fileKey, graph.CodeEntity{
		Kind:          graph.KindFunction,
		QualifiedName: qualifier + "." + name,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    moduleVisibility(exported),
		Signature:     tsSignature(node, content, name),
	})

	if body := node.ChildByFieldName("body"); body != nil {
		e.extractCalls(body, content, c, funcKey)
	}
}

// extractVariableFunctions extracts arrow functions and function
// expressions bound to const/let declarations. Plain value bindings are
// recorded as Variable entities.
func (e *TypeScriptExtractor) extractVariableFunctions(node *sitter.Node, content []byte, c *fileCollector, qualifier string, exported bool) {
	eachNamedChild(node, func(decl *sitter.Node) {
		if decl.Type() != "variable_declarator" {
			return
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != "identifier" {
			return
		}
		name := nodeText(nameNode, content)
		startLine, endLine := nodeLines(decl)
		value := decl.ChildByFieldName("value")

		if value != nil && (value.Type() == "arrow_function" || value.Type() == "function_expression" || value.Type() == "function") {
			funcKey := c.add(c.fileKey, graph.CodeEntity{
				Kind:          graph.KindFunction,
				QualifiedName: qualifier + "." + name,
				DisplayName:   name,
				StartLine:     startLine,
				EndLine:       endLine,
				Visibility:    moduleVisibility(exported),
				Signature:     tsSignature(value, content, name),
			})
			if body := value.ChildByFieldName("body"); body != nil {
				e.extractCalls(body, content, c, funcKey)
			}
			return
		}

		c.add(c.fileKey, graph.CodeEntity{
			Kind:          graph.KindVariable,
			QualifiedName: qualifier + "." + name,
			DisplayName:   name,
			StartLine:     startLine,
			EndLine:       endLine,
			Visibility:    moduleVisibility(exported),
		})
	})
}

// extractMethod extracts a class method or constructor.
func (e *TypeScriptExtractor) extractMethod(node *sitter.Node, content []byte, c *fileCollector, classKey, classQualified string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	startLine, endLine := nodeLines(node)

	kind := graph.KindMethod
	if name == "constructor" {
		kind = graph.KindConstructor
	}

	methodKey := c.add(classKey, graph.CodeEntity{
		Kind:          kind,
		QualifiedName: classQualified + "." + name,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    tsMemberVisibility(node, content, name),
		Signature:     tsSignature(node, content, name),
	})

	if body := node.ChildByFieldName("body"); body != nil {
		e.extractCalls(body, content, c, methodKey)
	}
}

// extractField extracts a class field definition.
func (e *TypeScriptExtractor) extractField(node *sitter.Node, content []byte, c *fileCollector, classKey, classQualified string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	startLine, endLine := nodeLines(node)
	c.add(classKey, graph.CodeEntity{
		Kind:          graph.KindField,
		QualifiedName: classQualified + "." + name,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    tsMemberVisibility(node, content, name),
	})
}

// extractCalls walks a body recording call and new expressions. Nested
// class declarations are not descended into.
func (e *TypeScriptExtractor) extractCalls(node *sitter.Node, content []byte, c *fileCollector, sourceKey string) {
	switch node.Type() {
	case "class_declaration", "abstract_class_declaration":
		return
	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil {
			line, _ := nodeLines(node)
			switch fn.Type() {
			case "identifier":
				c.addCall(sourceKey, nodeText(fn, content), line)
			case "member_expression":
				// this.helper() / obj.helper(): record the property name.
				if prop := fn.ChildByFieldName("property"); prop != nil {
					c.addCall(sourceKey, nodeText(prop, content), line)
				}
			}
		}
	case "new_expression":
		if ctor := node.ChildByFieldName("constructor"); ctor != nil {
			line, _ := nodeLines(node)
			c.addCall(sourceKey, tsTypeName(ctor, content), line)
		}
	}
	eachChild(node, func(child *sitter.Node) {
		e.extractCalls(child, content, c, sourceKey)
	})
}

// tsSignature builds a compact signature from a callable node.
func tsSignature(node *sitter.Node, content []byte, name string) string {
	params := nodeText(node.ChildByFieldName("parameters"), content)
	sig := name + params
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		sig += nodeText(ret, content)
	}
	return sig
}

// tsMemberVisibility resolves a class member's visibility: accessibility
// modifier first, then the #name and underscore conventions.
func tsMemberVisibility(node *sitter.Node, content []byte, name string) graph.Visibility {
	var modifier string
	eachChild(node, func(child *sitter.Node) {
		if child.Type() == "accessibility_modifier" {
			modifier = nodeText(child, content)
		}
	})
	switch modifier {
	case "private":
		return graph.VisibilityPrivate
	case "protected":
		return graph.VisibilityProtected
	case "public":
		return graph.VisibilityPublic
	}
	if strings.HasPrefix(name, "#") || strings.HasPrefix(name, "_") {
		return graph.VisibilityPrivate
	}
	return graph.VisibilityPublic
}

// moduleVisibility maps export status to visibility: exported declarations
// are public, module-local ones internal.
func moduleVisibility(exported bool) graph.Visibility {
	if exported {
		return graph.VisibilityPublic
	}
	return graph.VisibilityInternal
}

// tsTypeName returns the simple name of a heritage/constructor expression,
// stripping type arguments.
func tsTypeName(node *sitter.Node, content []byte) string {
	text := nodeText(node, content)
	if i := strings.Index(text, "<"); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, "("); i >= 0 {
		text = text[:i]
	}
	return simpleName(strings.TrimSpace(text))
}
