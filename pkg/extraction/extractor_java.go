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
	"github.com/smacker/go-tree-sitter/java"

	"github.com/kraklabs/ckg/pkg/graph"
)

// =============================================================================
// JAVA EXTRACTOR (grammar-based)
// =============================================================================

// JavaExtractor extracts entities and relationships from Java source using
// Tree-sitter.
//
// Extracted entities: classes, interfaces, enums, methods, constructors and
// fields, with qualified names rooted at the declared package (falling back
// to a path-derived qualifier when the package declaration is missing).
// Visibility comes from explicit modifiers; the package-private default maps
// to internal.
type JavaExtractor struct {
	logger *slog.Logger
}

// NewJavaExtractor creates a Java extractor.
func NewJavaExtractor(logger *slog.Logger) *JavaExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &JavaExtractor{logger: logger}
}

// Language implements Extractor.
func (e *JavaExtractor) Language() string { return LangJava }

// FindSourceFiles implements Extractor.
func (e *JavaExtractor) FindSourceFiles(root string) ([]SourceFile, error) {
	return discoverSourceFiles(root, LangJava, []string{".java"})
}

// ParseFile implements Extractor. Malformed input degrades to a recorded
// ParseFailure; the error return is reserved for unreadable files.
func (e *JavaExtractor) ParseFile(file SourceFile) (*graph.ParseResult, error) {
	content, err := readSource(file)
	if err != nil {
		return nil, err
	}

	tree, err := parseTree(java.GetLanguage(), content)
	if err != nil {
		return malformedResult(file, err.Error()), nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if n := countSyntaxErrors(root); n > 0 {
		e.logger.Warn("extractor.java.syntax_errors", "path", file.Path, "error_count", n)
		return malformedResult(file, fmt.Sprintf("%d syntax errors", n)), nil
	}

	c := newFileCollector(file.Path, LangJava)
	qualifier := javaPackageName(root, content)
	if qualifier == "" {
		qualifier = moduleQualifier(file.Path)
	}

	eachNamedChild(root, func(node *sitter.Node) {
		switch node.Type() {
		case "import_declaration":
			e.extractImport(node, content, c)
		case "class_declaration", "interface_declaration", "enum_declaration":
			e.extractType(node, content, c, c.fileKey, qualifier)
		}
	})

	return c.finish(), nil
}

// javaPackageName returns the declared package, or "" when absent.
func javaPackageName(root *sitter.Node, content []byte) string {
	var pkg string
	eachNamedChild(root, func(node *sitter.Node) {
		if node.Type() == "package_declaration" {
			eachNamedChild(node, func(child *sitter.Node) {
				switch child.Type() {
				case "scoped_identifier", "identifier":
					pkg = nodeText(child, content)
				}
			})
		}
	})
	return pkg
}

// extractImport records an IMPORTS reference for one import declaration.
// Wildcard imports keep their trailing component dropped.
func (e *JavaExtractor) extractImport(node *sitter.Node, content []byte, c *fileCollector) {
	eachNamedChild(node, func(child *sitter.Node) {
		switch child.Type() {
		case "scoped_identifier", "identifier":
			line, _ := nodeLines(node)
			c.addImport(nodeText(child, content), line)
		}
	})
}

// extractType extracts a class, interface or enum declaration together
// with its members and nested types.
func (e *JavaExtractor) extractType(node *sitter.Node, content []byte, c *fileCollector, parentKey, qualifier string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	qualified := qualifier + "." + name
	startLine, endLine := nodeLines(node)

	kind := graph.KindClass
	switch node.Type() {
	case "interface_declaration":
		kind = graph.KindInterface
	case "enum_declaration":
		kind = graph.KindEnum
	}

	typeKey := c.add(parentKey, graph.CodeEntity{
		Kind:          kind,
		QualifiedName: qualified,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    javaVisibility(node, content),
	})

	e.extractSupertypes(node, content, c, typeKey)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	eachNamedChild(body, func(member *sitter.Node) {
		switch member.Type() {
		case "method_declaration":
			e.extractMethod(member, content, c, typeKey, qualified, graph.KindMethod)
		case "constructor_declaration":
			e.extractMethod(member, content, c, typeKey, qualified, graph.KindConstructor)
		case "field_declaration":
			e.extractFields(member, content, c, typeKey, qualified)
		case "class_declaration", "interface_declaration", "enum_declaration":
			e.extractType(member, content, c, typeKey, qualified)
		}
	})
}

// extractSupertypes records EXTENDS and IMPLEMENTS references from a type
// declaration's superclass and interface clauses.
func (e *JavaExtractor) extractSupertypes(node *sitter.Node, content []byte, c *fileCollector, typeKey string) {
	line, _ := nodeLines(node)
	eachNamedChild(node, func(child *sitter.Node) {
		switch child.Type() {
		case "superclass":
			eachNamedChild(child, func(t *sitter.Node) {
				c.addTypeRef(graph.RelationExtends, typeKey, javaTypeName(t, content), line)
			})
		case "super_interfaces", "extends_interfaces":
			rel := graph.RelationImplements
			if child.Type() == "extends_interfaces" {
				// interface X extends Y is inheritance, not implementation
				rel = graph.RelationExtends
			}
			eachNamedChild(child, func(list *sitter.Node) {
				if list.Type() != "type_list" {
					c.addTypeRef(rel, typeKey, javaTypeName(list, content), line)
					return
				}
				eachNamedChild(list, func(t *sitter.Node) {
					c.addTypeRef(rel, typeKey, javaTypeName(t, content), line)
				})
			})
		}
	})
}

// extractMethod extracts a method or constructor declaration and the call
// references inside its body.
func (e *JavaExtractor) extractMethod(node *sitter.Node, content []byte, c *fileCollector, typeKey, typeQualified string, kind graph.EntityKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	startLine, endLine := nodeLines(node)

	params := nodeText(node.ChildByFieldName("parameters"), content)
	returnType := nodeText(node.ChildByFieldName("type"), content)

	var sig strings.Builder
	if returnType != "" {
		sig.WriteString(returnType)
		sig.WriteString(" ")
	}
	sig.WriteString(name)
	sig.WriteString(params)

	methodKey := c.add(typeKey, graph.CodeEntity{
		Kind:          kind,
		QualifiedName: typeQualified + "." + name,
		DisplayName:   name,
		StartLine:     startLine,
		EndLine:       endLine,
		Visibility:    javaVisibility(node, content),
		Signature:     sig.String(),
	})

	if body := node.ChildByFieldName("body"); body != nil {
		e.extractCalls(body, content, c, methodKey)
	}
}

// extractFields extracts each declarator of a field declaration.
func (e *JavaExtractor) extractFields(node *sitter.Node, content []byte, c *fileCollector, typeKey, typeQualified string) {
	vis := javaVisibility(node, content)
	eachNamedChild(node, func(child *sitter.Node) {
		if child.Type() != "variable_declarator" {
			return
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := nodeText(nameNode, content)
		startLine, endLine := nodeLines(child)
		c.add(typeKey, graph.CodeEntity{
			Kind:          graph.KindField,
			QualifiedName: typeQualified + "." + name,
			DisplayName:   name,
			StartLine:     startLine,
			EndLine:       endLine,
			Visibility:    vis,
		})
	})
}

// extractCalls walks a method body recording method invocations and object
// creations as call references. Nested type declarations are not descended
// into; their members are extracted on their own.
func (e *JavaExtractor) extractCalls(node *sitter.Node, content []byte, c *fileCollector, sourceKey string) {
	switch node.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration":
		return
	case "method_invocation":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			line, _ := nodeLines(node)
			c.addCall(sourceKey, nodeText(nameNode, content), line)
		}
	case "object_creation_expression":
		if typeNode := node.ChildByFieldName("type"); typeNode != nil {
			line, _ := nodeLines(node)
			c.addCall(sourceKey, javaTypeName(typeNode, content), line)
		}
	}
	eachChild(node, func(child *sitter.Node) {
		e.extractCalls(child, content, c, sourceKey)
	})
}

// javaVisibility maps explicit modifiers to the normalized visibility.
// Java's package-private default becomes internal.
func javaVisibility(node *sitter.Node, content []byte) graph.Visibility {
	var modifiers string
	eachChild(node, func(child *sitter.Node) {
		if child.Type() == "modifiers" {
			modifiers = nodeText(child, content)
		}
	})
	switch {
	case strings.Contains(modifiers, "public"):
		return graph.VisibilityPublic
	case strings.Contains(modifiers, "protected"):
		return graph.VisibilityProtected
	case strings.Contains(modifiers, "private"):
		return graph.VisibilityPrivate
	}
	return graph.VisibilityInternal
}

// javaTypeName returns the simple name of a type node, stripping generic
// arguments and qualifiers: "Map<K,V>" -> "Map", "util.Pair" -> "Pair".
func javaTypeName(node *sitter.Node, content []byte) string {
	text := nodeText(node, content)
	if i := strings.Index(text, "<"); i >= 0 {
		text = text[:i]
	}
	return simpleName(strings.TrimSpace(text))
}

// malformedResult builds the degraded result for a file that failed to
// parse: no entities, one recorded failure.
func malformedResult(file SourceFile, reason string) *graph.ParseResult {
	return &graph.ParseResult{
		Failures: []graph.ParseFailure{{
			FilePath: graph.NormalizePath(file.Path),
			Language: file.Language,
			Reason:   reason,
		}},
	}
}
