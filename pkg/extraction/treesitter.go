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
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

// parseTree parses content with the given grammar. A fresh parser is
// created per call so extractors stay safe for concurrent use; tree-sitter
// parsers are not shareable across goroutines.
func parseTree(lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	return tree, nil
}

// readSource reads a discovered file, guarding against it having grown
// past the discovery size cap between discovery and parse.
func readSource(file SourceFile) ([]byte, error) {
	content, err := os.ReadFile(file.FullPath)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	if int64(len(content)) > discoverMaxFileSize {
		return nil, fmt.Errorf("source file exceeds size limit: %d bytes", len(content))
	}
	return content, nil
}

// nodeText returns the source text covered by a node.
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}

// nodeLines returns the 1-based start and end lines of a node.
func nodeLines(node *sitter.Node) (int, int) {
	return int(node.StartPoint().Row) + 1, int(node.EndPoint().Row) + 1
}

// countSyntaxErrors counts ERROR nodes in a subtree. Tree-sitter is error
// tolerant, so a non-zero count means the file is malformed even though a
// tree exists.
func countSyntaxErrors(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	if node.Type() == "ERROR" || node.IsMissing() {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countSyntaxErrors(node.Child(i))
	}
	return count
}

// eachChild invokes fn for every direct child of node.
func eachChild(node *sitter.Node, fn func(child *sitter.Node)) {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			fn(child)
		}
	}
}

// eachNamedChild invokes fn for every named child of node.
func eachNamedChild(node *sitter.Node, fn func(child *sitter.Node)) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child != nil {
			fn(child)
		}
	}
}
