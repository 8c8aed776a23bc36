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

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// LocalKey returns the pass-local identity key for an entity, derived from
// the normalized file path and qualified name. Local keys are stable across
// parse runs of the same file and are the addressing scheme used inside a
// ParseResult and CoordinatorResult.
func LocalKey(filePath, qualifiedName string) string {
	idStr := NormalizePath(filePath) + "|" + qualifiedName
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("loc:%s", hex.EncodeToString(hash[:16]))
}

// EntityKey returns the project-scoped identity key for an entity. It hashes
// the full identity tuple (project_id, file_path, qualified_name), so the
// same entity re-built under the same project id always maps to the same
// key. This is the sole key used for idempotent upsert.
func EntityKey(projectID, filePath, qualifiedName string) string {
	idStr := projectID + "|" + NormalizePath(filePath) + "|" + qualifiedName
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("ent:%s", hex.EncodeToString(hash[:]))
}

// ProjectKey returns the entity key of the Project aggregation root for the
// given project id. The Project node has no file path and its qualified
// name is the project id itself.
func ProjectKey(projectID string) string {
	return EntityKey(projectID, "", projectID)
}

// NormalizePath normalizes a file path for consistent key generation:
// leading "./" removed, separators forced to forward slashes, redundant
// elements cleaned, leading slash dropped. Identical on Windows and Unix.
func NormalizePath(path string) string {
	if strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	path = filepath.Clean(path)
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "/")
	if path == "." {
		return ""
	}
	return path
}
