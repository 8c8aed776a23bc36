// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contract holds limits and validation shared by the CLI and
// the builder.
package contract

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultBatchSize is the baseline row count per store transaction.
	DefaultBatchSize = 500

	// ProjectIDMaxBytes is the maximum length of a project identifier.
	ProjectIDMaxBytes = 128
)

// BatchSize returns the effective batch size for graph writes.
// Controlled via env CKG_BATCH_SIZE; falls back to DefaultBatchSize.
func BatchSize() int {
	if v := os.Getenv("CKG_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultBatchSize
}

// ValidateProjectID checks that a project identifier is usable as a
// stable key and a directory name.
func ValidateProjectID(id string) error {
	if id == "" {
		return fmt.Errorf("project_id is empty")
	}
	if len(id) > ProjectIDMaxBytes {
		return fmt.Errorf("project_id exceeds %d bytes", ProjectIDMaxBytes)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return fmt.Errorf("project_id contains invalid character %q", r)
		}
	}
	return nil
}
