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

package errors

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserErrorMessage(t *testing.T) {
	err := NewInputError("Invalid project name", "must be alphanumeric", "use my-project")
	assert.Equal(t, "Invalid project name", err.Error())
	assert.Equal(t, ExitInput, err.ExitCode)
}

func TestUserErrorWrapsUnderlying(t *testing.T) {
	underlying := stderrors.New("disk I/O error")
	err := NewDatabaseError("Cannot open graph database", "file locked", "close other instances", underlying)

	assert.Contains(t, err.Error(), "disk I/O error")
	require.True(t, stderrors.Is(err, underlying))
	assert.Equal(t, ExitDatabase, err.ExitCode)
}

func TestExitCodesPerConstructor(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		code int
	}{
		{"config", NewConfigError("m", "c", "f", nil), ExitConfig},
		{"database", NewDatabaseError("m", "c", "f", nil), ExitDatabase},
		{"input", NewInputError("m", "c", "f"), ExitInput},
		{"permission", NewPermissionError("m", "c", "f", nil), ExitPermission},
		{"not_found", NewNotFoundError("m", "c", "f"), ExitNotFound},
		{"internal", NewInternalError("m", "c", "f", nil), ExitInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.ExitCode)
		})
	}
}

func TestFormatSections(t *testing.T) {
	err := NewConfigError("Cannot load project configuration", ".ckg/project.yaml is missing", "Run 'ckg init'", nil)
	out := err.Format(true)

	assert.Contains(t, out, "Error: Cannot load project configuration")
	assert.Contains(t, out, "Cause: .ckg/project.yaml is missing")
	assert.Contains(t, out, "Fix:   Run 'ckg init'")
}

func TestFormatOmitsEmptySections(t *testing.T) {
	err := &UserError{Message: "boom", ExitCode: ExitInternal}
	out := err.Format(true)

	assert.Contains(t, out, "Error: boom")
	assert.False(t, strings.Contains(out, "Cause:"))
	assert.False(t, strings.Contains(out, "Fix:"))
}

func TestToJSONOmitsEmpty(t *testing.T) {
	err := NewNotFoundError("Project not found", "", "")
	j := err.ToJSON()

	assert.Equal(t, "Project not found", j.Error)
	assert.Empty(t, j.Cause)
	assert.Equal(t, ExitNotFound, j.ExitCode)
}
