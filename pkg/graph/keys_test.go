// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/app.py", "src/app.py"},
		{"./src/app.py", "src/app.py"},
		{"src//app.py", "src/app.py"},
		{"/src/app.py", "src/app.py"},
		{"src/../src/app.py", "src/app.py"},
		{".", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.in), "input %q", tt.in)
	}
}

func TestLocalKeyStableAcrossPathForms(t *testing.T) {
	a := LocalKey("src/app.py", "app.main")
	b := LocalKey("./src/app.py", "app.main")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "loc:"))

	other := LocalKey("src/app.py", "app.other")
	assert.NotEqual(t, a, other)
}

func TestEntityKeyScopedByProject(t *testing.T) {
	a := EntityKey("proj-a", "src/app.py", "app.main")
	b := EntityKey("proj-b", "src/app.py", "app.main")
	assert.NotEqual(t, a, b)

	again := EntityKey("proj-a", "src/app.py", "app.main")
	assert.Equal(t, a, again)
	assert.True(t, strings.HasPrefix(a, "ent:"))
}

func TestProjectKeyIsEntityKeyOfRoot(t *testing.T) {
	require.Equal(t, EntityKey("proj", "", "proj"), ProjectKey("proj"))
}
