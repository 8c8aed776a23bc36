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

// Package errors provides structured error handling for the CKG CLI.
//
// UserError carries what went wrong, why, and how to fix it, together
// with a semantic exit code. Commands build UserErrors and hand them to
// FatalError, which renders them for a terminal or as JSON.
//
//	err := errors.NewDatabaseError(
//	    "Cannot open graph database",
//	    "The database file is locked by another process",
//	    "Close other ckg instances or run: ckg reset --yes",
//	    underlyingErr,
//	)
//	errors.FatalError(err, jsonMode)
//
// Exit codes follow Unix conventions:
//   - ExitSuccess (0): successful execution
//   - ExitConfig (1): configuration errors
//   - ExitDatabase (2): graph store errors
//   - ExitInput (4): invalid user input
//   - ExitPermission (5): permission denied
//   - ExitNotFound (6): resource not found
//   - ExitInternal (10): internal errors (bugs)
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories.
const (
	ExitSuccess    = 0
	ExitConfig     = 1
	ExitDatabase   = 2
	ExitInput      = 4
	ExitPermission = 5
	ExitNotFound   = 6

	// ExitInternal signals "this is a bug that should be reported".
	ExitInternal = 10
)

// UserError is an error with structured context for end users.
//
// Message says what went wrong, Cause why it happened, Fix what to do
// about it. ExitCode drives CLI exit behavior; Err optionally wraps the
// underlying error for errors.Is/As.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigError creates an error for missing or invalid configuration.
//
//	return NewConfigError(
//	    "Cannot load project configuration",
//	    ".ckg/project.yaml is missing",
//	    "Run 'ckg init' to create it",
//	    nil,
//	)
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewDatabaseError creates an error for graph store failures: locked
// files, corruption, failed transactions.
func NewDatabaseError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitDatabase, Err: err}
}

// NewInputError creates an error for invalid user input. Input errors
// do not wrap an underlying error.
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInput}
}

// NewPermissionError creates an error for denied file or directory
// access.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitPermission, Err: err}
}

// NewNotFoundError creates an error for a missing resource such as an
// unindexed project or unknown entity.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNotFound}
}

// NewInternalError creates an error for unexpected conditions that
// indicate a bug.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format renders the error for terminal display, with Error in red,
// Cause in yellow and Fix in green. Empty sections are omitted. Color
// respects NO_COLOR and the noColor parameter.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")
	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// ErrorJSON is the machine-readable rendering of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError for --json output.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints the error and exits with its code. Non-UserError
// values exit with ExitInternal. Never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
