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

package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/kraklabs/ckg/internal/bootstrap"
	"github.com/kraklabs/ckg/internal/errors"
	"github.com/kraklabs/ckg/internal/output"
	"github.com/kraklabs/ckg/internal/ui"
	"github.com/kraklabs/ckg/pkg/graph"
	"github.com/kraklabs/ckg/pkg/query"
)

// runQuery executes the 'query' CLI command, answering structural
// questions against the indexed graph.
//
// Operations:
//   - define <name>       Locate the definition(s) of an entity
//   - callers <name>      List resolved callers of a callable
//   - callees <name>      List resolved callees of a callable
//   - overview            Project-wide counts
//   - complexity <name>   Size and coupling signal for an entity
//
// Flags:
//   - --json: Output results as JSON (default: false)
//   - --timeout: Query timeout duration (default: 30s)
func runQuery(args []string, configPath string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	timeout := fs.Duration("timeout", 30*time.Second, "Query timeout")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ckg query [options] <operation> [name]

Operations:
  define <name>        Locate the definition(s) of an entity
  callers <name>       List resolved callers of a callable
  callees <name>       List resolved callees of a callable
  overview             Project-wide entity and relationship counts
  complexity <name>    Size and coupling signal for an entity

Names may be simple ("OrderService") or qualified
("com.acme.billing.OrderService"). Qualified matches win; ambiguous
simple names list every candidate.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  ckg query define OrderService
  ckg query callers com.acme.billing.OrderService.submit
  ckg query overview --json
  ckg query complexity PaymentGateway

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: operation argument required\n")
		fs.Usage()
		os.Exit(1)
	}
	op := fs.Arg(0)
	name := fs.Arg(1)
	if op != "overview" && name == "" {
		fmt.Fprintf(os.Stderr, "Error: operation %q requires a name argument\n", op)
		os.Exit(1)
	}

	ui.InitColors(*noColor)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError("Cannot load configuration", err.Error(), "Run 'ckg init' first", err), *jsonOutput)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := bootstrap.OpenProject(ctx, bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID,
		DataDir:   cfg.Store.DataDir,
	}, logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("Cannot open graph database", err.Error(), "Run 'ckg index' first", err), *jsonOutput)
	}
	defer func() { _ = store.Close() }()

	svc, err := query.NewService(store, 0, logger)
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot create query service", err.Error(), "", err), *jsonOutput)
	}

	switch op {
	case "define":
		defs, err := svc.LocateDefinition(ctx, cfg.ProjectID, name)
		queryFatal(err, name, *jsonOutput)
		if *jsonOutput {
			_ = output.JSON(defs)
			return
		}
		printDefinitions(defs)
	case "callers":
		edges, err := svc.ListCallers(ctx, cfg.ProjectID, name)
		queryFatal(err, name, *jsonOutput)
		if *jsonOutput {
			_ = output.JSON(edges)
			return
		}
		printCallEdges(edges, "Callers of "+name, true)
	case "callees":
		edges, err := svc.ListCallees(ctx, cfg.ProjectID, name)
		queryFatal(err, name, *jsonOutput)
		if *jsonOutput {
			_ = output.JSON(edges)
			return
		}
		printCallEdges(edges, "Callees of "+name, false)
	case "overview":
		overview, err := svc.ProjectOverview(ctx, cfg.ProjectID)
		queryFatal(err, cfg.ProjectID, *jsonOutput)
		if *jsonOutput {
			_ = output.JSON(overview)
			return
		}
		printOverview(overview)
	case "complexity":
		signal, err := svc.Complexity(ctx, cfg.ProjectID, name)
		queryFatal(err, name, *jsonOutput)
		if *jsonOutput {
			_ = output.JSON(signal)
			return
		}
		printComplexity(signal)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown operation %q\n", op)
		fs.Usage()
		os.Exit(1)
	}
}

// queryFatal maps query errors to exit paths. A NotFoundError exits
// with the not-found code; anything else is a database failure.
func queryFatal(err error, name string, jsonOutput bool) {
	if err == nil {
		return
	}
	var notFound *query.NotFoundError
	if stderrors.As(err, &notFound) {
		errors.FatalError(errors.NewNotFoundError(
			fmt.Sprintf("Entity %q not found", name),
			err.Error(),
			"Check the name, or re-run 'ckg index' if the code changed",
		), jsonOutput)
	}
	errors.FatalError(errors.NewDatabaseError("Query failed", err.Error(), "", err), jsonOutput)
}

func printDefinitions(defs []query.Definition) {
	if len(defs) > 1 {
		ui.Warningf("name is ambiguous, %d candidates:", len(defs))
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tQUALIFIED NAME\tLOCATION")
	for _, def := range defs {
		e := def.Entity
		fmt.Fprintf(w, "%s\t%s\t%s:%d\n", e.Kind, e.QualifiedName, e.FilePath, e.StartLine)
	}
	_ = w.Flush()
}

func printCallEdges(edges []query.CallEdge, title string, incoming bool) {
	ui.SubHeader(title)
	if len(edges) == 0 {
		fmt.Println(ui.DimText("  no resolved call edges"))
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, edge := range edges {
		other := edge.Caller
		if !incoming {
			other = edge.Callee
		}
		fmt.Fprintf(w, "  %s\t%s:%d\tx%d\n", other.QualifiedName, other.FilePath, edge.SiteLine, edge.Occurrences)
	}
	_ = w.Flush()
}

func printOverview(overview *query.Overview) {
	ui.Header("Project Overview")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), overview.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Files:"), ui.CountText(overview.Files))
	fmt.Printf("%s %s\n", ui.Label("Entities:"), ui.CountText(overview.Entities))
	fmt.Printf("%s %s\n", ui.Label("Relationships:"), ui.CountText(overview.Relationships))
	if len(overview.ByKind) > 0 {
		fmt.Println()
		ui.SubHeader("By kind:")
		kinds := make([]string, 0, len(overview.ByKind))
		for kind := range overview.ByKind {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %s\t%d\n", kind, overview.ByKind[graph.EntityKind(kind)])
		}
		_ = w.Flush()
	}
}

func printComplexity(signal *query.ComplexitySignal) {
	e := signal.Entity
	ui.Header("Complexity: " + e.QualifiedName)
	fmt.Printf("%s %s (%s:%d)\n", ui.Label("Kind:"), e.Kind, e.FilePath, e.StartLine)
	fmt.Printf("%s %s\n", ui.Label("Members:"), ui.CountText(signal.Members))
	fmt.Printf("%s %s\n", ui.Label("Fan-in:"), ui.CountText(signal.FanIn))
	fmt.Printf("%s %s\n", ui.Label("Fan-out:"), ui.CountText(signal.FanOut))
	fmt.Printf("%s %s\n", ui.Label("Lines:"), ui.CountText(signal.Lines))
}
