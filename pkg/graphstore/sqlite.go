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

package graphstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kraklabs/ckg/pkg/graph"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ckg_entity (
	key            TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	kind           TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	display_name   TEXT NOT NULL,
	file_path      TEXT NOT NULL,
	start_line     INTEGER NOT NULL DEFAULT 0,
	end_line       INTEGER NOT NULL DEFAULT 0,
	visibility     TEXT NOT NULL,
	language       TEXT NOT NULL,
	signature      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_entity_project_qname ON ckg_entity (project_id, qualified_name);
CREATE INDEX IF NOT EXISTS idx_entity_project_dname ON ckg_entity (project_id, display_name);
CREATE INDEX IF NOT EXISTS idx_entity_project_kind  ON ckg_entity (project_id, kind);

CREATE TABLE IF NOT EXISTS ckg_relationship (
	source_key  TEXT NOT NULL,
	target_key  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	project_id  TEXT NOT NULL,
	site_line   INTEGER NOT NULL DEFAULT 0,
	occurrences INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (source_key, target_key, kind)
);
CREATE INDEX IF NOT EXISTS idx_rel_target  ON ckg_relationship (target_key, kind);
CREATE INDEX IF NOT EXISTS idx_rel_source  ON ckg_relationship (source_key, kind);
CREATE INDEX IF NOT EXISTS idx_rel_project ON ckg_relationship (project_id);
`

// SQLiteStore is the embedded Store backed by SQLite. Path ":memory:"
// gives an in-process store for tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// SQLite allows one writer; a single connection avoids lock churn and
	// keeps the shared in-memory database alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// EnsureSchema implements Store.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertEntities implements Store. The batch is one transaction.
func (s *SQLiteStore) UpsertEntities(ctx context.Context, entities []StoredEntity) error {
	if len(entities) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entity upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ckg_entity
			(key, project_id, kind, qualified_name, display_name, file_path,
			 start_line, end_line, visibility, language, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			kind = excluded.kind,
			qualified_name = excluded.qualified_name,
			display_name = excluded.display_name,
			file_path = excluded.file_path,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			visibility = excluded.visibility,
			language = excluded.language,
			signature = excluded.signature`)
	if err != nil {
		return fmt.Errorf("prepare entity upsert: %w", err)
	}
	defer stmt.Close()

	for i := range entities {
		e := &entities[i]
		if _, err := stmt.ExecContext(ctx,
			e.Key, e.ProjectID, string(e.Kind), e.QualifiedName, e.DisplayName,
			e.FilePath, e.StartLine, e.EndLine, string(e.Visibility), e.Language, e.Signature,
		); err != nil {
			return fmt.Errorf("upsert entity %s: %w", e.QualifiedName, err)
		}
	}
	return tx.Commit()
}

// UpsertRelationships implements Store. The incoming occurrence count
// replaces the stored one, so rebuilding a project converges instead of
// accumulating.
func (s *SQLiteStore) UpsertRelationships(ctx context.Context, rels []StoredRelationship) error {
	if len(rels) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin relationship upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ckg_relationship
			(source_key, target_key, kind, project_id, site_line, occurrences)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_key, target_key, kind) DO UPDATE SET
			site_line = excluded.site_line,
			occurrences = excluded.occurrences`)
	if err != nil {
		return fmt.Errorf("prepare relationship upsert: %w", err)
	}
	defer stmt.Close()

	for i := range rels {
		r := &rels[i]
		if _, err := stmt.ExecContext(ctx,
			r.SourceKey, r.TargetKey, string(r.Kind), r.ProjectID, r.SiteLine, r.Occurrences,
		); err != nil {
			return fmt.Errorf("upsert relationship %s: %w", r.Kind, err)
		}
	}
	return tx.Commit()
}

const entityColumns = `key, project_id, kind, qualified_name, display_name,
	file_path, start_line, end_line, visibility, language, signature`

// EntityByKey implements Store.
func (s *SQLiteStore) EntityByKey(ctx context.Context, key string) (*StoredEntity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM ckg_entity WHERE key = ?`, key)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entity by key: %w", err)
	}
	return e, nil
}

// EntitiesByQualifiedName implements Store.
func (s *SQLiteStore) EntitiesByQualifiedName(ctx context.Context, projectID, qualifiedName string) ([]StoredEntity, error) {
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM ckg_entity
		 WHERE project_id = ? AND qualified_name = ?
		 ORDER BY file_path, start_line`, projectID, qualifiedName)
}

// EntitiesByDisplayName implements Store.
func (s *SQLiteStore) EntitiesByDisplayName(ctx context.Context, projectID, displayName string) ([]StoredEntity, error) {
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM ckg_entity
		 WHERE project_id = ? AND display_name = ?
		 ORDER BY file_path, start_line`, projectID, displayName)
}

// EntitiesByProject implements Store.
func (s *SQLiteStore) EntitiesByProject(ctx context.Context, projectID string) ([]StoredEntity, error) {
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM ckg_entity
		 WHERE project_id = ?
		 ORDER BY file_path, start_line, qualified_name`, projectID)
}

// RelationshipsByProject implements Store.
func (s *SQLiteStore) RelationshipsByProject(ctx context.Context, projectID string, kind graph.RelationKind) ([]StoredRelationship, error) {
	query := `SELECT source_key, target_key, kind, project_id, site_line, occurrences
		 FROM ckg_relationship WHERE project_id = ?`
	args := []any{projectID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY source_key, target_key, kind`
	return s.queryRelationships(ctx, query, args...)
}

// IncomingRelationships implements Store.
func (s *SQLiteStore) IncomingRelationships(ctx context.Context, targetKey string, kind graph.RelationKind) ([]StoredRelationship, error) {
	query := `SELECT source_key, target_key, kind, project_id, site_line, occurrences
		 FROM ckg_relationship WHERE target_key = ?`
	args := []any{targetKey}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY source_key, kind`
	return s.queryRelationships(ctx, query, args...)
}

// OutgoingRelationships implements Store.
func (s *SQLiteStore) OutgoingRelationships(ctx context.Context, sourceKey string, kind graph.RelationKind) ([]StoredRelationship, error) {
	query := `SELECT source_key, target_key, kind, project_id, site_line, occurrences
		 FROM ckg_relationship WHERE source_key = ?`
	args := []any{sourceKey}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY target_key, kind`
	return s.queryRelationships(ctx, query, args...)
}

// SummarizeProject implements Store.
func (s *SQLiteStore) SummarizeProject(ctx context.Context, projectID string) (*ProjectSummary, error) {
	summary := &ProjectSummary{
		ProjectID: projectID,
		ByKind:    make(map[graph.EntityKind]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM ckg_entity WHERE project_id = ? GROUP BY kind`, projectID)
	if err != nil {
		return nil, fmt.Errorf("summarize entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan entity count: %w", err)
		}
		summary.ByKind[graph.EntityKind(kind)] = count
		summary.Entities += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summarize entities: %w", err)
	}
	summary.Files = summary.ByKind[graph.KindFile]

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ckg_relationship WHERE project_id = ?`, projectID)
	if err := row.Scan(&summary.Relationships); err != nil {
		return nil, fmt.Errorf("summarize relationships: %w", err)
	}
	return summary, nil
}

// DeleteProject implements Store.
func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ckg_relationship WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete relationships: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ckg_entity WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete entities: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*StoredEntity, error) {
	var e StoredEntity
	var kind, visibility string
	err := row.Scan(&e.Key, &e.ProjectID, &kind, &e.QualifiedName, &e.DisplayName,
		&e.FilePath, &e.StartLine, &e.EndLine, &visibility, &e.Language, &e.Signature)
	if err != nil {
		return nil, err
	}
	e.Kind = graph.EntityKind(kind)
	e.Visibility = graph.Visibility(visibility)
	return &e, nil
}

func (s *SQLiteStore) queryEntities(ctx context.Context, query string, args ...any) ([]StoredEntity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []StoredEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) queryRelationships(ctx context.Context, query string, args ...any) ([]StoredRelationship, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var out []StoredRelationship
	for rows.Next() {
		var r StoredRelationship
		var kind string
		if err := rows.Scan(&r.SourceKey, &r.TargetKey, &kind, &r.ProjectID, &r.SiteLine, &r.Occurrences); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		r.Kind = graph.RelationKind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	return out, nil
}
