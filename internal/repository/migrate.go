package repository

import (
	"context"
	"fmt"
	"strings"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		status        TEXT NOT NULL,
		started_at    {{ts}} NOT NULL,
		finished_at   {{ts}},
		requests      INTEGER NOT NULL DEFAULT 0,
		failures      INTEGER NOT NULL DEFAULT 0,
		total_tokens  INTEGER NOT NULL DEFAULT 0,
		total_cost    {{float}} NOT NULL DEFAULT 0,
		error_message TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS grid_calls (
		id                TEXT PRIMARY KEY,
		run_id            TEXT NOT NULL,
		req_id            TEXT NOT NULL,
		document          TEXT NOT NULL,
		field             TEXT NOT NULL,
		model             TEXT NOT NULL,
		temperature       {{float}} NOT NULL,
		max_tokens        INTEGER NOT NULL,
		top_p             {{float}} NOT NULL,
		success           {{bool}} NOT NULL,
		error_message     TEXT,
		prompt_tokens     INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		cost              {{float}} NOT NULL DEFAULT 0,
		latency_ms        BIGINT NOT NULL DEFAULT 0,
		created_at        {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_grid_calls_run ON grid_calls(run_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id            TEXT PRIMARY KEY,
		run_id        TEXT,
		content_hash  TEXT NOT NULL UNIQUE,
		source_path   TEXT NOT NULL,
		pdf_id        TEXT NOT NULL,
		output_dir    TEXT NOT NULL DEFAULT '',
		page_count    INTEGER NOT NULL DEFAULT 0,
		table_count   INTEGER NOT NULL DEFAULT 0,
		used_ocr      {{bool}} NOT NULL,
		method        TEXT NOT NULL DEFAULT '',
		scheme_count  INTEGER NOT NULL DEFAULT 0,
		status        TEXT NOT NULL,
		error_message TEXT,
		created_at    {{ts}} NOT NULL,
		updated_at    {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)`,
}

// Migrate creates the ledger tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	r := db.typeReplacer()
	for i, stmt := range schema {
		if _, err := db.SQL.ExecContext(ctx, r.Replace(stmt)); err != nil {
			db.logger.Error("ledger migration failed", "step", i, "error", err)
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	db.logger.Info("ledger schema ready", "driver", db.Driver, "statements", len(schema))
	return nil
}

func (db *DB) typeReplacer() *strings.Replacer {
	if db.Driver == DriverPostgres {
		return strings.NewReplacer("{{ts}}", "TIMESTAMPTZ", "{{float}}", "DOUBLE PRECISION", "{{bool}}", "BOOLEAN")
	}
	return strings.NewReplacer("{{ts}}", "TIMESTAMP", "{{float}}", "REAL", "{{bool}}", "BOOLEAN")
}
