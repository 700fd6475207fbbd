package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/entity"
)

// DocumentRepository tracks processed PDFs by content hash.
type DocumentRepository interface {
	Upsert(ctx context.Context, d *entity.Document) error
	GetByHash(ctx context.Context, hash string) (*entity.Document, error)
	ListByStatus(ctx context.Context, status string) ([]entity.Document, error)
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger, now: time.Now}
}

const documentColumns = `id, run_id, content_hash, source_path, pdf_id, output_dir, page_count, table_count,
	used_ocr, method, scheme_count, status, error_message, created_at, updated_at`

// Upsert inserts d or updates the row with the same content hash. On
// return d carries the stored id and created_at.
func (r *documentRepo) Upsert(ctx context.Context, d *entity.Document) error {
	if d.ContentHash == "" {
		return common.NewAppError("DOC_UPSERT", "content hash is required", common.ErrInvalidInput)
	}
	now := r.now().UTC()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.UpdatedAt = now

	var runID sql.NullString
	if d.RunID != nil {
		runID = sql.NullString{String: d.RunID.String(), Valid: true}
	}

	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (content_hash) DO UPDATE SET
			run_id = COALESCE(excluded.run_id, documents.run_id),
			source_path = excluded.source_path,
			pdf_id = excluded.pdf_id,
			output_dir = CASE WHEN excluded.output_dir = '' THEN documents.output_dir ELSE excluded.output_dir END,
			page_count = excluded.page_count,
			table_count = excluded.table_count,
			used_ocr = excluded.used_ocr,
			method = excluded.method,
			scheme_count = excluded.scheme_count,
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
		 RETURNING id, created_at`),
		d.ID.String(), runID, d.ContentHash, d.SourcePath, d.PDFID, d.OutputDir, d.PageCount, d.TableCount,
		d.UsedOCR, d.Method, d.SchemeCount, d.Status, nullString(d.ErrorMessage), now, now)

	var id string
	if err := row.Scan(&id, timeValue{&d.CreatedAt}); err != nil {
		r.logger.Error("failed to upsert document", "content_hash", d.ContentHash, "source_path", d.SourcePath, "error", err)
		return dbError("DOC_UPSERT", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return dbError("DOC_UPSERT", err)
	}
	d.ID = parsed
	r.logger.Debug("document upserted", "document_id", d.ID, "pdf_id", d.PDFID, "status", d.Status)
	return nil
}

func (r *documentRepo) GetByHash(ctx context.Context, hash string) (*entity.Document, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+documentColumns+` FROM documents WHERE content_hash = ?`), hash)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("DOC_GET", hash, common.ErrNotFound)
	}
	if err != nil {
		return nil, dbError("DOC_GET", err)
	}
	return d, nil
}

func (r *documentRepo) ListByStatus(ctx context.Context, status string) ([]entity.Document, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(
		`SELECT `+documentColumns+` FROM documents WHERE status = ? ORDER BY updated_at, id`), status)
	if err != nil {
		return nil, dbError("DOC_LIST", err)
	}
	defer rows.Close()

	var out []entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, dbError("DOC_LIST", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("DOC_LIST", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*entity.Document, error) {
	var (
		d      entity.Document
		id     string
		runID  sql.NullString
		errMsg sql.NullString
	)
	if err := s.Scan(&id, &runID, &d.ContentHash, &d.SourcePath, &d.PDFID, &d.OutputDir, &d.PageCount, &d.TableCount,
		&d.UsedOCR, &d.Method, &d.SchemeCount, &d.Status, &errMsg, timeValue{&d.CreatedAt}, timeValue{&d.UpdatedAt}); err != nil {
		return nil, err
	}
	var err error
	if d.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if runID.Valid {
		rid, err := uuid.Parse(runID.String)
		if err != nil {
			return nil, err
		}
		d.RunID = &rid
	}
	d.ErrorMessage = stringPtr(errMsg)
	return &d, nil
}
