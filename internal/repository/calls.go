package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pranayab18/Data-Extraction/internal/entity"
)

// CallRepository stores grid search rows.
type CallRepository interface {
	Insert(ctx context.Context, c *entity.GridCall) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]entity.GridCall, error)
}

type callRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewCallRepository(db *DB, logger *slog.Logger) CallRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &callRepo{db: db, logger: logger}
}

func (r *callRepo) Insert(ctx context.Context, c *entity.GridCall) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO grid_calls (id, run_id, req_id, document, field, model, temperature, max_tokens, top_p,
			success, error_message, prompt_tokens, completion_tokens, cost, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID.String(), c.RunID.String(), c.RequestID, c.Document, c.Field, c.Model, c.Temperature, c.MaxTokens, c.TopP,
		c.Success, nullString(c.ErrorMessage), c.PromptTokens, c.CompletionTokens, c.Cost, c.LatencyMs, c.CreatedAt)
	if err != nil {
		r.logger.Error("failed to insert grid call", "run_id", c.RunID, "req_id", c.RequestID, "error", err)
		return dbError("CALL_INSERT", err)
	}
	return nil
}

func (r *callRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]entity.GridCall, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(
		`SELECT id, run_id, req_id, document, field, model, temperature, max_tokens, top_p,
			success, error_message, prompt_tokens, completion_tokens, cost, latency_ms, created_at
		 FROM grid_calls WHERE run_id = ? ORDER BY created_at, id`), runID.String())
	if err != nil {
		return nil, dbError("CALL_LIST", err)
	}
	defer rows.Close()

	var out []entity.GridCall
	for rows.Next() {
		var (
			c            entity.GridCall
			id, runIDRaw string
			errMsg       sql.NullString
		)
		if err := rows.Scan(&id, &runIDRaw, &c.RequestID, &c.Document, &c.Field, &c.Model, &c.Temperature, &c.MaxTokens, &c.TopP,
			&c.Success, &errMsg, &c.PromptTokens, &c.CompletionTokens, &c.Cost, &c.LatencyMs, timeValue{&c.CreatedAt}); err != nil {
			return nil, dbError("CALL_LIST", err)
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, dbError("CALL_LIST", err)
		}
		if c.RunID, err = uuid.Parse(runIDRaw); err != nil {
			return nil, dbError("CALL_LIST", err)
		}
		c.ErrorMessage = stringPtr(errMsg)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("CALL_LIST", err)
	}
	return out, nil
}
