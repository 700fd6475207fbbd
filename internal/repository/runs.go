package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/entity"
)

type RunRepository interface {
	Start(ctx context.Context, kind constants.RunKind) (*entity.Run, error)
	Finish(ctx context.Context, run *entity.Run) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Run, error)
}

type runRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepo{db: db, logger: logger, now: time.Now}
}

func (r *runRepo) Start(ctx context.Context, kind constants.RunKind) (*entity.Run, error) {
	run := &entity.Run{
		ID:        uuid.New(),
		Kind:      string(kind),
		Status:    string(constants.RunStatusRunning),
		StartedAt: r.now().UTC(),
	}
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO runs (id, kind, status, started_at) VALUES (?, ?, ?, ?)`),
		run.ID.String(), run.Kind, run.Status, run.StartedAt)
	if err != nil {
		r.logger.Error("failed to start run", "kind", kind, "error", err)
		return nil, dbError("RUN_START", err)
	}
	r.logger.Info("run started", "run_id", run.ID, "kind", kind)
	return run, nil
}

// Finish stores the counters on run and stamps finished_at. An empty
// status becomes SUCCEEDED, or FAILED when ErrorMessage is set.
func (r *runRepo) Finish(ctx context.Context, run *entity.Run) error {
	now := r.now().UTC()
	run.FinishedAt = &now
	if run.Status == "" || run.Status == string(constants.RunStatusRunning) {
		run.Status = string(constants.RunStatusSucceeded)
		if run.ErrorMessage != nil {
			run.Status = string(constants.RunStatusFailed)
		}
	}
	res, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`UPDATE runs SET status = ?, finished_at = ?, requests = ?, failures = ?, total_tokens = ?, total_cost = ?, error_message = ?
		 WHERE id = ?`),
		run.Status, now, run.Requests, run.Failures, run.TotalTokens, run.TotalCost, nullString(run.ErrorMessage), run.ID.String())
	if err != nil {
		r.logger.Error("failed to finish run", "run_id", run.ID, "error", err)
		return dbError("RUN_FINISH", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewAppError("RUN_FINISH", run.ID.String(), common.ErrNotFound)
	}
	r.logger.Info("run finished", "run_id", run.ID, "status", run.Status, "requests", run.Requests, "failures", run.Failures)
	return nil
}

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, kind, status, started_at, finished_at, requests, failures, total_tokens, total_cost, error_message
		 FROM runs WHERE id = ?`), id.String())

	var (
		run      entity.Run
		rawID    string
		finished time.Time
		errMsg   sql.NullString
	)
	err := row.Scan(&rawID, &run.Kind, &run.Status, timeValue{&run.StartedAt}, timeValue{&finished},
		&run.Requests, &run.Failures, &run.TotalTokens, &run.TotalCost, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("RUN_GET", id.String(), common.ErrNotFound)
	}
	if err != nil {
		return nil, dbError("RUN_GET", err)
	}
	if run.ID, err = uuid.Parse(rawID); err != nil {
		return nil, dbError("RUN_GET", err)
	}
	if !finished.IsZero() {
		run.FinishedAt = &finished
	}
	run.ErrorMessage = stringPtr(errMsg)
	return &run, nil
}

func dbError(code string, err error) error {
	return common.NewAppError(code, err.Error(), errors.Join(common.ErrDatabase, err))
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
