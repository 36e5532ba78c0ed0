package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/call-dispatch/internal/domain"
	"github.com/acme/call-dispatch/internal/repository"
)

// BatchRepository implements repository.BatchStore using PostgreSQL.
type BatchRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewBatchRepository constructs a new repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db, now: time.Now}
}

// CreateRun inserts a new batch run.
func (r *BatchRepository) CreateRun(ctx context.Context, run *domain.BatchRun) error {
	q := `INSERT INTO batch_runs (
		id, mode, task, pathway_id, total_items, succeeded, failed, status, started_at, completed_at
	) VALUES (
		:id, :mode, :task, :pathway_id, :total_items, :succeeded, :failed, :status, :started_at, :completed_at
	)`

	if _, err := r.db.NamedExecContext(ctx, q, newRunRecord(run)); err != nil {
		return fmt.Errorf("batch repo: insert run: %w", err)
	}
	return nil
}

// RecordResult stores one item result and bumps the run counters. Replays of
// the same position are ignored.
func (r *BatchRepository) RecordResult(ctx context.Context, batchID uuid.UUID, position int, result domain.CallResult) error {
	record, err := newResultRecord(batchID, position, result, r.now())
	if err != nil {
		return fmt.Errorf("batch repo: encode result: %w", err)
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `INSERT INTO batch_results (
			batch_id, position, phone_number, status, call_id, message, payload, recorded_at
		) VALUES (
			:batch_id, :position, :phone_number, :status, :call_id, :message, :payload, :recorded_at
		) ON CONFLICT (batch_id, position) DO NOTHING`, record)
		if err != nil {
			return fmt.Errorf("batch repo: insert result: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("batch repo: rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}

		column := "failed"
		if result.Succeeded() {
			column = "succeeded"
		}
		q := fmt.Sprintf(`UPDATE batch_runs SET %[1]s = %[1]s + 1 WHERE id = $1`, column)
		if _, err := tx.ExecContext(ctx, q, batchID); err != nil {
			return fmt.Errorf("batch repo: bump %s: %w", column, err)
		}
		return nil
	})
}

// CompleteRun marks a run complete with its final tallies.
func (r *BatchRepository) CompleteRun(ctx context.Context, batchID uuid.UUID, succeeded, failed int, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE batch_runs SET status = $2, succeeded = $3, failed = $4, completed_at = $5 WHERE id = $1`,
		batchID, string(domain.BatchStatusComplete), succeeded, failed, completedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("batch repo: complete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("batch repo: rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetRun fetches a batch run by id.
func (r *BatchRepository) GetRun(ctx context.Context, batchID uuid.UUID) (*domain.BatchRun, error) {
	q := `SELECT id, mode, task, pathway_id, total_items, succeeded, failed, status, started_at, completed_at
	  FROM batch_runs WHERE id = $1`

	var record runRecord
	if err := r.db.QueryRowxContext(ctx, q, batchID).StructScan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("batch repo: get run: %w", err)
	}
	run := record.toDomain()
	return &run, nil
}

// ListResults returns stored results in input order.
func (r *BatchRepository) ListResults(ctx context.Context, batchID uuid.UUID) ([]domain.StoredResult, error) {
	q := `SELECT batch_id, position, phone_number, status, call_id, message, payload, recorded_at
	  FROM batch_results WHERE batch_id = $1 ORDER BY position`

	var records []resultRecord
	if err := r.db.SelectContext(ctx, &records, q, batchID); err != nil {
		return nil, fmt.Errorf("batch repo: list results: %w", err)
	}

	out := make([]domain.StoredResult, 0, len(records))
	for _, rec := range records {
		stored, err := rec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("batch repo: decode result %d: %w", rec.Position, err)
		}
		out = append(out, stored)
	}
	return out, nil
}

type runRecord struct {
	ID          uuid.UUID    `db:"id"`
	Mode        string       `db:"mode"`
	Task        string       `db:"task"`
	PathwayID   string       `db:"pathway_id"`
	TotalItems  int          `db:"total_items"`
	Succeeded   int          `db:"succeeded"`
	Failed      int          `db:"failed"`
	Status      string       `db:"status"`
	StartedAt   time.Time    `db:"started_at"`
	CompletedAt sql.NullTime `db:"completed_at"`
}

func newRunRecord(run *domain.BatchRun) runRecord {
	rec := runRecord{
		ID:         run.ID,
		Mode:       run.Mode,
		Task:       run.Task,
		PathwayID:  run.PathwayID,
		TotalItems: run.TotalItems,
		Succeeded:  run.Succeeded,
		Failed:     run.Failed,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt.UTC(),
	}
	if run.CompletedAt != nil {
		rec.CompletedAt = sql.NullTime{Time: run.CompletedAt.UTC(), Valid: true}
	}
	return rec
}

func (r runRecord) toDomain() domain.BatchRun {
	run := domain.BatchRun{
		ID:         r.ID,
		Mode:       r.Mode,
		Task:       r.Task,
		PathwayID:  r.PathwayID,
		TotalItems: r.TotalItems,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Status:     domain.BatchStatus(r.Status),
		StartedAt:  r.StartedAt,
	}
	if r.CompletedAt.Valid {
		completed := r.CompletedAt.Time
		run.CompletedAt = &completed
	}
	return run
}

type resultRecord struct {
	BatchID     uuid.UUID `db:"batch_id"`
	Position    int       `db:"position"`
	PhoneNumber string    `db:"phone_number"`
	Status      string    `db:"status"`
	CallID      string    `db:"call_id"`
	Message     string    `db:"message"`
	Payload     []byte    `db:"payload"`
	RecordedAt  time.Time `db:"recorded_at"`
}

func newResultRecord(batchID uuid.UUID, position int, result domain.CallResult, now time.Time) (resultRecord, error) {
	rec := resultRecord{
		BatchID:     batchID,
		Position:    position,
		PhoneNumber: result.PhoneNumber,
		Status:      string(result.Status),
		CallID:      result.CallID(),
		Message:     result.Message,
		RecordedAt:  now.UTC(),
	}
	if result.Payload != nil {
		payload, err := json.Marshal(result.Payload)
		if err != nil {
			return resultRecord{}, err
		}
		rec.Payload = payload
	}
	return rec, nil
}

func (r resultRecord) toDomain() (domain.StoredResult, error) {
	result := domain.CallResult{
		PhoneNumber: r.PhoneNumber,
		Status:      domain.ResultStatus(r.Status),
		Message:     r.Message,
	}
	if len(r.Payload) > 0 {
		if err := json.Unmarshal(r.Payload, &result.Payload); err != nil {
			return domain.StoredResult{}, err
		}
	}
	return domain.StoredResult{BatchID: r.BatchID, Position: r.Position, Result: result}, nil
}
