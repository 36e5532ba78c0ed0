package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

// ErrNotFound indicates the entity was not located.
var ErrNotFound = apperrors.ErrNotFound

// BatchStore persists batch runs and their per-item results. It doubles as a
// dispatcher result sink so results land as soon as each item finishes.
type BatchStore interface {
	CreateRun(ctx context.Context, run *domain.BatchRun) error
	RecordResult(ctx context.Context, batchID uuid.UUID, position int, result domain.CallResult) error
	CompleteRun(ctx context.Context, batchID uuid.UUID, succeeded, failed int, completedAt time.Time) error
	GetRun(ctx context.Context, batchID uuid.UUID) (*domain.BatchRun, error)
	ListResults(ctx context.Context, batchID uuid.UUID) ([]domain.StoredResult, error)
}

// SummaryStore keeps analyzed call summaries bucketed by day.
type SummaryStore interface {
	SaveSummary(ctx context.Context, summary domain.CallSummary) error
	ListByDay(ctx context.Context, day time.Time) ([]domain.CallSummary, error)
}
