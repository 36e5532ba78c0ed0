package summary

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/acme/call-dispatch/internal/domain"
	"github.com/acme/call-dispatch/internal/metrics"
	"github.com/acme/call-dispatch/internal/repository"
	"github.com/acme/call-dispatch/internal/telephony"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
	"github.com/acme/call-dispatch/pkg/logger"
)

// Service lists the calls of a date window and analyzes each one.
type Service struct {
	client  telephony.Client
	store   repository.SummaryStore
	limiter *rate.Limiter
	logger  *logger.Logger
	tracer  trace.Tracer
}

// NewService builds the summary service. store may be nil. A non-positive
// rps disables pacing.
func NewService(client telephony.Client, store repository.SummaryStore, rps float64, burst int, lg *logger.Logger) *Service {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	if lg == nil {
		lg = logger.Nop()
	}
	return &Service{
		client:  client,
		store:   store,
		limiter: rate.NewLimiter(limit, burst),
		logger:  lg,
		tracer:  otel.Tracer("calldispatch.summary"),
	}
}

// Summarize analyzes every call placed between startDate and endDate
// (YYYY-MM-DD). Calls the API could not analyze are skipped. Store failures are
// logged and do not drop the summary from the returned list.
func (s *Service) Summarize(ctx context.Context, startDate, endDate, goal string, questions []domain.AnalysisQuestion) ([]domain.CallSummary, error) {
	if err := validateWindow(startDate, endDate); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "summary.summarize", trace.WithAttributes(
		attribute.String("start_date", startDate),
		attribute.String("end_date", endDate),
	))
	defer span.End()

	ids := s.client.ListCallsInRange(ctx, startDate, endDate)
	s.logger.Info("summary: calls found", zap.Int("count", len(ids)), zap.String("start_date", startDate), zap.String("end_date", endDate))

	summaries := make([]domain.CallSummary, 0, len(ids))
	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			return summaries, fmt.Errorf("summary: wait for analyze slot: %w", err)
		}

		summary, ok := s.client.AnalyzeCall(ctx, id, goal, questions)
		if !ok {
			metrics.IncAnalysesSkipped()
			s.logger.Info("summary: call skipped", zap.String("call_id", id))
			continue
		}
		metrics.IncAnalyses()
		summaries = append(summaries, summary)

		if s.store != nil {
			if err := s.store.SaveSummary(ctx, summary); err != nil {
				s.logger.Error("summary: save failed", zap.String("call_id", id), zap.Error(err))
			}
		}
	}

	span.SetAttributes(attribute.Int("summaries", len(summaries)))
	return summaries, nil
}

// ForDay returns stored summaries for a calendar day.
func (s *Service) ForDay(ctx context.Context, day time.Time) ([]domain.CallSummary, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: summary store is not configured", apperrors.ErrUnavailable)
	}
	return s.store.ListByDay(ctx, day)
}

func validateWindow(startDate, endDate string) error {
	start, err := time.Parse(time.DateOnly, startDate)
	if err != nil {
		return fmt.Errorf("%w: start_date must be YYYY-MM-DD", apperrors.ErrValidation)
	}
	end, err := time.Parse(time.DateOnly, endDate)
	if err != nil {
		return fmt.Errorf("%w: end_date must be YYYY-MM-DD", apperrors.ErrValidation)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end_date is before start_date", apperrors.ErrValidation)
	}
	return nil
}
