package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/acme/call-dispatch/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS call_summaries_by_day (
		bucket       date,
		call_id      text,
		phone_number text,
		summary      text,
		outcome      text,
		analyzed_at  timestamp,
		PRIMARY KEY ((bucket), call_id)
	)`,
}

// SummaryStore persists analyzed call summaries in Scylla, one partition per day.
type SummaryStore struct {
	session *gocql.Session
}

// NewSummaryStore creates a new summary store.
func NewSummaryStore(session *gocql.Session) *SummaryStore {
	return &SummaryStore{session: session}
}

// EnsureSchema creates the summary table in the session keyspace.
func (s *SummaryStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("summary store: ensure schema: %w", err)
		}
	}
	return nil
}

// SaveSummary upserts a summary into the partition of the day it was analyzed.
func (s *SummaryStore) SaveSummary(ctx context.Context, summary domain.CallSummary) error {
	analyzedAt := summary.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now().UTC()
	}
	if err := s.session.Query(`INSERT INTO call_summaries_by_day (bucket, call_id, phone_number, summary, outcome, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		bucketDate(analyzedAt), summary.CallID, summary.PhoneNumber, summary.Summary, summary.Outcome, analyzedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("summary store: insert: %w", err)
	}
	return nil
}

// ListByDay returns every summary analyzed on day (UTC).
func (s *SummaryStore) ListByDay(ctx context.Context, day time.Time) ([]domain.CallSummary, error) {
	iter := s.session.Query(`SELECT call_id, phone_number, summary, outcome, analyzed_at
		FROM call_summaries_by_day WHERE bucket = ?`, bucketDate(day),
	).WithContext(ctx).Iter()

	var (
		out     []domain.CallSummary
		summary domain.CallSummary
	)
	for iter.Scan(&summary.CallID, &summary.PhoneNumber, &summary.Summary, &summary.Outcome, &summary.AnalyzedAt) {
		out = append(out, summary)
		summary = domain.CallSummary{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("summary store: list: %w", err)
	}
	return out, nil
}

func bucketDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
