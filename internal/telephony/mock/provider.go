package mock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

// Provider simulates the calling API for local runs and demos.
type Provider struct {
	successRate float64
	latency     time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	calls []placedCall
}

type placedCall struct {
	id    string
	phone string
	at    time.Time
}

// NewProvider constructs a mock provider. A zero seed uses the current time.
func NewProvider(successRate float64, latency time.Duration, seed int64) *Provider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Provider{
		successRate: successRate,
		latency:     latency,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// PlaceCall simulates a call attempt.
func (p *Provider) PlaceCall(ctx context.Context, req domain.CallRequest) (map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if p.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, &apperrors.TransportError{Op: "post /v1/calls", Err: ctx.Err()}
		case <-time.After(p.latency):
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng.Float64() > p.successRate {
		if p.rng.Float64() < 0.5 {
			return nil, &apperrors.TransportError{Op: "post /v1/calls", Err: errors.New("simulated connection reset")}
		}
		return nil, &apperrors.APIError{StatusCode: 429, Body: `{"status":"error","message":"simulated rate limit"}`}
	}

	id := uuid.NewString()
	p.calls = append(p.calls, placedCall{id: id, phone: req.PhoneNumber, at: time.Now().UTC()})
	return map[string]any{
		"status":  "success",
		"call_id": id,
		"message": fmt.Sprintf("Call successfully queued to %s", req.PhoneNumber),
	}, nil
}

// AnalyzeCall answers with the phone number of a previously placed call.
func (p *Provider) AnalyzeCall(_ context.Context, callID, _ string, _ []domain.AnalysisQuestion) (domain.CallSummary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.calls {
		if c.id == callID {
			return domain.SummaryFromAnswers(callID, map[string]any{
				"phone_number": c.phone,
				"summary":      "simulated conversation",
			}), true
		}
	}
	return domain.CallSummary{}, false
}

// ListCallsInRange lists placed calls whose day falls inside [startDate, endDate].
func (p *Provider) ListCallsInRange(_ context.Context, startDate, endDate string) []string {
	start, err1 := time.Parse(time.DateOnly, startDate)
	end, err2 := time.Parse(time.DateOnly, endDate)
	if err1 != nil || err2 != nil {
		return []string{}
	}
	end = end.Add(24 * time.Hour)

	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		if !c.at.Before(start) && c.at.Before(end) {
			ids = append(ids, c.id)
		}
	}
	return ids
}
