package telephony

import (
	"context"

	"github.com/acme/call-dispatch/internal/domain"
)

// Caller places a single outbound call.
type Caller interface {
	PlaceCall(ctx context.Context, req domain.CallRequest) (map[string]any, error)
}

// Client abstracts the calling API integration.
//
// PlaceCall returns typed errors for every failure. AnalyzeCall and
// ListCallsInRange are best-effort: failures are logged and reported as
// ok=false or an empty slice.
type Client interface {
	Caller
	AnalyzeCall(ctx context.Context, callID, goal string, questions []domain.AnalysisQuestion) (domain.CallSummary, bool)
	ListCallsInRange(ctx context.Context, startDate, endDate string) []string
}
