package summary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

type fakeClient struct {
	ids      []string
	skip     map[string]bool
	analyzed []string
	goal     string
}

func (f *fakeClient) PlaceCall(context.Context, domain.CallRequest) (map[string]any, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) AnalyzeCall(_ context.Context, callID, goal string, _ []domain.AnalysisQuestion) (domain.CallSummary, bool) {
	f.analyzed = append(f.analyzed, callID)
	f.goal = goal
	if f.skip[callID] {
		return domain.CallSummary{}, false
	}
	return domain.SummaryFromAnswers(callID, map[string]any{"phone_number": "+1" + callID}), true
}

func (f *fakeClient) ListCallsInRange(context.Context, string, string) []string {
	return f.ids
}

type memoryStore struct {
	mu    sync.Mutex
	saved []domain.CallSummary
	err   error
}

func (m *memoryStore) SaveSummary(_ context.Context, s domain.CallSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *memoryStore) ListByDay(context.Context, time.Time) ([]domain.CallSummary, error) {
	return m.saved, nil
}

func TestSummarizeSkipsUnanalyzedCalls(t *testing.T) {
	client := &fakeClient{ids: []string{"c1", "c2", "c3"}, skip: map[string]bool{"c2": true}}
	store := &memoryStore{}
	svc := NewService(client, store, 0, 1, nil)

	got, err := svc.Summarize(context.Background(), "2025-01-29", "2025-01-30", "stock check", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2", "c3"}, client.analyzed)
	assert.Equal(t, "stock check", client.goal)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].CallID)
	assert.Equal(t, "c3", got[1].CallID)
	assert.Equal(t, domain.DefaultNoSummary, got[0].Summary)
	assert.Len(t, store.saved, 2)
}

func TestSummarizeStoreFailureKeepsSummary(t *testing.T) {
	client := &fakeClient{ids: []string{"c1"}}
	svc := NewService(client, &memoryStore{err: errors.New("scylla down")}, 0, 1, nil)

	got, err := svc.Summarize(context.Background(), "2025-01-29", "2025-01-29", "", nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSummarizeNoCalls(t *testing.T) {
	svc := NewService(&fakeClient{}, nil, 0, 1, nil)
	got, err := svc.Summarize(context.Background(), "2025-01-29", "2025-01-30", "", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummarizeRejectsBadWindow(t *testing.T) {
	svc := NewService(&fakeClient{}, nil, 0, 1, nil)

	_, err := svc.Summarize(context.Background(), "01/29/2025", "2025-01-30", "", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Summarize(context.Background(), "2025-01-30", "2025-01-29", "", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSummarizePacesAnalyzeRequests(t *testing.T) {
	client := &fakeClient{ids: []string{"c1", "c2", "c3"}}
	svc := NewService(client, nil, 50, 1, nil)

	start := time.Now()
	_, err := svc.Summarize(context.Background(), "2025-01-29", "2025-01-30", "", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestSummarizeCancelled(t *testing.T) {
	client := &fakeClient{ids: []string{"c1", "c2"}}
	svc := NewService(client, nil, 0.001, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Summarize(ctx, "2025-01-29", "2025-01-30", "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForDayWithoutStore(t *testing.T) {
	svc := NewService(&fakeClient{}, nil, 0, 1, nil)
	_, err := svc.ForDay(context.Background(), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}
