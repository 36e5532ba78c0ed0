package bland

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/call-dispatch/internal/config"
	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.BlandConfig{BaseURL: srv.URL, APIKey: "sk-test", RequestTimeout: 2 * time.Second}, nil)
	return client, &hits
}

func TestPlaceCallRejectsInvalidRoutingWithoutNetwork(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})

	cases := []domain.CallRequest{
		{PhoneNumber: "+14155550100", Task: "chat", PathwayID: "pw-1"},
		{PhoneNumber: "+14155550100"},
		{PhoneNumber: "+14155550100", Task: "chat", Model: "gpt-4"},
	}
	for _, req := range cases {
		_, err := client.PlaceCall(context.Background(), req)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestPlaceCallSendsOnlySetFields(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/calls", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"status":"success","call_id":"c-123"}`))
	})

	payload, err := client.PlaceCall(context.Background(), domain.CallRequest{
		PhoneNumber:     "+14155550100",
		PathwayID:       "pw-1",
		FirstSentence:   "Hey, is this the store in Bellingham?",
		WaitForGreeting: domain.Bool(true),
		Model:           "enhanced",
	})
	require.NoError(t, err)
	assert.Equal(t, "c-123", payload["call_id"])
	assert.Equal(t, "sk-test", gotAuth)

	assert.Equal(t, map[string]any{
		"phone_number":      "+14155550100",
		"pathway_id":        "pw-1",
		"first_sentence":    "Hey, is this the store in Bellingham?",
		"wait_for_greeting": true,
		"model":             "enhanced",
	}, gotBody)
}

func TestPlaceCallNonSuccessStatus(t *testing.T) {
	body := `{"status":"error","message":"insufficient balance"}`
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	})

	_, err := client.PlaceCall(context.Background(), domain.CallRequest{PhoneNumber: "+14155550100", Task: "chat"})
	require.Error(t, err)

	var apiErr *apperrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, body, apiErr.Body)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.ErrorIs(t, err, apperrors.ErrAPI)
}

func TestPlaceCallMalformedResponse(t *testing.T) {
	for _, body := range []string{`{"call_id":"c-1"}`, `<html>bad gateway</html>`, ``} {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		_, err := client.PlaceCall(context.Background(), domain.CallRequest{PhoneNumber: "+14155550100", Task: "chat"})
		var apiErr *apperrors.APIError
		require.True(t, errors.As(err, &apiErr), "body %q", body)
		assert.Equal(t, "failed call", apiErr.Message)
	}
}

func TestPlaceCallTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(config.BlandConfig{BaseURL: url, APIKey: "k", RequestTimeout: time.Second}, nil)
	_, err := client.PlaceCall(context.Background(), domain.CallRequest{PhoneNumber: "+14155550100", Task: "chat"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.NotErrorIs(t, err, apperrors.ErrAPI)
}

func TestAnalyzeCallDefaults(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/calls/c-42/analyze", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"status":"success","answers":{"phone_number":"+14155550100"}}`))
	})

	summary, ok := client.AnalyzeCall(context.Background(), "c-42", "check stock", []domain.AnalysisQuestion{
		{Question: "Was the rifle in stock?", AnswerType: "string"},
	})
	require.True(t, ok)
	assert.Equal(t, "c-42", summary.CallID)
	assert.Equal(t, "+14155550100", summary.PhoneNumber)
	assert.Equal(t, domain.DefaultNoSummary, summary.Summary)
	assert.Equal(t, domain.DefaultUnknown, summary.Outcome)

	assert.Equal(t, "check stock", gotBody["goal"])
	assert.Equal(t, []any{[]any{"Was the rifle in stock?", "string"}}, gotBody["questions"])
}

func TestAnalyzeCallNoResult(t *testing.T) {
	responses := []struct {
		code int
		body string
	}{
		{http.StatusOK, `{"status":"error","message":"call not found"}`},
		{http.StatusInternalServerError, `oops`},
		{http.StatusOK, `not json`},
	}

	for _, resp := range responses {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(resp.code)
			_, _ = w.Write([]byte(resp.body))
		})
		_, ok := client.AnalyzeCall(context.Background(), "c-1", "goal", nil)
		assert.False(t, ok, "response %d %q", resp.code, resp.body)
	}
}

func TestListCallsInRange(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/calls", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("ascending"))
		assert.Equal(t, "2025-01-29", q.Get("start_date"))
		assert.Equal(t, "2025-01-30", q.Get("end_date"))
		_, _ = w.Write([]byte(`{"calls":[{"call_id":"c-1"},{"call_id":""},{"call_id":"c-2"}]}`))
	})

	ids := client.ListCallsInRange(context.Background(), "2025-01-29", "2025-01-30")
	assert.Equal(t, []string{"c-1", "c-2"}, ids)
}

func TestListCallsInRangeFailuresReturnEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(config.BlandConfig{BaseURL: url, APIKey: "k", RequestTimeout: time.Second}, nil)
	ids := client.ListCallsInRange(context.Background(), "2025-01-29", "2025-01-30")
	require.NotNil(t, ids)
	assert.Empty(t, ids)

	failing, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.Empty(t, failing.ListCallsInRange(context.Background(), "a", "b"))
}
