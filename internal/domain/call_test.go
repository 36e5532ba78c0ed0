package domain

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

func TestCallRequestValidateRouting(t *testing.T) {
	cases := []CallRequest{
		{PhoneNumber: "+14155550100", Task: "chat", PathwayID: "pw-1"},
		{PhoneNumber: "+14155550100"},
		{PhoneNumber: "+14155550100", Task: "   "},
		{Task: "chat"},
	}

	for _, tc := range cases {
		err := tc.Validate()
		if err == nil {
			t.Errorf("expected validation error for %+v", tc)
			continue
		}
		if !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	}
}

func TestCallRequestValidateModel(t *testing.T) {
	for _, model := range SupportedModels {
		req := CallRequest{PhoneNumber: "+14155550100", Task: "chat", Model: model}
		if err := req.Validate(); err != nil {
			t.Errorf("model %q: unexpected error %v", model, err)
		}
	}

	for _, model := range []string{"gpt-4", "base", "Enhanced"} {
		req := CallRequest{PhoneNumber: "+14155550100", PathwayID: "pw", Model: model}
		if err := req.Validate(); !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("model %q: expected validation error, got %v", model, err)
		}
	}

	if err := (CallRequest{PhoneNumber: "+14155550100", Task: "chat"}).Validate(); err != nil {
		t.Errorf("absent model must be accepted: %v", err)
	}
}

func TestCallRequestOmitsUnsetFields(t *testing.T) {
	req := CallRequest{
		PhoneNumber:     "+14155550100",
		PathwayID:       "pw-1",
		WaitForGreeting: Bool(false),
		Temperature:     Float(0),
	}

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]bool{"phone_number": true, "pathway_id": true, "wait_for_greeting": true, "temperature": true}
	if len(payload) != len(want) {
		t.Fatalf("unexpected payload keys: %v", payload)
	}
	for key := range payload {
		if !want[key] {
			t.Errorf("unexpected key %q in payload", key)
		}
	}
	if payload["wait_for_greeting"] != false {
		t.Errorf("explicit false must be sent, got %v", payload["wait_for_greeting"])
	}
}

func TestCallResultJSON(t *testing.T) {
	failure := FailureResult("B", errors.New("connection refused"))
	raw, err := json.Marshal(failure)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"phone_number":"B","status":"error","message":"connection refused"}` {
		t.Fatalf("unexpected failure record: %s", raw)
	}

	success := SuccessResult("A", map[string]any{"status": "success", "call_id": "c-1"})
	if success.CallID() != "c-1" {
		t.Fatalf("expected call id c-1, got %q", success.CallID())
	}
	raw, err = json.Marshal(success)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"call_id":"c-1","status":"success"}` {
		t.Fatalf("unexpected success payload: %s", raw)
	}
}

func TestSummaryFromAnswersDefaults(t *testing.T) {
	summary := SummaryFromAnswers("c-9", map[string]any{"phone_number": "+14155550100"})
	if summary.PhoneNumber != "+14155550100" {
		t.Errorf("phone = %q", summary.PhoneNumber)
	}
	if summary.Summary != DefaultNoSummary {
		t.Errorf("summary = %q", summary.Summary)
	}
	if summary.Outcome != DefaultUnknown {
		t.Errorf("outcome = %q", summary.Outcome)
	}
}

func TestAnalysisQuestionWireFormat(t *testing.T) {
	raw, err := json.Marshal([]AnalysisQuestion{{Question: "Was the rifle in stock?", AnswerType: "string"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `[["Was the rifle in stock?","string"]]` {
		t.Fatalf("unexpected wire format: %s", raw)
	}

	var back AnalysisQuestion
	if err := json.Unmarshal([]byte(`["Is it sold out?","boolean"]`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Question != "Is it sold out?" || back.AnswerType != "boolean" {
		t.Fatalf("unexpected question: %+v", back)
	}

	qs := QuestionsFromPairs([][]string{{"a", "string"}, {"broken"}, {"", "string"}})
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
}

func TestCallRequestWithDefaults(t *testing.T) {
	got := CallRequest{PhoneNumber: "A"}.WithDefaults("pw-default", "turbo")
	if got.PathwayID != "pw-default" || got.Model != "turbo" {
		t.Fatalf("defaults not applied: %+v", got)
	}

	got = CallRequest{PhoneNumber: "A", Task: "chat", Model: "enhanced"}.WithDefaults("pw-default", "turbo")
	if got.PathwayID != "" || got.Model != "enhanced" {
		t.Fatalf("explicit values must win: %+v", got)
	}
}
