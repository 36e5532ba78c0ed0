package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultUnknown   = "Unknown"
	DefaultNoSummary = "No summary available"
)

// AnalysisQuestion pairs a question with the answer type the API should extract.
// It is sent as a two element array: [question, answer_type].
type AnalysisQuestion struct {
	Question   string
	AnswerType string
}

func (q AnalysisQuestion) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{q.Question, q.AnswerType})
}

func (q *AnalysisQuestion) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("analysis question: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("analysis question: expected [question, answer_type], got %d elements", len(pair))
	}
	q.Question, q.AnswerType = pair[0], pair[1]
	return nil
}

// QuestionsFromPairs converts configuration pairs into questions, skipping malformed rows.
func QuestionsFromPairs(pairs [][]string) []AnalysisQuestion {
	out := make([]AnalysisQuestion, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 || p[0] == "" {
			continue
		}
		out = append(out, AnalysisQuestion{Question: p[0], AnswerType: p[1]})
	}
	return out
}

// CallSummary is the extracted outcome of an analyzed call.
type CallSummary struct {
	CallID      string    `json:"call_id"`
	PhoneNumber string    `json:"phone_number"`
	Summary     string    `json:"summary"`
	Outcome     string    `json:"outcome"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// SummaryFromAnswers reads the three known fields, falling back to defaults.
func SummaryFromAnswers(callID string, answers map[string]any) CallSummary {
	return CallSummary{
		CallID:      callID,
		PhoneNumber: answerString(answers, "phone_number", DefaultUnknown),
		Summary:     answerString(answers, "summary", DefaultNoSummary),
		Outcome:     answerString(answers, "outcome", DefaultUnknown),
		AnalyzedAt:  time.Now().UTC(),
	}
}

func answerString(answers map[string]any, key, fallback string) string {
	v, ok := answers[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
