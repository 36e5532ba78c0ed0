package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

func sampleResults() []domain.CallResult {
	return []domain.CallResult{
		domain.SuccessResult("A", map[string]any{"status": "success", "call_id": "c-1", "message": "Call successfully queued."}),
		domain.FailureResult("B", errors.New("post /v1/calls: connection reset")),
	}
}

func TestWriteResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, sampleResults()))

	want := "phone_number,status,call_id,message\n" +
		"A,success,c-1,Call successfully queued.\n" +
		"B,error,,post /v1/calls: connection reset\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteResultsJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsJSONL(&buf, sampleResults()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"status":"success","call_id":"c-1","message":"Call successfully queued."}`, lines[0])
	assert.JSONEq(t, `{"phone_number":"B","status":"error","message":"post /v1/calls: connection reset"}`, lines[1])
}

func TestWriteSummariesCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSummariesCSV(&buf, []domain.CallSummary{
		{CallID: "c-1", PhoneNumber: "+14155552671", Summary: "Asked about hours, store opens at 9", Outcome: "Resolved"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Call ID,Phone Number,Summary,Outcome\nc-1,+14155552671,\"Asked about hours, store opens at 9\",Resolved\n", buf.String())
}

func TestReadPhoneNumbersCSVWithoutHeader(t *testing.T) {
	items, err := ReadPhoneNumbersCSV(strings.NewReader("+14155552671,ignored\n\n 4155550000 \n"))
	require.NoError(t, err)
	assert.Equal(t, []domain.WorkItem{{PhoneNumber: "+14155552671"}, {PhoneNumber: "4155550000"}}, items)
}

func TestReadPhoneNumbersCSVWithHeader(t *testing.T) {
	input := "Address,Phone Number,first_sentence\n" +
		"1 Main St,(415) 555-2671,Hi is this the Main St store?\n" +
		"2 Side St,(415) 555-0000,\n"
	items, err := ReadPhoneNumbersCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []domain.WorkItem{
		{PhoneNumber: "(415) 555-2671", FirstSentence: "Hi is this the Main St store?"},
		{PhoneNumber: "(415) 555-0000"},
	}, items)
}

func TestReadPhoneNumbersCSVEmpty(t *testing.T) {
	_, err := ReadPhoneNumbersCSV(strings.NewReader("phone\n"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
