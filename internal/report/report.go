package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

var (
	resultHeaders  = []string{"phone_number", "status", "call_id", "message"}
	summaryHeaders = []string{"Call ID", "Phone Number", "Summary", "Outcome"}
)

// WriteResultsCSV writes one row per result in input order.
func WriteResultsCSV(w io.Writer, results []domain.CallResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeaders); err != nil {
		return err
	}
	for _, r := range results {
		message := r.Message
		if r.Succeeded() {
			message, _ = r.Payload["message"].(string)
		}
		if err := cw.Write([]string{r.PhoneNumber, string(r.Status), r.CallID(), message}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResultsJSONL writes each result as one JSON document per line.
// Successes carry the remote payload unchanged.
func WriteResultsJSONL(w io.Writer, results []domain.CallResult) error {
	enc := json.NewEncoder(w)
	for i, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode result %d: %w", i, err)
		}
	}
	return nil
}

// WriteSummariesCSV writes the per-call summary report.
func WriteSummariesCSV(w io.Writer, summaries []domain.CallSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeaders); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := cw.Write([]string{s.CallID, s.PhoneNumber, s.Summary, s.Outcome}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPhoneNumbersCSV loads work items. When the first row names a phone
// column (phone, phone_number or "Phone Number") it is treated as a header and
// an optional first_sentence column is honoured; otherwise the first column of
// every row is the number. Blank rows are skipped.
func ReadPhoneNumbersCSV(r io.Reader) ([]domain.WorkItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	phoneCol, sentenceCol := 0, -1
	var items []domain.WorkItem
	for row := 0; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read phone numbers: %v", apperrors.ErrValidation, err)
		}

		if row == 0 {
			if p, s, ok := headerColumns(record); ok {
				phoneCol, sentenceCol = p, s
				continue
			}
		}

		if phoneCol >= len(record) {
			continue
		}
		number := strings.TrimSpace(record[phoneCol])
		if number == "" {
			continue
		}
		item := domain.WorkItem{PhoneNumber: number}
		if sentenceCol >= 0 && sentenceCol < len(record) {
			item.FirstSentence = strings.TrimSpace(record[sentenceCol])
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no phone numbers found", apperrors.ErrValidation)
	}
	return items, nil
}

func headerColumns(record []string) (phoneCol, sentenceCol int, ok bool) {
	phoneCol, sentenceCol = -1, -1
	for i, name := range record {
		switch headerKey(name) {
		case "phone", "phone_number":
			if phoneCol < 0 {
				phoneCol = i
			}
		case "first_sentence":
			sentenceCol = i
		}
	}
	if phoneCol < 0 {
		return 0, -1, false
	}
	return phoneCol, sentenceCol, true
}

func headerKey(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "_")
}
