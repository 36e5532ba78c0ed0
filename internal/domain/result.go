package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResultStatus is the terminal outcome recorded for a dispatched item.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusError   ResultStatus = "error"
)

// ItemState tracks a single work item through a batch run.
type ItemState string

const (
	ItemStatePending     ItemState = "pending"
	ItemStateDispatching ItemState = "dispatching"
	ItemStateSucceeded   ItemState = "succeeded"
	ItemStateFailed      ItemState = "failed"
)

// BatchStatus is the lifecycle of a whole batch run.
type BatchStatus string

const (
	BatchStatusPending  BatchStatus = "pending"
	BatchStatusRunning  BatchStatus = "running"
	BatchStatusComplete BatchStatus = "complete"
)

// WorkItem is one phone number to dial, with an optional per-number opening line.
type WorkItem struct {
	PhoneNumber   string `json:"phone_number"`
	FirstSentence string `json:"first_sentence,omitempty"`
}

// CallResult is either the remote success payload or a failure record.
type CallResult struct {
	PhoneNumber string
	Status      ResultStatus
	Payload     map[string]any
	Message     string
}

// SuccessResult wraps a payload returned by the calling API.
func SuccessResult(phone string, payload map[string]any) CallResult {
	return CallResult{PhoneNumber: phone, Status: ResultStatusSuccess, Payload: payload}
}

// FailureResult builds the error record for a failed item.
func FailureResult(phone string, err error) CallResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return CallResult{PhoneNumber: phone, Status: ResultStatusError, Message: msg}
}

// Succeeded reports whether the item reached the succeeded state.
func (r CallResult) Succeeded() bool {
	return r.Status == ResultStatusSuccess
}

// CallID extracts the remote call identifier from a success payload.
func (r CallResult) CallID() string {
	if r.Payload == nil {
		return ""
	}
	switch v := r.Payload["call_id"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// MarshalJSON writes the payload as-is for successes and the
// {phone_number, status, message} record for failures.
func (r CallResult) MarshalJSON() ([]byte, error) {
	if r.Succeeded() {
		payload := r.Payload
		if payload == nil {
			payload = map[string]any{"status": string(ResultStatusSuccess)}
		}
		return json.Marshal(payload)
	}
	return json.Marshal(struct {
		PhoneNumber string       `json:"phone_number"`
		Status      ResultStatus `json:"status"`
		Message     string       `json:"message"`
	}{r.PhoneNumber, ResultStatusError, r.Message})
}

// BatchRun is the stored view of a batch execution.
type BatchRun struct {
	ID          uuid.UUID
	Mode        string
	Task        string
	PathwayID   string
	TotalItems  int
	Succeeded   int
	Failed      int
	Status      BatchStatus
	StartedAt   time.Time
	CompletedAt *time.Time
}

// StoredResult is one persisted result row, keyed by its input position.
type StoredResult struct {
	BatchID  uuid.UUID
	Position int
	Result   CallResult
}
