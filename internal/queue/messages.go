package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/acme/call-dispatch/internal/domain"
)

// ResultMessage is the event emitted when a batch item reaches a terminal state.
type ResultMessage struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	Position    int             `json:"position"`
	PhoneNumber string          `json:"phone_number"`
	Status      string          `json:"status"`
	CallID      string          `json:"call_id,omitempty"`
	Message     string          `json:"message,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func newResultMessage(batchID uuid.UUID, position int, result domain.CallResult, now time.Time) (ResultMessage, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return ResultMessage{}, err
	}
	return ResultMessage{
		BatchID:     batchID,
		Position:    position,
		PhoneNumber: result.PhoneNumber,
		Status:      string(result.Status),
		CallID:      result.CallID(),
		Message:     result.Message,
		Payload:     payload,
		OccurredAt:  now.UTC(),
	}, nil
}
