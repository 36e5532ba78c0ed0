package dispatcher

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

// BatchJob is an ordered list of work items sharing one call configuration.
type BatchJob struct {
	id       uuid.UUID
	items    []domain.WorkItem
	template domain.CallRequest
}

// NewBatchJob validates the shared configuration once. The template's
// PhoneNumber is ignored; every item supplies its own.
func NewBatchJob(items []domain.WorkItem, template domain.CallRequest) (*BatchJob, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: batch needs at least one phone number", apperrors.ErrValidation)
	}
	if err := domain.ValidateRouting(template.Task, template.PathwayID); err != nil {
		return nil, err
	}

	copied := make([]domain.WorkItem, len(items))
	for i, item := range items {
		item.PhoneNumber = strings.TrimSpace(item.PhoneNumber)
		copied[i] = item
	}
	template.PhoneNumber = ""

	return &BatchJob{id: uuid.New(), items: copied, template: template}, nil
}

// NewBatchJobFromNumbers is NewBatchJob for plain phone numbers.
func NewBatchJobFromNumbers(numbers []string, template domain.CallRequest) (*BatchJob, error) {
	items := make([]domain.WorkItem, len(numbers))
	for i, n := range numbers {
		items[i] = domain.WorkItem{PhoneNumber: n}
	}
	return NewBatchJob(items, template)
}

func (j *BatchJob) ID() uuid.UUID { return j.id }

func (j *BatchJob) Len() int { return len(j.items) }

// Items returns a copy of the work items in input order.
func (j *BatchJob) Items() []domain.WorkItem {
	out := make([]domain.WorkItem, len(j.items))
	copy(out, j.items)
	return out
}

// Template returns the shared call configuration.
func (j *BatchJob) Template() domain.CallRequest { return j.template }

// request builds the call request for item i. A per-item first sentence
// overrides the shared one.
func (j *BatchJob) request(i int) domain.CallRequest {
	req := j.template
	item := j.items[i]
	req.PhoneNumber = item.PhoneNumber
	if item.FirstSentence != "" {
		req.FirstSentence = item.FirstSentence
	}
	return req
}
