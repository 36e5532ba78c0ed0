package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/acme/call-dispatch/internal/dispatcher"
	"github.com/acme/call-dispatch/internal/domain"
	batchsvc "github.com/acme/call-dispatch/internal/service/batch"
)

type createBatchRequest struct {
	PhoneNumbers []string           `json:"phone_numbers"`
	Items        []domain.WorkItem  `json:"items"`
	Mode         string             `json:"mode"`
	Call         domain.CallRequest `json:"call"`
}

type batchResponse struct {
	ID          uuid.UUID          `json:"id"`
	Mode        string             `json:"mode"`
	Task        string             `json:"task,omitempty"`
	PathwayID   string             `json:"pathway_id,omitempty"`
	Status      domain.BatchStatus `json:"status"`
	TotalItems  int                `json:"total_items"`
	Succeeded   int                `json:"succeeded"`
	Failed      int                `json:"failed"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

type batchWithResultsResponse struct {
	Batch   batchResponse       `json:"batch"`
	Results []domain.CallResult `json:"results"`
}

func (h *HandlerSet) createBatch(ctx *fiber.Ctx) error {
	var req createBatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	items := append([]domain.WorkItem(nil), req.Items...)
	for _, n := range req.PhoneNumbers {
		items = append(items, domain.WorkItem{PhoneNumber: n})
	}
	input := batchsvc.Input{Items: items, Template: req.Call, Mode: dispatcher.Mode(req.Mode)}

	if h.Batches.HasStore() {
		run, err := h.Batches.Start(ctx.UserContext(), input)
		if err != nil {
			return translateError(err)
		}
		ctx.Set(fiber.HeaderLocation, "/api/v1/batches/"+run.ID.String())
		return ctx.Status(http.StatusAccepted).JSON(fiber.Map{"batch": toBatchResponse(run)})
	}

	run, results, err := h.Batches.Run(ctx.UserContext(), input)
	if err != nil {
		return translateError(err)
	}
	return ctx.Status(http.StatusOK).JSON(batchWithResultsResponse{Batch: toBatchResponse(run), Results: results})
}

func (h *HandlerSet) getBatch(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid batch id")
	}

	run, stored, err := h.Batches.Get(ctx.UserContext(), id)
	if err != nil {
		return translateError(err)
	}

	results := make([]domain.CallResult, len(stored))
	for i, r := range stored {
		results[i] = r.Result
	}
	return ctx.Status(http.StatusOK).JSON(batchWithResultsResponse{Batch: toBatchResponse(run), Results: results})
}

func toBatchResponse(run *domain.BatchRun) batchResponse {
	return batchResponse{
		ID:          run.ID,
		Mode:        run.Mode,
		Task:        run.Task,
		PathwayID:   run.PathwayID,
		Status:      run.Status,
		TotalItems:  run.TotalItems,
		Succeeded:   run.Succeeded,
		Failed:      run.Failed,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}
}
