package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

type summarizeRequest struct {
	StartDate string                    `json:"start_date"`
	EndDate   string                    `json:"end_date"`
	Goal      string                    `json:"goal"`
	Questions []domain.AnalysisQuestion `json:"questions"`
}

func (h *HandlerSet) summarize(ctx *fiber.Ctx) error {
	var req summarizeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.Goal == "" {
		req.Goal = h.AnalysisGoal
	}
	if len(req.Questions) == 0 {
		req.Questions = h.Questions
	}

	summaries, err := h.Summaries.Summarize(ctx.UserContext(), req.StartDate, req.EndDate, req.Goal, req.Questions)
	if err != nil {
		return translateError(err)
	}
	return ctx.Status(http.StatusOK).JSON(fiber.Map{"summaries": summaries, "count": len(summaries)})
}

func (h *HandlerSet) listSummaries(ctx *fiber.Ctx) error {
	day, err := time.Parse(time.DateOnly, ctx.Query("date"))
	if err != nil {
		return translateError(fmt.Errorf("%w: date must be YYYY-MM-DD", apperrors.ErrValidation))
	}

	summaries, err := h.Summaries.ForDay(ctx.UserContext(), day)
	if err != nil {
		return translateError(err)
	}
	if summaries == nil {
		summaries = []domain.CallSummary{}
	}
	return ctx.Status(http.StatusOK).JSON(fiber.Map{"summaries": summaries, "count": len(summaries)})
}
