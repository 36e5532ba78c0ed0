package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/acme/call-dispatch/internal/domain"
	"github.com/acme/call-dispatch/internal/phone"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

func (h *HandlerSet) placeCall(ctx *fiber.Ctx) error {
	var req domain.CallRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	req = req.WithDefaults(h.DefaultPathwayID, h.DefaultModel)
	if h.Region != "" && req.PhoneNumber != "" {
		normalized, err := phone.Normalize(req.PhoneNumber, h.Region)
		if err != nil {
			return translateError(err)
		}
		req.PhoneNumber = normalized
	}

	payload, err := h.Client.PlaceCall(ctx.UserContext(), req)
	if err != nil {
		return translateError(err)
	}
	return ctx.Status(http.StatusOK).JSON(payload)
}

type analyzeCallRequest struct {
	Goal      string                    `json:"goal"`
	Questions []domain.AnalysisQuestion `json:"questions"`
}

func (h *HandlerSet) analyzeCall(ctx *fiber.Ctx) error {
	callID := ctx.Params("id")
	if callID == "" {
		return fiber.NewError(http.StatusBadRequest, "call id is required")
	}

	var req analyzeCallRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid request body")
		}
	}
	if req.Goal == "" {
		req.Goal = h.AnalysisGoal
	}
	if len(req.Questions) == 0 {
		req.Questions = h.Questions
	}

	summary, ok := h.Client.AnalyzeCall(ctx.UserContext(), callID, req.Goal, req.Questions)
	if !ok {
		return fiber.NewError(http.StatusBadGateway, fmt.Sprintf("no analysis available for call %s", callID))
	}
	return ctx.Status(http.StatusOK).JSON(summary)
}

func (h *HandlerSet) listCalls(ctx *fiber.Ctx) error {
	startDate, endDate := ctx.Query("start_date"), ctx.Query("end_date")
	for name, value := range map[string]string{"start_date": startDate, "end_date": endDate} {
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			return translateError(fmt.Errorf("%w: %s must be YYYY-MM-DD", apperrors.ErrValidation, name))
		}
	}

	ids := h.Client.ListCallsInRange(ctx.UserContext(), startDate, endDate)
	return ctx.Status(http.StatusOK).JSON(fiber.Map{"call_ids": ids, "count": len(ids)})
}
