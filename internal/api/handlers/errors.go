package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/acme/call-dispatch/internal/repository"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *apperrors.APIError
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "resource not found")
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fiber.NewError(http.StatusTooManyRequests, apiErr.Error())
		}
		return fiber.NewError(http.StatusBadGateway, apiErr.Error())
	case errors.Is(err, apperrors.ErrTransport):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	case errors.Is(err, apperrors.ErrUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
