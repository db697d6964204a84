package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"ticketd/internal/apperrors"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(c echo.Context, code int, data any) error {
	return c.JSON(code, APIResponse{Success: true, Data: data})
}

// respondError maps the application error taxonomy onto HTTP statuses.
// Internal errors never leak their message to the caller.
func respondError(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	message := "internal server error"

	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindSignature:
		code = http.StatusBadRequest
		message = err.Error()
	case apperrors.KindNotFound:
		code = http.StatusNotFound
		message = err.Error()
	case apperrors.KindContention:
		code = http.StatusConflict
		message = err.Error()
	case apperrors.KindGateway:
		code = http.StatusBadGateway
		message = err.Error()
	case apperrors.KindUnavailable:
		code = http.StatusServiceUnavailable
		message = err.Error()
	}

	return c.JSON(code, APIResponse{Success: false, Message: message})
}
