package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/location"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, validation_failed, position_unavailable, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errDomain maps core errors onto status codes.
func errDomain(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return newError(c, fiber.StatusUnprocessableEntity, "validation_failed", verr.Message)
	case errors.Is(err, location.ErrInvalidFix):
		return newError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrPositionUnavailable):
		return newError(c, fiber.StatusConflict, "position_unavailable", err.Error())
	case errors.Is(err, domain.ErrEmptyCandidateSet):
		return newError(c, fiber.StatusConflict, "no_candidates", err.Error())
	case errors.Is(err, location.ErrNotAuthorized):
		return newError(c, fiber.StatusConflict, "not_authorized", err.Error())
	case errors.Is(err, location.ErrUnknownDecision):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrConfiguration):
		return newError(c, fiber.StatusInternalServerError, "configuration_error", err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "error", err)
		return errInternal(c, "internal error")
	}
}
