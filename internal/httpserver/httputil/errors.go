package httputil

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

// WriteError standardizes JSON error responses.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// ErrorBody is the JSON shape of a failed composition.
type ErrorBody struct {
	Error    string                   `json:"error"`
	Kind     models.ErrorKind         `json:"kind"`
	Attempts []models.ProviderAttempt `json:"attempts"`
}

// StatusForKind maps a terminal orchestration failure to an HTTP status.
func StatusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrorInvalidRequest:
		return fiber.StatusUnprocessableEntity
	case models.ErrorAllProvidersExhausted:
		return fiber.StatusBadGateway
	case models.ErrorCanceled:
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// WriteGenerationError renders an orchestration failure with its attempt trail.
func WriteGenerationError(c *fiber.Ctx, err error) error {
	var genErr *models.GenerationError
	if !errors.As(err, &genErr) {
		return WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	attempts := genErr.Attempts
	if attempts == nil {
		attempts = []models.ProviderAttempt{}
	}
	return c.Status(StatusForKind(genErr.Kind)).JSON(ErrorBody{
		Error:    genErr.Message,
		Kind:     genErr.Kind,
		Attempts: attempts,
	})
}
