package httputil

import (
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

func TestStatusForKind(t *testing.T) {
	cases := map[models.ErrorKind]int{
		models.ErrorInvalidRequest:        fiber.StatusUnprocessableEntity,
		models.ErrorAllProvidersExhausted: fiber.StatusBadGateway,
		models.ErrorCanceled:              fiber.StatusRequestTimeout,
		models.ErrorTransientTransport:    fiber.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := StatusForKind(kind); got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
}
