package public

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/holy_coop/backend/internal/app"
)

// Register wires up the composition API routes.
func Register(r fiber.Router, container *app.Container) {
	group := r.Group("/v1")

	compositions := &compositionHandler{container: container}
	group.Post("/compositions", compositions.create)

	catalog := &catalogHandler{container: container}
	group.Get("/options", catalog.options)
	group.Get("/providers", catalog.providers)

	exports := &exportHandler{container: container}
	group.Get("/exports/:key", exports.download)
}
