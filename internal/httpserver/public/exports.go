package public

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/holy_coop/backend/internal/app"
	"github.com/ncecere/holy_coop/backend/internal/httpserver/httputil"
	"github.com/ncecere/holy_coop/backend/internal/storage/blob"
)

type exportHandler struct {
	container *app.Container
}

func (h *exportHandler) download(c *fiber.Ctx) error {
	if h.container.Exports == nil {
		return httputil.WriteError(c, fiber.StatusNotFound, "exports are disabled")
	}
	key := strings.TrimSpace(c.Params("key"))
	if key == "" || strings.ContainsAny(key, `/\`) {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid export key")
	}
	rc, info, err := h.container.Exports.Get(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return httputil.WriteError(c, fiber.StatusNotFound, "export not found")
		}
		return httputil.WriteError(c, fiber.StatusInternalServerError, "failed to read export")
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "failed to read export")
	}

	filename := info.Metadata[app.MetadataFilename]
	if filename == "" {
		filename = key + ".jpg"
	}
	c.Attachment(filename)
	contentType := info.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}
