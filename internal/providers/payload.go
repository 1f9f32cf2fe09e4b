package providers

import (
	"github.com/ncecere/holy_coop/backend/internal/models"
	"github.com/ncecere/holy_coop/backend/internal/prompt"
)

// BuildPayload shapes the request for one provider: edit-capable providers get
// the photo inline, text-only providers get a descriptive prompt alone.
func BuildPayload(cfg models.ProviderConfig, req models.GenerationRequest) models.ImagePayload {
	payload := models.ImagePayload{AspectRatio: req.AspectRatio}
	if cfg.Capability.AcceptsImage() {
		img := req.Image()
		img.ContentType = img.MIMEType()
		payload.Image = &img
		payload.Prompt = prompt.ForImage(req)
		return payload
	}
	payload.Prompt = prompt.ForText(req)
	return payload
}
