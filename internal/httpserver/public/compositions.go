package public

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ncecere/holy_coop/backend/internal/app"
	"github.com/ncecere/holy_coop/backend/internal/httpserver/httputil"
	"github.com/ncecere/holy_coop/backend/internal/limits"
	"github.com/ncecere/holy_coop/backend/internal/models"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

type compositionHandler struct {
	container *app.Container
}

type compositionResponse struct {
	ID           string                   `json:"id"`
	ProviderUsed string                   `json:"provider_used"`
	MIMEType     string                   `json:"mime_type"`
	ImageB64     string                   `json:"image_b64"`
	Attempts     []models.ProviderAttempt `json:"attempts"`
	DownloadURL  string                   `json:"download_url,omitempty"`
	Filename     string                   `json:"filename,omitempty"`
	Cost         decimal.Decimal          `json:"cost"`
}

func (h *compositionHandler) create(c *fiber.Ctx) error {
	ctx := c.UserContext()
	client := "ip:" + c.IP()

	req, err := parseCompositionForm(c)
	if err != nil {
		return httputil.WriteGenerationError(c, err)
	}
	providerIDs := splitList(c.FormValue("providers"))

	idempotencyKey := replayKey(client, c.Get(headerIdempotencyKey), req, providerIDs)
	if data, ok := h.container.Idempotency.Get(ctx, idempotencyKey); ok {
		c.Set(headerReplayed, "true")
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}

	release, err := h.container.RateLimiter.Acquire(ctx, client)
	if err != nil {
		if errors.Is(err, limits.ErrLimitExceeded) {
			return httputil.WriteError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	defer release()

	out, err := h.container.Compose(ctx, app.ComposeInput{
		Request:     req,
		ProviderIDs: providerIDs,
	})
	if err != nil {
		return httputil.WriteGenerationError(c, err)
	}

	resp := compositionResponse{
		ID:           out.ID,
		ProviderUsed: out.Result.ProviderUsed,
		MIMEType:     out.Result.MIMEType,
		ImageB64:     base64.StdEncoding.EncodeToString(out.Result.Image),
		Attempts:     out.Result.Attempts,
		Filename:     out.Filename,
		Cost:         out.Result.Cost,
	}
	if out.ExportKey != "" {
		resp.DownloadURL = "/v1/exports/" + out.ExportKey
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "failed to encode response")
	}
	if err := h.container.Idempotency.Set(ctx, idempotencyKey, payload); err != nil {
		h.container.Logger.WarnContext(ctx, "idempotency cache write failed", "error", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

// parseCompositionForm reads the multipart form. A missing photo is passed
// through so the orchestrator reports it like any other invalid request.
func parseCompositionForm(c *fiber.Ctx) (models.GenerationRequest, error) {
	attire, err := models.ParseAttire(c.FormValue("attire"))
	if err != nil {
		return models.GenerationRequest{}, models.NewGenerationError(models.ErrorInvalidRequest, err.Error(), nil, err)
	}
	style, err := models.ParseStyle(c.FormValue("style"))
	if err != nil {
		return models.GenerationRequest{}, models.NewGenerationError(models.ErrorInvalidRequest, err.Error(), nil, err)
	}
	req := models.GenerationRequest{
		SubjectDescription: c.FormValue("subject"),
		Attire:             attire,
		Style:              style,
		AspectRatio:        strings.TrimSpace(c.FormValue("aspect_ratio")),
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return req, nil
	}
	file, err := fh.Open()
	if err != nil {
		return req, models.NewGenerationError(models.ErrorInvalidRequest, "failed to read image upload", nil, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return req, models.NewGenerationError(models.ErrorInvalidRequest, "failed to read image upload", nil, err)
	}
	req.SourceImage = data
	req.MIMEType = fh.Header.Get(fiber.HeaderContentType)
	if req.MIMEType == "application/octet-stream" {
		req.MIMEType = ""
	}
	return req, nil
}

// replayKey scopes an Idempotency-Key to the calling client and the exact
// composition submitted with it. A missing header disables replay.
func replayKey(client, header string, req models.GenerationRequest, providerIDs []string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	h := sha256.New()
	for _, part := range []string{
		client,
		header,
		req.Subject(),
		string(req.Attire.OrDefault()),
		string(req.Style.OrDefault()),
		req.AspectRatio,
		strings.Join(providerIDs, ","),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(req.SourceImage)
	return hex.EncodeToString(h.Sum(nil))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
