package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ncecere/holy_coop/backend/internal/events"
	"github.com/ncecere/holy_coop/backend/internal/imageutil"
	"github.com/ncecere/holy_coop/backend/internal/models"
	"github.com/ncecere/holy_coop/backend/internal/prompt"
	"github.com/ncecere/holy_coop/backend/internal/providers"
	"github.com/ncecere/holy_coop/backend/internal/storage/blob"
)

// MetadataFilename carries the download filename of an export.
const MetadataFilename = "filename"

const eventTimeout = 30 * time.Second

// ComposeInput is one composition request plus an optional provider subset.
type ComposeInput struct {
	Request     models.GenerationRequest
	ProviderIDs []string
}

// Composition is a finished, successful composition.
type Composition struct {
	ID        string
	Result    models.GenerationResult
	ExportKey string
	Filename  string
}

// Compose runs the orchestrator over the configured lineup (or the requested
// subset), exports the image and emits the composition event. Errors are
// always *models.GenerationError.
func (c *Container) Compose(ctx context.Context, in ComposeInput) (Composition, error) {
	id := uuid.NewString()
	lineup, err := c.lineupFor(in.ProviderIDs)
	if err != nil {
		c.emit(ctx, events.FromOutcome(id, in.Request, models.GenerationResult{}, err, c.clock()))
		return Composition{}, err
	}

	result, err := c.Orchestrator.Generate(ctx, in.Request, lineup)
	if err != nil {
		c.emit(ctx, events.FromOutcome(id, in.Request, result, err, c.clock()))
		return Composition{}, err
	}

	out := Composition{ID: id, Result: result}
	if key, filename, exportErr := c.export(ctx, id, in.Request, result); exportErr != nil {
		c.logger().WarnContext(ctx, "export failed", "id", id, "error", exportErr)
	} else {
		out.ExportKey, out.Filename = key, filename
	}

	evt := events.FromOutcome(id, in.Request, result, nil, c.clock())
	evt.ExportKey = out.ExportKey
	c.emit(ctx, evt)
	return out, nil
}

func (c *Container) lineupFor(ids []string) ([]providers.Provider, error) {
	if len(ids) == 0 {
		return c.Engine.Providers(), nil
	}
	lineup, unknown := c.Engine.Select(ids)
	if len(unknown) > 0 {
		msg := fmt.Sprintf("unknown providers: %s", strings.Join(unknown, ", "))
		return nil, models.NewGenerationError(models.ErrorInvalidRequest, msg, nil, nil)
	}
	return lineup, nil
}

// export re-encodes the image as JPEG and stores it. Images that cannot be
// decoded are stored as returned by the provider.
func (c *Container) export(ctx context.Context, id string, req models.GenerationRequest, result models.GenerationResult) (string, string, error) {
	if c.Exports == nil {
		return "", "", nil
	}
	quality := 0
	if c.Config != nil {
		quality = c.Config.Exports.JPEGQuality
	}
	data, contentType := result.Image, result.MIMEType
	if converted, err := imageutil.ToJPEG(result.Image, quality); err == nil {
		data, contentType = converted, "image/jpeg"
	} else {
		c.logger().DebugContext(ctx, "export kept original encoding", "id", id, "error", err)
	}
	if contentType == "" {
		contentType = models.DetectImageType(data)
	}

	filename := prompt.ExportFilename(req.Subject(), c.clock())
	key := id
	_, err := c.Exports.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			MetadataFilename: filename,
			"provider":       result.ProviderUsed,
		},
	})
	if err != nil {
		return "", "", err
	}
	return key, filename, nil
}

func (c *Container) emit(ctx context.Context, evt events.Event) {
	if c.Events == nil {
		return
	}
	c.eventsWG.Add(1)
	go func() {
		defer c.eventsWG.Done()
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
		defer cancel()
		if err := c.Events.Notify(notifyCtx, evt); err != nil {
			c.logger().WarnContext(notifyCtx, "composition event delivery failed", "id", evt.ID, "error", err)
		}
	}()
}
