package vertex

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

type predictRequest struct {
	Instances  []imageInstance `json:"instances"`
	Parameters imageParameters `json:"parameters"`
}

type imageInstance struct {
	Prompt          string           `json:"prompt"`
	ReferenceImages []referenceImage `json:"referenceImages,omitempty"`
}

type imageParameters struct {
	SampleCount      int    `json:"sampleCount"`
	AspectRatio      string `json:"aspectRatio,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
	IncludeRAIReason bool   `json:"includeRaiReason"`
}

type referenceImage struct {
	ReferenceType  string             `json:"referenceType"`
	ReferenceID    int                `json:"referenceId,omitempty"`
	ReferenceImage referenceImageData `json:"referenceImage"`
}

type referenceImageData struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
}

type predictResponse struct {
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	BytesBase64       string `json:"bytesBase64Encoded"`
	MimeType          string `json:"mimeType"`
	RAIFilteredReason string `json:"raiFilteredReason"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// convertPredictResponse returns the first decodable image; a prediction that
// only carries raiFilteredReason is reported as a safety block.
func convertPredictResponse(resp predictResponse) (models.ImageOutcome, error) {
	if len(resp.Predictions) == 0 {
		return models.ImageOutcome{}, errors.New("vertex image response missing predictions")
	}
	var filtered string
	for _, pred := range resp.Predictions {
		encoded := strings.TrimSpace(pred.BytesBase64)
		if encoded == "" {
			if filtered == "" {
				filtered = strings.TrimSpace(pred.RAIFilteredReason)
			}
			continue
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return models.ImageOutcome{}, fmt.Errorf("vertex decode image: %w", err)
		}
		mimeType := pred.MimeType
		if mimeType == "" {
			mimeType = models.DetectImageType(data)
		}
		return models.ImageOutcome{Image: data, MIMEType: mimeType}, nil
	}
	if filtered != "" {
		return models.ImageOutcome{Blocked: true, BlockReason: filtered}, nil
	}
	return models.ImageOutcome{}, errors.New("vertex image response empty")
}

func decodeAPIError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := ""
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		message = strings.TrimSpace(apiErr.Error.Message)
	}
	if message == "" {
		message = fmt.Sprintf("HTTP Error %d", resp.StatusCode)
	}
	kind := models.KindForStatus(resp.StatusCode)
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "responsible ai") {
		kind = models.ErrorContentPolicyBlocked
	}
	return models.NewProviderError(provider, kind, resp.StatusCode, message, nil)
}
