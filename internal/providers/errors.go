package providers

import (
	"context"
	"errors"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

// Classify maps an adapter error onto the failure taxonomy.
func Classify(err error) models.ErrorKind {
	if err == nil {
		return ""
	}
	var perr *models.ProviderError
	if errors.As(err, &perr) {
		if perr.Kind != "" {
			return perr.Kind
		}
		if perr.Status > 0 {
			return models.KindForStatus(perr.Status)
		}
	}
	if errors.Is(err, context.Canceled) {
		return models.ErrorCanceled
	}
	// deadlines, dial and read failures, and anything unrecognised
	return models.ErrorTransientTransport
}

// Reason extracts a human readable failure reason.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var perr *models.ProviderError
	if errors.As(err, &perr) {
		if perr.Message != "" {
			return perr.Message
		}
		if perr.Cause != nil {
			return perr.Cause.Error()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "provider call timed out"
	}
	return err.Error()
}
