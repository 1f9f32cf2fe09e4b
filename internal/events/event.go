// Package events publishes one notification per orchestration to log and
// webhook sinks.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

type Type string

const (
	TypeCompleted Type = "composition.completed"
	TypeFailed    Type = "composition.failed"
)

// Event describes the outcome of a single composition.
type Event struct {
	ID           string                   `json:"id"`
	Type         Type                     `json:"type"`
	Subject      string                   `json:"subject"`
	Outcome      string                   `json:"outcome"`
	Message      string                   `json:"message,omitempty"`
	ProviderUsed string                   `json:"provider_used,omitempty"`
	Attempts     []models.ProviderAttempt `json:"attempts"`
	Cost         decimal.Decimal          `json:"cost"`
	ExportKey    string                   `json:"export_key,omitempty"`
	Timestamp    time.Time                `json:"timestamp"`
}

// Sink receives composition events.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

// FromOutcome builds the event for a finished orchestration. err is the
// error returned by the orchestrator, nil on success.
func FromOutcome(id string, req models.GenerationRequest, result models.GenerationResult, err error, at time.Time) Event {
	evt := Event{
		ID:        id,
		Subject:   req.Subject(),
		Timestamp: at.UTC(),
	}
	if err == nil {
		evt.Type = TypeCompleted
		evt.Outcome = models.OutcomeSuccess
		evt.ProviderUsed = result.ProviderUsed
		evt.Attempts = result.Attempts
		evt.Cost = result.Cost
		return evt
	}
	evt.Type = TypeFailed
	evt.Message = err.Error()
	var genErr *models.GenerationError
	if errors.As(err, &genErr) {
		evt.Outcome = string(genErr.Kind)
		evt.Message = genErr.Message
		evt.Attempts = genErr.Attempts
	}
	return evt
}
