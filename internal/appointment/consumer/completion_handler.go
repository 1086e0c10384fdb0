// Package consumer adapts completion events from Kafka to the appointment
// finalizer.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"citamed/internal/events"
	"citamed/internal/platform/kafka/consumer"
	"citamed/pkg/platform/sentinel"
)

// Metadata keys recorded on the aggregate during finalization.
const (
	metadataKeyProcessedAt      = "processedAt"
	metadataKeyProcessedCountry = "processedCountry"
)

// Finalizer applies the completion transition to an appointment.
type Finalizer interface {
	Complete(ctx context.Context, appointmentID string, extraMetadata map[string]string) error
}

// CompletionHandler decodes AppointmentProcessed events and finalizes the
// referenced appointment.
type CompletionHandler struct {
	finalizer Finalizer
	logger    *slog.Logger
}

// NewCompletionHandler creates a completion event handler.
func NewCompletionHandler(finalizer Finalizer, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{finalizer: finalizer, logger: logger}
}

// Handle finalizes one appointment. Redelivery against an appointment that is
// already completed is a benign consequence of at-least-once delivery: it is
// logged and committed, not dead-lettered. Malformed payloads are likewise
// committed so a poison pill cannot block the partition. Every other failure
// (unknown id, illegal transition, store outage) surfaces so the transport
// owns the redelivery or dead-letter decision.
func (h *CompletionHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload events.AppointmentProcessed
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: malformed completion event",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	err := h.finalizer.Complete(ctx, payload.AppointmentID, map[string]string{
		metadataKeyProcessedAt:      payload.ProcessedAt.Format(time.RFC3339Nano),
		metadataKeyProcessedCountry: payload.CountryISO,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			h.logger.InfoContext(ctx, "completion redelivered for finalized appointment",
				"appointment_id", payload.AppointmentID,
				"event_id", payload.EventID,
			)
			return nil
		}
		return err
	}

	h.logger.InfoContext(ctx, "appointment finalized",
		"appointment_id", payload.AppointmentID,
		"event_id", payload.EventID,
	)
	return nil
}
