// Package consumer adapts routed creation messages from Kafka to the country
// processor.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"citamed/internal/events"
	"citamed/internal/platform/kafka/consumer"
)

// Processor handles one routed creation message.
type Processor interface {
	Process(ctx context.Context, msg events.AppointmentQueued) error
}

// Handler decodes AppointmentQueued payloads and hands them to the processor.
type Handler struct {
	processor Processor
	logger    *slog.Logger
}

// NewHandler creates a routed creation message handler.
func NewHandler(processor Processor, logger *slog.Logger) *Handler {
	return &Handler{processor: processor, logger: logger}
}

// Handle processes one routed creation message. Malformed payloads are logged
// and committed so a poison pill cannot block the partition; processor errors
// surface so the transport redelivers or dead-letters the message.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload events.AppointmentQueued
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: malformed routed appointment message",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}
	return h.processor.Process(ctx, payload)
}
