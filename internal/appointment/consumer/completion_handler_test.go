package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citamed/internal/events"
	"citamed/internal/platform/kafka/consumer"
	dErrors "citamed/pkg/domain-errors"
	"citamed/pkg/platform/sentinel"
)

type fakeFinalizer struct {
	calls    int
	lastID   string
	lastMeta map[string]string
	err      error
}

func (f *fakeFinalizer) Complete(_ context.Context, appointmentID string, extraMetadata map[string]string) error {
	f.calls++
	f.lastID = appointmentID
	f.lastMeta = extraMetadata
	return f.err
}

func completionMessage(t *testing.T, event events.AppointmentProcessed) *consumer.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return &consumer.Message{
		Topic: events.TopicAppointmentsCompleted,
		Key:   []byte(event.AppointmentID),
		Value: value,
	}
}

func TestCompletionHandler(t *testing.T) {
	processedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := events.AppointmentProcessed{
		EventID:       "evt-0001",
		AppointmentID: "APT-a1b2c3d4",
		InsuredID:     "00123",
		ScheduleID:    42,
		CountryISO:    "PE",
		ProcessedAt:   processedAt,
	}

	t.Run("finalizes appointment with processing metadata", func(t *testing.T) {
		finalizer := &fakeFinalizer{}
		handler := NewCompletionHandler(finalizer, slog.Default())

		err := handler.Handle(context.Background(), completionMessage(t, event))
		require.NoError(t, err)
		assert.Equal(t, 1, finalizer.calls)
		assert.Equal(t, "APT-a1b2c3d4", finalizer.lastID)
		assert.Equal(t, processedAt.Format(time.RFC3339Nano), finalizer.lastMeta[metadataKeyProcessedAt])
		assert.Equal(t, "PE", finalizer.lastMeta[metadataKeyProcessedCountry])
	})

	t.Run("malformed payload is committed without finalizing", func(t *testing.T) {
		finalizer := &fakeFinalizer{}
		handler := NewCompletionHandler(finalizer, slog.Default())

		err := handler.Handle(context.Background(), &consumer.Message{
			Topic: events.TopicAppointmentsCompleted,
			Value: []byte("{not json"),
		})
		require.NoError(t, err)
		assert.Zero(t, finalizer.calls)
	})

	t.Run("redelivery against completed appointment is committed", func(t *testing.T) {
		finalizer := &fakeFinalizer{
			err: dErrors.Wrap(sentinel.ErrAlreadyUsed, dErrors.CodeConflict, "appointment already completed: APT-a1b2c3d4"),
		}
		handler := NewCompletionHandler(finalizer, slog.Default())

		err := handler.Handle(context.Background(), completionMessage(t, event))
		require.NoError(t, err)
		assert.Equal(t, 1, finalizer.calls)
	})

	t.Run("other finalizer errors surface for redelivery", func(t *testing.T) {
		finalizer := &fakeFinalizer{err: errors.New("store unavailable")}
		handler := NewCompletionHandler(finalizer, slog.Default())

		err := handler.Handle(context.Background(), completionMessage(t, event))
		require.Error(t, err)
	})
}
