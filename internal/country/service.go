// Package country processes routed appointment messages for one country.
//
// One Service instance is bound to one CountryCode at startup; topic routing
// already guarantees a processor only sees its own country's messages, so the
// CanHandle guard exists to turn a routing misconfiguration into a loud
// failure instead of a silently misfiled record.
package country

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apptmetrics "citamed/internal/appointment/metrics"
	"citamed/internal/appointment/models"
	"citamed/internal/country/store"
	"citamed/internal/events"
	dErrors "citamed/pkg/domain-errors"
	"citamed/pkg/requestcontext"
)

// EventPublisher publishes completion events to the shared completion topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) (string, error)
}

// IDGenerator produces event identifiers.
type IDGenerator interface {
	NewID() string
}

// Service persists routed appointments into one country's store and emits the
// completion signal.
type Service struct {
	country models.CountryCode
	store   store.Store
	events  EventPublisher
	ids     IDGenerator
	logger  *slog.Logger
	metrics *apptmetrics.Metrics
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables processing metrics.
func WithMetrics(m *apptmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a processor bound to one country.
func New(country models.CountryCode, st store.Store, publisher EventPublisher, ids IDGenerator, opts ...Option) (*Service, error) {
	if !country.IsValid() {
		return nil, fmt.Errorf("unsupported country: %q", country)
	}
	if st == nil {
		return nil, errors.New("country store is required")
	}
	if publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	s := &Service{
		country: country,
		store:   st,
		events:  publisher,
		ids:     ids,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Country returns the bound country.
func (s *Service) Country() models.CountryCode {
	return s.country
}

// CanHandle reports whether this instance is bound to the given country.
func (s *Service) CanHandle(country models.CountryCode) bool {
	return s.country == country
}

// Process validates the routed message, reconstructs the aggregate, upserts
// it into the country store, and publishes the completion event.
//
// Re-entrancy: the upsert is idempotent and the completion event carries no
// state of its own, so redelivering the same message any number of times
// converges on the same stored record.
func (s *Service) Process(ctx context.Context, msg events.AppointmentQueued) error {
	insuredID, err := models.ParseInsuredID(msg.InsuredID)
	if err != nil {
		return err
	}
	country, err := models.ParseCountryCode(msg.CountryISO)
	if err != nil {
		return err
	}
	status, err := models.ParseStatus(msg.Status)
	if err != nil {
		return err
	}

	if !s.CanHandle(country) {
		return dErrors.Newf(dErrors.CodeValidation, "processor bound to %s cannot handle country %s", s.country, country)
	}

	now := requestcontext.Now(ctx)
	appt := models.Reconstruct(
		msg.AppointmentID,
		insuredID,
		msg.ScheduleID,
		country,
		status,
		msg.CreatedAt,
		now,
		nil,
		msg.Metadata,
	)

	if err := s.store.Upsert(ctx, appt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, fmt.Sprintf("failed to process appointment in %s store", s.country))
	}
	if s.metrics != nil {
		s.metrics.IncrementProcessed(s.country.String())
	}

	event := events.AppointmentProcessed{
		EventID:       s.ids.NewID(),
		AppointmentID: appt.ID,
		InsuredID:     appt.InsuredID.String(),
		ScheduleID:    appt.ScheduleID,
		CountryISO:    appt.Country.String(),
		ProcessedAt:   now,
	}
	// A publish failure leaves the record stored but unsignalled; redelivery
	// replays the idempotent upsert and retries the publish.
	if _, err := s.events.Publish(ctx, events.TopicAppointmentsCompleted, appt.ID, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to publish completion event")
	}

	s.logger.InfoContext(ctx, "appointment processed",
		"appointment_id", appt.ID,
		"country", s.country.String(),
		"event_id", event.EventID,
	)
	return nil
}
