// Package service orchestrates the appointment lifecycle: creation with
// routed hand-off to a country processor, finalization from completion
// events, cancellation, and the listing query.
//
// The service never retries internally. The single compensating action it
// owns is the failed transition after a publish failure; every other error
// propagates to the invoking layer, which decides on retry or dead-letter.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"citamed/internal/appointment/cache"
	apptmetrics "citamed/internal/appointment/metrics"
	"citamed/internal/appointment/models"
	"citamed/internal/appointment/store"
	"citamed/internal/events"
	dErrors "citamed/pkg/domain-errors"
	"citamed/pkg/platform/sentinel"
	"citamed/pkg/requestcontext"
)

const (
	appointmentIDPrefix = "APT"

	// createdMessage is the user-facing acknowledgement for a creation
	// request. Creation is accepted, not finished: the country processor and
	// finalizer run asynchronously.
	createdMessage = "appointment scheduling is in progress"

	// publishFailureReason is recorded in metadata by the compensating
	// transition when the routed message cannot be published.
	publishFailureReason = "Failed to publish appointment message"
)

// MessagePublisher publishes a JSON payload keyed by appointment id and
// returns a delivery identifier.
type MessagePublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) (string, error)
}

// IDGenerator produces opaque unique identifiers.
type IDGenerator interface {
	NewID() string
	NewPrefixedID(prefix string) string
}

// Service coordinates appointment state between the central store and the
// message broker.
type Service struct {
	store     store.Store
	publisher MessagePublisher
	ids       IDGenerator
	listCache *cache.ListCache
	logger    *slog.Logger
	metrics   *apptmetrics.Metrics
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

// WithMetrics enables appointment metrics.
func WithMetrics(m *apptmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithListCache enables the Redis list cache. A nil cache disables caching.
func WithListCache(c *cache.ListCache) Option {
	return func(s *Service) {
		s.listCache = c
	}
}

// New constructs the appointment service.
func New(st store.Store, publisher MessagePublisher, ids IDGenerator, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("appointment store is required")
	}
	if publisher == nil {
		return nil, errors.New("message publisher is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	s := &Service{
		store:     st,
		publisher: publisher,
		ids:       ids,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateInput carries the raw creation request. ScheduleID arrives already
// decoded as an integer; the transport layer rejects non-integral values.
type CreateInput struct {
	InsuredID  string
	ScheduleID int64
	CountryISO string
	Metadata   map[string]string
}

// CreateResult is the creation acknowledgement returned to the caller before
// the downstream stages run.
type CreateResult struct {
	AppointmentID string    `json:"appointmentId"`
	InsuredID     string    `json:"insuredId"`
	ScheduleID    int64     `json:"scheduleId"`
	CountryISO    string    `json:"countryISO"`
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Create validates the request, persists a pending appointment, and publishes
// the routed creation message for the matching country processor.
//
// Ordering is strict: nothing is published unless the conditional insert
// succeeded. When the publish fails the appointment is marked failed and the
// error surfaces to the caller; the caller never sees success unless both the
// insert and the publish succeeded.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	start := time.Now()
	defer s.observeCreate(start)

	insuredID, err := models.ParseInsuredID(in.InsuredID)
	if err != nil {
		return nil, err
	}
	country, err := models.ParseCountryCode(in.CountryISO)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	appt, err := models.New(s.ids.NewPrefixedID(appointmentIDPrefix), insuredID, in.ScheduleID, country, in.Metadata, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, appt); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "appointment already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist appointment")
	}
	s.listCache.Invalidate(ctx, insuredID.String())

	topic, ok := events.TopicForCountry(country)
	if !ok {
		// Unreachable after ParseCountryCode; indicates a wiring bug.
		return nil, dErrors.Newf(dErrors.CodeInternal, "no topic configured for country %s", country)
	}

	deliveryID, err := s.publisher.Publish(ctx, topic, appt.ID, events.AppointmentQueued{
		AppointmentID: appt.ID,
		InsuredID:     appt.InsuredID.String(),
		ScheduleID:    appt.ScheduleID,
		CountryISO:    appt.Country.String(),
		Status:        appt.Status.String(),
		CreatedAt:     appt.CreatedAt,
		Metadata:      appt.Metadata,
	})
	if err != nil {
		s.compensatePublishFailure(ctx, appt, now)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, fmt.Sprintf("failed to process appointment %s", appt.ID))
	}

	s.logger.InfoContext(ctx, "appointment scheduled",
		"appointment_id", appt.ID,
		"insured_id", appt.InsuredID.String(),
		"country", appt.Country.String(),
		"delivery_id", deliveryID,
	)
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}

	return &CreateResult{
		AppointmentID: appt.ID,
		InsuredID:     appt.InsuredID.String(),
		ScheduleID:    appt.ScheduleID,
		CountryISO:    appt.Country.String(),
		Status:        appt.Status.String(),
		Message:       createdMessage,
		CreatedAt:     appt.CreatedAt,
	}, nil
}

// compensatePublishFailure marks the appointment failed and persists that
// state so it is never left pending with no message in flight. A failure of
// the compensation itself is logged and dropped: the original publish error
// is the one the caller must see.
func (s *Service) compensatePublishFailure(ctx context.Context, appt *models.Appointment, now time.Time) {
	if s.metrics != nil {
		s.metrics.IncrementPublishFailures()
	}
	if err := appt.Fail(publishFailureReason, now); err != nil {
		s.logger.ErrorContext(ctx, "compensating transition rejected",
			"appointment_id", appt.ID,
			"status", appt.Status.String(),
			"error", err,
		)
		return
	}
	if err := s.store.Update(ctx, appt); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist compensating transition",
			"appointment_id", appt.ID,
			"error", err,
		)
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementFailed()
	}
}

// Complete finalizes an appointment after its country processor reported
// success. Absence is fatal for the operation; an appointment that is already
// completed returns a sentinel.ErrAlreadyUsed-wrapped conflict so the
// transport boundary can treat redelivery as a benign no-op.
func (s *Service) Complete(ctx context.Context, appointmentID string, extraMetadata map[string]string) error {
	if appointmentID == "" {
		return dErrors.New(dErrors.CodeValidation, "appointmentId cannot be empty")
	}

	appt, err := s.store.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("appointment not found: %s", appointmentID))
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load appointment")
	}

	if appt.Status == models.StatusCompleted {
		return dErrors.Wrap(sentinel.ErrAlreadyUsed, dErrors.CodeConflict, fmt.Sprintf("appointment already completed: %s", appointmentID))
	}

	if err := appt.Complete(requestcontext.Now(ctx)); err != nil {
		return err
	}
	appt.MergeMetadata(extraMetadata)

	if err := s.store.Update(ctx, appt); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("appointment not found: %s", appointmentID))
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist completed appointment")
	}
	s.listCache.Invalidate(ctx, appt.InsuredID.String())

	s.logger.InfoContext(ctx, "appointment completed", "appointment_id", appt.ID)
	if s.metrics != nil {
		s.metrics.IncrementCompleted()
	}
	return nil
}

// Cancel applies the cancellation transition. Appointments are never deleted;
// this is the disposition for delete requests.
func (s *Service) Cancel(ctx context.Context, appointmentID, reason string) (*models.Appointment, error) {
	if appointmentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "appointmentId cannot be empty")
	}

	appt, err := s.store.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("appointment not found: %s", appointmentID))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load appointment")
	}

	if err := appt.Cancel(reason, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, appt); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("appointment not found: %s", appointmentID))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist cancelled appointment")
	}
	s.listCache.Invalidate(ctx, appt.InsuredID.String())

	s.logger.InfoContext(ctx, "appointment cancelled", "appointment_id", appt.ID)
	if s.metrics != nil {
		s.metrics.IncrementCancelled()
	}
	return appt, nil
}

// ListResult is the listing projection for one insured.
type ListResult struct {
	Appointments []*models.Appointment `json:"appointments"`
	Total        int                   `json:"total"`
	InsuredID    string                `json:"insuredId"`
}

// ListByInsured returns the insured's appointments, newest first. The result
// is cached per insured id when a list cache is configured; writes through
// this service invalidate the entry.
func (s *Service) ListByInsured(ctx context.Context, rawInsuredID string) (*ListResult, error) {
	insuredID, err := models.ParseInsuredID(rawInsuredID)
	if err != nil {
		return nil, err
	}

	if payload, ok := s.listCache.Get(ctx, insuredID.String()); ok {
		var cached ListResult
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	appts, err := s.store.ListByInsured(ctx, insuredID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list appointments")
	}
	if appts == nil {
		appts = []*models.Appointment{}
	}

	result := &ListResult{
		Appointments: appts,
		Total:        len(appts),
		InsuredID:    insuredID.String(),
	}
	if payload, err := json.Marshal(result); err == nil {
		s.listCache.Set(ctx, insuredID.String(), payload)
	}
	return result, nil
}

func (s *Service) observeCreate(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCreate(start)
	}
}
