package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"citamed/internal/appointment/models"
	"citamed/internal/appointment/service"
	"citamed/internal/platform/middleware"
	dErrors "citamed/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service defines the interface for appointment operations.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*service.CreateResult, error)
	ListByInsured(ctx context.Context, insuredID string) (*service.ListResult, error)
	Cancel(ctx context.Context, appointmentID, reason string) (*models.Appointment, error)
}

// Handler handles appointment endpoints.
type Handler struct {
	logger       *slog.Logger
	appointments Service
}

// New creates a new appointment Handler.
func New(appointments Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		appointments: appointments,
	}
}

// Register registers the appointment routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	apptRouter := chi.NewRouter()
	apptRouter.Use(middleware.Recovery(h.logger))
	apptRouter.Use(middleware.RequestID)
	apptRouter.Use(middleware.Logger(h.logger))
	apptRouter.Post("/appointments", h.handleCreate)
	apptRouter.Get("/appointments/{insuredID}", h.handleList)
	apptRouter.Delete("/appointments/{appointmentID}", h.handleCancel)

	r.Mount("/", apptRouter)
}

// createRequest is the creation payload. ScheduleID is decoded as json.Number
// so non-integral values are rejected as validation failures instead of being
// silently truncated.
type createRequest struct {
	InsuredID  string            `json:"insuredId"`
	ScheduleID json.Number       `json:"scheduleId"`
	CountryISO string            `json:"countryISO"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create appointment request",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	scheduleID, err := req.ScheduleID.Int64()
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "scheduleId must be a positive integer"))
		return
	}

	result, err := h.appointments.Create(ctx, service.CreateInput{
		InsuredID:  req.InsuredID,
		ScheduleID: scheduleID,
		CountryISO: req.CountryISO,
		Metadata:   req.Metadata,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create appointment failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.appointments.ListByInsured(ctx, chi.URLParam(r, "insuredID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	appointmentID := chi.URLParam(r, "appointmentID")
	reason := r.URL.Query().Get("reason")

	appt, err := h.appointments.Cancel(ctx, appointmentID, reason)
	if err != nil {
		h.logger.WarnContext(ctx, "cancel appointment failed",
			"request_id", requestID,
			"appointment_id", appointmentID,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}
