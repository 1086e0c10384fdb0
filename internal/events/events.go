// Package events defines the message contracts exchanged between the API
// server and the country processors, plus the topics they travel on.
//
// Delivery is at-least-once with no ordering guarantee across keys, so every
// consumer of these payloads must be idempotent.
package events

import (
	"time"

	"citamed/internal/appointment/models"
)

// Topic names. Creation messages are routed by country: each country has its
// own topic so a processor only ever sees its own traffic. Completion events
// from all countries share one topic.
const (
	TopicAppointmentsPE        = "appointments.pe"
	TopicAppointmentsCL        = "appointments.cl"
	TopicAppointmentsCompleted = "appointments.completed"
)

// countryTopics maps each supported country to its creation topic.
var countryTopics = map[models.CountryCode]string{
	models.CountryPE: TopicAppointmentsPE,
	models.CountryCL: TopicAppointmentsCL,
}

// TopicForCountry returns the creation topic for a country. The bool is false
// for countries outside the supported set; callers validate the country as a
// value object first, so a false here indicates a wiring bug.
func TopicForCountry(c models.CountryCode) (string, bool) {
	topic, ok := countryTopics[c]
	return topic, ok
}

// AllTopics lists every topic the system uses, for topic provisioning.
func AllTopics() []string {
	return []string{TopicAppointmentsPE, TopicAppointmentsCL, TopicAppointmentsCompleted}
}

// AppointmentQueued is the routed creation message: published by the API
// server after the pending appointment is persisted, consumed by the matching
// country processor. String fields carry raw values and are re-validated as
// value objects on the consuming side.
type AppointmentQueued struct {
	AppointmentID string            `json:"appointmentId"`
	InsuredID     string            `json:"insuredId"`
	ScheduleID    int64             `json:"scheduleId"`
	CountryISO    string            `json:"countryISO"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// AppointmentProcessed is the completion event: published by a country
// processor after the transactional upsert commits, consumed by the
// finalizer. It carries no information not derivable from the original
// message plus a timestamp.
type AppointmentProcessed struct {
	EventID       string    `json:"eventId"`
	AppointmentID string    `json:"appointmentId"`
	InsuredID     string    `json:"insuredId"`
	ScheduleID    int64     `json:"scheduleId"`
	CountryISO    string    `json:"countryISO"`
	ProcessedAt   time.Time `json:"processedAt"`
}
