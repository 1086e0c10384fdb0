package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the appointment module.
// Tracks lifecycle counts per terminal path and the creation critical path.
type Metrics struct {
	Created         prometheus.Counter
	Completed       prometheus.Counter
	Failed          prometheus.Counter
	Cancelled       prometheus.Counter
	PublishFailures prometheus.Counter
	Processed       *prometheus.CounterVec
	CreateDuration  prometheus.Histogram
}

// New creates a new Metrics instance with all appointment module metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citamed_appointments_created_total",
			Help: "Total number of appointments created",
		}),
		Completed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citamed_appointments_completed_total",
			Help: "Total number of appointments finalized as completed",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citamed_appointments_failed_total",
			Help: "Total number of appointments marked failed after a publish failure",
		}),
		Cancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citamed_appointments_cancelled_total",
			Help: "Total number of appointments cancelled",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citamed_appointment_publish_failures_total",
			Help: "Total number of failed routed message publishes",
		}),
		Processed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "citamed_appointments_processed_total",
			Help: "Total number of appointments processed into a country store",
		}, []string{"country"}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "citamed_appointment_create_duration_seconds",
			Help:    "Duration of appointment creation (persist plus publish path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCreated records a successfully scheduled appointment.
func (m *Metrics) IncrementCreated() {
	m.Created.Inc()
}

// IncrementCompleted records a finalized appointment.
func (m *Metrics) IncrementCompleted() {
	m.Completed.Inc()
}

// IncrementFailed records a compensating failure transition.
func (m *Metrics) IncrementFailed() {
	m.Failed.Inc()
}

// IncrementCancelled records a cancellation.
func (m *Metrics) IncrementCancelled() {
	m.Cancelled.Inc()
}

// IncrementPublishFailures records a routed message publish failure.
func (m *Metrics) IncrementPublishFailures() {
	m.PublishFailures.Inc()
}

// IncrementProcessed records a country store upsert.
func (m *Metrics) IncrementProcessed(country string) {
	m.Processed.WithLabelValues(country).Inc()
}

// ObserveCreate records the duration of a Create operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}
