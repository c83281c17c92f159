// Package metrics collects and exposes Prometheus metrics for the portal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by orchestrators, middleware and storage.
type Recorder interface {
	RecordEnrollmentSubmission(outcome string)
	RecordLeadCapture(outcome string)
	RecordRoadmapEmail(outcome string)
	RecordPaymentConfirmation(outcome string)
	RecordRequest(method string, status int, duration time.Duration)
	RecordQuery(op string, duration time.Duration)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	enrollments   *prometheus.CounterVec
	leads         *prometheus.CounterVec
	roadmapEmails *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	requests      *prometheus.HistogramVec
	queries       *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
// PRE: reg has no metrics with the same names registered
// POST: all metrics are registered; panics on duplicate registration
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mastery_enrollment_submissions_total",
			Help: "Enrollment submissions by final flow state.",
		}, []string{"outcome"}),
		leads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mastery_lead_captures_total",
			Help: "Roadmap lead submissions by final state.",
		}, []string{"outcome"}),
		roadmapEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mastery_roadmap_emails_total",
			Help: "Roadmap emails handled by the email function.",
		}, []string{"outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mastery_payment_confirmations_total",
			Help: "Admin payment confirmations.",
		}, []string{"outcome"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mastery_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
		queries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mastery_db_query_duration_seconds",
			Help:    "Database call latency.",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.enrollments,
		c.leads,
		c.roadmapEmails,
		c.confirmations,
		c.requests,
		c.queries,
	)
	return c
}

// RecordEnrollmentSubmission counts an enrollment submission outcome.
func (c *Collector) RecordEnrollmentSubmission(outcome string) {
	c.enrollments.WithLabelValues(outcome).Inc()
}

// RecordLeadCapture counts a lead capture outcome.
func (c *Collector) RecordLeadCapture(outcome string) {
	c.leads.WithLabelValues(outcome).Inc()
}

// RecordRoadmapEmail counts a roadmap email outcome.
func (c *Collector) RecordRoadmapEmail(outcome string) {
	c.roadmapEmails.WithLabelValues(outcome).Inc()
}

// RecordPaymentConfirmation counts a payment confirmation outcome.
func (c *Collector) RecordPaymentConfirmation(outcome string) {
	c.confirmations.WithLabelValues(outcome).Inc()
}

// RecordRequest observes one HTTP request.
func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordQuery observes one database call.
func (c *Collector) RecordQuery(op string, duration time.Duration) {
	c.queries.WithLabelValues(op).Observe(duration.Seconds())
}

// Nop discards everything. Used when no collector is wired, mostly in tests.
type Nop struct{}

func (Nop) RecordEnrollmentSubmission(string) {}
func (Nop) RecordLeadCapture(string) {}
func (Nop) RecordRoadmapEmail(string) {}
func (Nop) RecordPaymentConfirmation(string) {}
func (Nop) RecordRequest(string, int, time.Duration) {}
func (Nop) RecordQuery(string, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
