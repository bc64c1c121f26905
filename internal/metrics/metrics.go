package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its registry so several servers (and tests) can coexist in
// one process. A nil *Collector records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	admissionsTotal     *prometheus.CounterVec
	transitionsTotal    *prometheus.CounterVec
	lockHeldDuration    prometheus.Histogram
	notificationsTotal  *prometheus.CounterVec
	voiceEventsTotal    *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		admissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appointment_admissions_total",
				Help: "Appointment admission attempts by outcome",
			},
			[]string{"outcome"},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appointment_transitions_total",
				Help: "Appointment status transitions by target status",
			},
			[]string{"to", "source"},
		),
		lockHeldDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clinic_lock_held_seconds",
				Help:    "Time spent inside the per-clinic admission lock",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
		),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prescription_notifications_total",
				Help: "Prescription deliveries by channel and outcome",
			},
			[]string{"channel", "success"},
		),
		voiceEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voice_call_events_total",
				Help: "Voice agent call events received over MQTT",
			},
			[]string{"outcome"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.admissionsTotal,
		c.transitionsTotal,
		c.lockHeldDuration,
		c.notificationsTotal,
		c.voiceEventsTotal,
	)
	return c
}

// Registry exposes the underlying registry for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordAdmission counts one admit or reschedule attempt. outcome is one of
// admitted, conflict, invalid, not_found, busy, error.
func (c *Collector) RecordAdmission(outcome string) {
	if c == nil {
		return
	}
	c.admissionsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordTransition(to, source string) {
	if c == nil {
		return
	}
	c.transitionsTotal.WithLabelValues(to, source).Inc()
}

func (c *Collector) ObserveLockHeld(d time.Duration) {
	if c == nil {
		return
	}
	c.lockHeldDuration.Observe(d.Seconds())
}

func (c *Collector) RecordNotification(channel string, success bool) {
	if c == nil {
		return
	}
	c.notificationsTotal.WithLabelValues(channel, strconv.FormatBool(success)).Inc()
}

func (c *Collector) RecordVoiceEvent(outcome string) {
	if c == nil {
		return
	}
	c.voiceEventsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
