// Package metrics exposes the appliance's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fakeyudi/gaslog/internal/state"
)

// Metrics holds every collector on a private registry so that tests and
// multiple servers in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	polls          *prometheus.CounterVec
	rows           prometheus.Counter
	transitions    *prometheus.CounterVec
	recordingState *prometheus.GaugeVec
	control        *prometheus.CounterVec
	publishes      *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gaslog_polls_total",
				Help: "Sensor poll cycles by result",
			},
			[]string{"result"},
		),
		rows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gaslog_rows_written_total",
				Help: "Rows appended to session files",
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gaslog_transitions_total",
				Help: "Recording transitions requested, by action and whether they applied",
			},
			[]string{"action", "applied"},
		),
		recordingState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gaslog_recording_state",
				Help: "1 for the controller's current state, 0 otherwise",
			},
			[]string{"state"},
		),
		control: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gaslog_control_requests_total",
				Help: "Control requests by result (applied, noop, ignored, failed)",
			},
			[]string{"result"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gaslog_publish_total",
				Help: "Samples forwarded to the message broker, by result (ok, timeout, error, dropped)",
			},
			[]string{"result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gaslog_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gaslog_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.polls, m.rows, m.transitions, m.recordingState,
		m.control, m.publishes, m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PollResult(result string) {
	m.polls.WithLabelValues(result).Inc()
}

func (m *Metrics) RowAppended() {
	m.rows.Inc()
}

func (m *Metrics) Transition(action string, applied bool) {
	m.transitions.WithLabelValues(action, strconv.FormatBool(applied)).Inc()
}

// RecordingState sets the gauge for st to 1 and every other state to 0.
func (m *Metrics) RecordingState(st state.Status) {
	for _, s := range []state.Status{state.Idle, state.Active, state.Paused} {
		v := 0.0
		if s == st {
			v = 1
		}
		m.recordingState.WithLabelValues(s.String()).Set(v)
	}
}

func (m *Metrics) ControlRequest(result string) {
	m.control.WithLabelValues(result).Inc()
}

func (m *Metrics) PublishResult(result string) {
	m.publishes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
