package metrics

import (
	"net/http"
	"strconv"
	"time"

	"pair-quiz-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the service counters. Each Recorder registers on its own
// registry so tests can create as many as they need.
type Recorder struct {
	registry *prometheus.Registry

	events          *prometheus.CounterVec
	answers         *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	liveSubscribers prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pair_quiz_game_events_total",
				Help: "Committed game lifecycle transitions",
			},
			[]string{"type"}, // pair.created, pair.started, pair.finished
		),
		answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pair_quiz_answers_total",
				Help: "Scored answers by outcome",
			},
			[]string{"status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pair_quiz_http_request_duration_seconds",
				Help:    "Time spent serving HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "code"},
		),
		liveSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pair_quiz_live_subscribers",
				Help: "Open websocket subscriptions",
			},
		),
	}
}

func (r *Recorder) ObserveEvent(t domain.EventType) {
	r.events.WithLabelValues(string(t)).Inc()
}

func (r *Recorder) ObserveAnswer(status domain.AnswerStatus) {
	r.answers.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) ObserveRequest(route string, code int, took time.Duration) {
	r.requestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(took.Seconds())
}

func (r *Recorder) SubscriberOpened() { r.liveSubscribers.Inc() }

func (r *Recorder) SubscriberClosed() { r.liveSubscribers.Dec() }

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
