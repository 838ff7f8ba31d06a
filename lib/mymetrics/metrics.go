package mymetrics

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkout"

//go:generate mockgen -source=metrics.go -package mymetrics -destination metrics_mock.go Recorder
type Recorder interface {
	ResolutionObserved(kind string, outcome string)
	OrderObserved(mode string, outcome string)
	VerificationObserved(result string)
	RuntimeLoadObserved(outcome string)
}

// Metrics owns its registry so tests can create as many as they like.
type Metrics struct {
	registry      *prometheus.Registry
	resolutions   *prometheus.CounterVec
	orders        *prometheus.CounterVec
	verifications *prometheus.CounterVec
	runtimeLoads  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Checkout target resolutions by target kind and outcome.",
		}, []string{"kind", "outcome"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order creation attempts by gateway mode and outcome.",
		}, []string{"mode", "outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Payment verifications by result.",
		}, []string{"result"}),
		runtimeLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_runtime_loads_total",
			Help:      "Embedded gateway runtime loads by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(m.resolutions, m.orders, m.verifications, m.runtimeLoads)

	return m
}

func (m *Metrics) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.Handle("/metrics", m.Handler()).Methods("GET")
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ResolutionObserved(kind string, outcome string) {
	m.resolutions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) OrderObserved(mode string, outcome string) {
	m.orders.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) VerificationObserved(result string) {
	m.verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) RuntimeLoadObserved(outcome string) {
	m.runtimeLoads.WithLabelValues(outcome).Inc()
}

// Noop is used where metrics are irrelevant, like in tests.
type Noop struct{}

func (Noop) ResolutionObserved(kind string, outcome string) {}
func (Noop) OrderObserved(mode string, outcome string)      {}
func (Noop) VerificationObserved(result string)             {}
func (Noop) RuntimeLoadObserved(outcome string)             {}
