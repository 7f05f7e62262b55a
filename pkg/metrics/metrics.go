// Package metrics exports event emitter activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// Collector implements events.Observer. Pass it to events.WithObserver or
// events.WithEmitterObserver.
type Collector struct {
	registry    *prometheus.Registry
	httpHandler fasthttp.RequestHandler

	registered  *prometheus.CounterVec
	emitted     *prometheus.CounterVec
	panicked    *prometheus.CounterVec
	unsupported *prometheus.CounterVec
	fanout      *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if namespace == "" {
		namespace = "nativekit"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	labels := []string{"class", "event"}

	c := &Collector{registry: prometheus.NewRegistry()}
	c.registered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "listeners_registered_total",
		Help:      "Total number of listener registrations",
	}, labels)
	c.emitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "emitted_total",
		Help:      "Total number of emitted events",
	}, labels)
	c.panicked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "listener_panics_total",
		Help:      "Total number of recovered listener panics",
	}, labels)
	c.unsupported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "unsupported_total",
		Help:      "Total number of registrations for events no layer recognizes",
	}, labels)
	c.fanout = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "emit_listeners",
		Help:      "Number of listeners invoked per emit",
		Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
	}, labels)

	c.registry.MustRegister(c.registered, c.emitted, c.panicked, c.unsupported, c.fanout)

	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
	c.httpHandler = fasthttpadaptor.NewFastHTTPHandler(handler)

	logger.Debug("event metrics initialized", zap.String("namespace", namespace))
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ServeHTTP writes the metrics in the Prometheus exposition format.
func (c *Collector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	c.httpHandler(ctx)
}

func (c *Collector) Registered(class, event string) {
	c.registered.WithLabelValues(class, event).Inc()
}

func (c *Collector) Emitted(class, event string, listeners int) {
	c.emitted.WithLabelValues(class, event).Inc()
	c.fanout.WithLabelValues(class, event).Observe(float64(listeners))
}

func (c *Collector) ListenerPanicked(class, event string) {
	c.panicked.WithLabelValues(class, event).Inc()
}

func (c *Collector) Unsupported(class, event string) {
	c.unsupported.WithLabelValues(class, event).Inc()
}
