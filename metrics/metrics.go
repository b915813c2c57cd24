// Package metrics exports dispatch outcomes as Prometheus metrics.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/birkland/drs"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name
const Namespace = "drs"

// Collector counts dispatched calls by operation, route and outcome.  It satisfies
// dispatch.Observer.
type Collector struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Dispatched DRS calls by operation, route and outcome",
		}, []string{"op", "route", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent resolving and calling backends",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"op", "route"}),
	}

	for _, col := range []prometheus.Collector{c.requests, c.duration} {
		if err := c.registry.Register(col); err != nil {
			return nil, errors.Wrap(err, "could not register dispatch metrics")
		}
	}

	return c, nil
}

// Observe records a single call
func (c *Collector) Observe(op string, route drs.Route, kind drs.Kind, elapsed time.Duration) {
	c.requests.WithLabelValues(op, route.String(), kind.String()).Inc()
	c.duration.WithLabelValues(op, route.String()).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, e.g. for tests or for mounting elsewhere
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until ctx is done
func (c *Collector) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "metrics listener on %s failed", addr)
	}
	return nil
}
