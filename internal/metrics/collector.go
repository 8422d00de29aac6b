// Package metrics exposes Prometheus metrics for the RMI fabric and the
// naming core. Grounded on the teacher's internal/metrics/collector.go
// (github.com/prometheus/client_golang), trimmed to the counters and
// histograms this domain's skeleton/stub/naming-operation surface actually
// produces.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private Prometheus registry and the metrics this
// process records.
type Collector struct {
	enabled bool
	port    int
	server  *http.Server

	registry *prometheus.Registry

	rmiCallsTotal     *prometheus.CounterVec
	rmiCallDuration   *prometheus.HistogramVec
	rmiWorkerPoolSize *prometheus.GaugeVec
	namingOpsTotal    *prometheus.CounterVec
}

// NewCollector constructs a Collector. If enabled is false, every recording
// method is a no-op and Start never binds a listener.
func NewCollector(enabled bool, port int) *Collector {
	c := &Collector{enabled: enabled, port: port}
	if !enabled {
		return c
	}

	c.registry = prometheus.NewRegistry()

	c.rmiCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "distfs",
		Subsystem: "rmi",
		Name:      "calls_total",
		Help:      "Total RMI calls dispatched by a skeleton, by interface, method, and outcome.",
	}, []string{"interface", "method", "outcome"})

	c.rmiCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "distfs",
		Subsystem: "rmi",
		Name:      "call_duration_seconds",
		Help:      "Time spent in the implementation method for one dispatched RMI call.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"interface", "method"})

	c.rmiWorkerPoolSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "distfs",
		Subsystem: "rmi",
		Name:      "worker_pool_size",
		Help:      "Current number of workers (idle or busy) in a skeleton's cached worker pool.",
	}, []string{"interface"})

	c.namingOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "distfs",
		Subsystem: "naming",
		Name:      "operations_total",
		Help:      "Total naming-core operations, by operation and outcome.",
	}, []string{"op", "outcome"})

	c.registry.MustRegister(c.rmiCallsTotal, c.rmiCallDuration, c.rmiWorkerPoolSize, c.namingOpsTotal)
	return c
}

// Start binds the metrics HTTP server in the background. A no-op if the
// collector is disabled.
func (c *Collector) Start() error {
	if !c.enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()
	return nil
}

// Stop shuts down the metrics HTTP server.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

// RecordRMICall records one dispatched RMI call.
func (c *Collector) RecordRMICall(iface, method string, duration time.Duration, failed bool) {
	if !c.enabled {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "failure"
	}
	c.rmiCallsTotal.WithLabelValues(iface, method, outcome).Inc()
	c.rmiCallDuration.WithLabelValues(iface, method).Observe(duration.Seconds())
}

// SetWorkerPoolSize records the current size of a skeleton's worker pool.
func (c *Collector) SetWorkerPoolSize(iface string, size int) {
	if !c.enabled {
		return
	}
	c.rmiWorkerPoolSize.WithLabelValues(iface).Set(float64(size))
}

// RecordNamingOp records one naming-core service or registration operation.
func (c *Collector) RecordNamingOp(op string, failed bool) {
	if !c.enabled {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "failure"
	}
	c.namingOpsTotal.WithLabelValues(op, outcome).Inc()
}
