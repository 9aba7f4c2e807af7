package zpool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/collectors/version"
)

const exporterNamespace = "zpool_prometheus"

// exporterMetrics describes the exporter run itself. They are appended to the output when
// enabled.
type exporterMetrics struct {
	registry *prometheus.Registry

	poolsExported  prometheus.Counter
	poolErrors     prometheus.Counter
	categoryErrors *prometheus.CounterVec
	duration       prometheus.Gauge
}

func newExporterMetrics(runtime bool) *exporterMetrics {
	m := &exporterMetrics{
		registry: prometheus.NewRegistry(),
		poolsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: exporterNamespace,
			Name:      "pools_exported_total",
			Help:      "Pools whose statistics were written.",
		}),
		poolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: exporterNamespace,
			Name:      "pool_errors_total",
			Help:      "Pools skipped because their statistics could not be read.",
		}),
		categoryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: exporterNamespace,
			Name:      "category_errors_total",
			Help:      "Statistic categories that failed for a pool.",
		}, []string{"category"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: exporterNamespace,
			Name:      "duration_seconds",
			Help:      "Time spent reading and writing pool statistics.",
		}),
	}
	m.registry.MustRegister(m.poolsExported, m.poolErrors, m.categoryErrors, m.duration)
	if runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			version.NewCollector(exporterNamespace),
		)
	}
	return m
}
