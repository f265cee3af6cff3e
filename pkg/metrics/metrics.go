package metrics

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// ImportMetrics counts rows through one import run on a private registry.
type ImportMetrics struct {
	registry *prometheus.Registry

	RowsRead     prometheus.Counter
	RowsAccepted prometheus.Counter
	RowsSkipped  *prometheus.CounterVec
	Inserted     prometheus.Counter
	Duration     prometheus.Gauge
}

func NewImportMetrics() *ImportMetrics {
	m := &ImportMetrics{
		registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "role_import",
			Name:      "rows_read_total",
			Help:      "Spreadsheet rows read.",
		}),
		RowsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "role_import",
			Name:      "rows_accepted_total",
			Help:      "Rows resolved to a (user, role) assignment.",
		}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "role_import",
			Name:      "rows_skipped_total",
			Help:      "Rows skipped, by outcome.",
		}, []string{"outcome"}),
		Inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "role_import",
			Name:      "assignments_inserted_total",
			Help:      "Assignments written to the join table.",
		}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "role_import",
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	m.registry.MustRegister(m.RowsRead, m.RowsAccepted, m.RowsSkipped, m.Inserted, m.Duration)
	return m
}

func (m *ImportMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the registry to a Pushgateway. An empty url is a no-op.
func (m *ImportMetrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return errors.Wrap(err, "push metrics")
	}
	return nil
}
