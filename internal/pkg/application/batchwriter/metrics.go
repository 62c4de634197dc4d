package batchwriter

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	rowsWritten       *prometheus.CounterVec
	partsCreated      *prometheus.CounterVec
	duplicatesSkipped *prometheus.CounterVec
	entitiesCoerced   *prometheus.CounterVec
	entitiesSkipped   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		rowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graph_batch_writer",
				Subsystem: "rows",
				Name:      "written_total",
				Help:      "Total number of data rows written",
			},
			[]string{"type"},
		),
		partsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graph_batch_writer",
				Subsystem: "parts",
				Name:      "created_total",
				Help:      "Total number of part files created",
			},
			[]string{"type"},
		),
		duplicatesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graph_batch_writer",
				Subsystem: "entities",
				Name:      "duplicates_total",
				Help:      "Total number of duplicate entities that were not written",
			},
			[]string{"type"},
		),
		entitiesCoerced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graph_batch_writer",
				Subsystem: "entities",
				Name:      "coerced_total",
				Help:      "Total number of entities padded or truncated to the frozen column set",
			},
			[]string{"type"},
		),
		entitiesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graph_batch_writer",
				Subsystem: "entities",
				Name:      "skipped_total",
				Help:      "Total number of entities skipped in lenient mode",
			},
			[]string{"reason"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.rowsWritten,
			m.partsCreated,
			m.duplicatesSkipped,
			m.entitiesCoerced,
			m.entitiesSkipped,
		)
	}

	return m
}
