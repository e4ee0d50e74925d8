// Package metrics holds the prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "graphwalk"

var (
	// Merges counts accumulator merges.
	// Labels: outcome (applied, malformed)
	Merges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "merges_total",
		Help:      "Accumulator merges by outcome",
	}, []string{"outcome"})

	// NodesAdded counts nodes created by merges.
	NodesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "nodes_added_total",
		Help:      "Nodes created by accumulator merges",
	})

	// EdgesDropped counts relationships dropped for a missing endpoint.
	EdgesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "edges_dropped_total",
		Help:      "Relationships dropped because an endpoint was not in the graph",
	})

	// Searches counts search requests.
	// Labels: outcome (issued, applied, empty, stale, failed)
	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "explorer",
		Name:      "searches_total",
		Help:      "Search requests by outcome",
	}, []string{"outcome"})

	// Expansions counts neighbor expansions.
	// Labels: outcome (issued, applied, stale, failed)
	Expansions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "explorer",
		Name:      "expansions_total",
		Help:      "Neighbor expansions by outcome",
	}, []string{"outcome"})

	// Ticks counts simulator ticks across all sessions.
	Ticks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "layout",
		Name:      "ticks_total",
		Help:      "Layout simulation ticks",
	})

	// Sessions tracks live explorer sessions.
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "explorer",
		Name:      "sessions",
		Help:      "Explorer sessions currently running",
	})
)
