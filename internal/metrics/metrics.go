/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package metrics defines the Prometheus collectors updated by parse sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parselib_sessions_active",
		Help: "Number of live parse sessions.",
	})

	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parselib_sessions_created_total",
		Help: "Total number of parse sessions created.",
	})

	GrammarLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parselib_grammar_loads_total",
		Help: "Grammar load attempts by result (ok, not_found, invalid).",
	}, []string{"result"})

	ParsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parselib_parses_total",
		Help: "Parse requests by outcome status.",
	}, []string{"status"})

	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parselib_parse_seconds",
		Help:    "Time spent running the engine over a source file.",
		Buckets: prometheus.DefBuckets,
	})
)

// WriteTextfile writes every registered metric to path in the text
// exposition format, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
