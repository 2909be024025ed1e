// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/obolnetwork/ipfslog/app/promauto"
)

var (
	recordsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ipfslog",
		Subsystem: "parse",
		Name:      "records_total",
		Help:      "Total number of records parsed by log kind",
	}, []string{"kind"})

	skippedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ipfslog",
		Subsystem: "parse",
		Name:      "skipped_total",
		Help:      "Total number of record blocks skipped by log kind and reason",
	}, []string{"kind", "reason"})

	unparsedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ipfslog",
		Subsystem: "parse",
		Name:      "unparsed_addrs_total",
		Help:      "Total number of address tokens retained unparsed by log kind",
	}, []string{"kind"})

	durationHist = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ipfslog",
		Subsystem: "parse",
		Name:      "duration_seconds",
		Help:      "Duration of parsing a whole log file by log kind",
		Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
	}, []string{"kind"})
)
