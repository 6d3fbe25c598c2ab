// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Simulator side
	FixesEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gpssim_fixes_emitted_total",
		Help: "Fixes produced by the emitter and handed to its sink",
	}, []string{"model"})

	SignalLossTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gpssim_signal_loss_total",
		Help: "Ticks skipped because of simulated signal loss",
	}, []string{"model"})

	SinkErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpssim_sink_errors_total",
		Help: "Fix deliveries that a sink reported as failed",
	})

	// Collector side
	FixesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpssim_fixes_received_total",
		Help: "Fix submissions received by the collector",
	})

	FixesStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpssim_fixes_stored_total",
		Help: "Fixes appended to the history buffer",
	})

	FixesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpssim_fixes_dropped_total",
		Help: "Fixes dropped by fault injection",
	})

	FixesRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpssim_fixes_rejected_total",
		Help: "Malformed fix submissions",
	})

	HistorySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gpssim_history_size",
		Help: "Number of fixes currently held in the history buffer",
	})

	ViewersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gpssim_viewers_connected",
		Help: "Live WebSocket viewers",
	})

	SubmitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gpssim_submit_duration_seconds",
		Help:    "Time spent handling a fix submission, fault delay included",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 13), // 1ms to ~4s
	})
)
