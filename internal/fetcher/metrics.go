// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package fetcher

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts coordinator outcomes per operation. A nil *Metrics is a
// no-op, so mirror coordinators can share or skip instrumentation.
type Metrics struct {
	requests *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nyaproxy",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Fetch coordinator requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests)
	}
	return m
}

func (m *Metrics) observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
}
