/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "santabox"

type exchangeMetrics struct {
	registry *prometheus.Registry

	created   prometheus.Counter
	completed prometheus.Counter
	failures  prometheus.Counter
	resets    prometheus.Counter
	reveals   prometheus.Counter
	exports   *prometheus.CounterVec
	attempts  prometheus.Histogram
	active    prometheus.Gauge
}

func newExchangeMetrics() *exchangeMetrics {
	m := &exchangeMetrics{
		registry: prometheus.NewRegistry(),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exchanges_created_total",
			Help:      "Exchanges started.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exchanges_completed_total",
			Help:      "Exchanges in which every participant has seen their recipient.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "match_failures_total",
			Help:      "Draws that exhausted the retry budget without a valid pairing.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resets_total",
			Help:      "Exchanges redrawn on request.",
		}),
		reveals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reveals_total",
			Help:      "Recipients shown on a device.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exports_total",
			Help:      "Assignment documents downloaded, by format.",
		}, []string{"format"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "match_attempts",
			Help:      "Random draws needed to find a valid pairing.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_exchanges",
			Help:      "Exchanges currently held in memory.",
		}),
	}

	m.registry.MustRegister(
		m.created,
		m.completed,
		m.failures,
		m.resets,
		m.reveals,
		m.exports,
		m.attempts,
		m.active,
	)

	return m
}

// observeDraw records the outcome of one Matcher run.
func (m *exchangeMetrics) observeDraw(attempts int, err error) {
	if err != nil {
		m.failures.Inc()

		return
	}

	m.attempts.Observe(float64(attempts))
}

func (m *exchangeMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
