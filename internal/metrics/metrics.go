// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes Prometheus instrumentation for the refinement
// pipeline: recipe selection outcomes, HSPL emission/optimization
// counts, MSPL projection outcomes, and dashboard publish results.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/histogram the pipeline touches. All
// instruments are registered against a private registry so tests can
// construct independent instances without colliding on the global
// default registry.
type Metrics struct {
	registry *prometheus.Registry

	AttacksProcessed   *prometheus.CounterVec
	RecipeSelection    *prometheus.CounterVec
	HSPLsEmitted       prometheus.Counter
	HSPLsOptimizedAway prometheus.Counter
	MSPLProjections    *prometheus.CounterVec
	DashboardPublishes *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
}

// New creates an independent, fully-registered Metrics instance.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AttacksProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "mitigated",
			Name:      "attacks_processed_total",
			Help:      "Attacks that completed the pipeline, by outcome.",
		}, []string{"outcome"}),
		RecipeSelection: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "mitigated",
			Name:      "recipe_selection_total",
			Help:      "Recipe selection attempts, by result.",
		}, []string{"result"}),
		HSPLsEmitted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mitigated",
			Name:      "hspls_emitted_total",
			Help:      "HSPL items synthesized before optimization.",
		}),
		HSPLsOptimizedAway: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mitigated",
			Name:      "hspls_optimized_away_total",
			Help:      "HSPL items removed by the set-algebra optimizer.",
		}),
		MSPLProjections: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "mitigated",
			Name:      "mspl_projections_total",
			Help:      "MSPL projection attempts, by result.",
		}, []string{"result"}),
		DashboardPublishes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "mitigated",
			Name:      "dashboard_publishes_total",
			Help:      "Dashboard broker publish attempts, by outcome.",
		}, []string{"outcome"}),
		StageDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mitigated",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Per-attack stage durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	return m
}

// ObserveOptimization records the before/after HSPL counts of one
// optimizer run.
func (m *Metrics) ObserveOptimization(before, after int) {
	m.HSPLsEmitted.Add(float64(before))
	if after < before {
		m.HSPLsOptimizedAway.Add(float64(before - after))
	}
}

// Handler returns the HTTP handler that serves this instance's metrics
// in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
