// Package metrics provides Prometheus instrumentation for the release
// engine. The library never starts a listener of its own; callers expose the
// registry however their service layer sees fit.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Collector implements the accountant and search observer hooks on top of a
// Prometheus registry.
type Collector struct {
	logger   *logrus.Logger
	registry *prometheus.Registry

	budgetSpent     prometheus.Gauge
	budgetCeiling   prometheus.Gauge
	chargesTotal    *prometheus.CounterVec
	searchesTotal   *prometheus.CounterVec
	informationLoss prometheus.Histogram
}

// NewCollector creates a collector registered on its own registry
func NewCollector(logger *logrus.Logger) (*Collector, error) {
	if logger == nil {
		logger = logrus.New()
	}

	c := &Collector{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		budgetSpent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "privkit",
			Name:      "budget_spent_epsilon",
			Help:      "Epsilon consumed in the current accountant scope",
		}),
		budgetCeiling: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "privkit",
			Name:      "budget_ceiling_epsilon",
			Help:      "Configured epsilon ceiling (0 when unlimited)",
		}),
		chargesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "privkit",
			Name:      "budget_charges_total",
			Help:      "Budget charge attempts by outcome",
		}, []string{"outcome"}),
		searchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "privkit",
			Name:      "generalization_searches_total",
			Help:      "Generalization searches by outcome",
		}, []string{"outcome"}),
		informationLoss: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "privkit",
			Name:      "generalization_information_loss",
			Help:      "Mean per-column information loss of completed searches",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}

	for _, collector := range []prometheus.Collector{
		c.budgetSpent, c.budgetCeiling, c.chargesTotal, c.searchesTotal, c.informationLoss,
	} {
		if err := c.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return c, nil
}

// Registry returns the underlying Prometheus registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// BudgetCharged records a successful charge and the resulting totals
func (c *Collector) BudgetCharged(spent, ceiling float64) {
	c.budgetSpent.Set(spent)
	c.budgetCeiling.Set(ceiling)
	c.chargesTotal.WithLabelValues("charged").Inc()
}

// ChargeDenied records a charge rejected by the ceiling
func (c *Collector) ChargeDenied() {
	c.chargesTotal.WithLabelValues("denied").Inc()
}

// SearchCompleted records the outcome of one generalization search
func (c *Collector) SearchCompleted(outcome string, informationLoss float64) {
	c.searchesTotal.WithLabelValues(outcome).Inc()
	c.informationLoss.Observe(informationLoss)
}
