package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartWritesTotal counts successful cart store writes.
	CartWritesTotal prometheus.Counter
	// CardConfirmsTotal counts product card commits by outcome.
	CardConfirmsTotal *prometheus.CounterVec
	// CheckoutSubmissionsTotal counts checkout submissions by result.
	CheckoutSubmissionsTotal *prometheus.CounterVec
	// CheckoutSubmitLatency records backend submission latency in milliseconds.
	CheckoutSubmitLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_writes_total",
			Help:      "Total number of cart store writes.",
		})
		CardConfirmsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_confirms_total",
			Help:      "Count of product card quantity commits by outcome.",
		}, []string{"outcome"})
		CheckoutSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_submissions_total",
			Help:      "Count of checkout submissions by result.",
		}, []string{"result"})
		CheckoutSubmitLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_submit_duration_ms",
			Help:      "Latency of checkout backend calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		}, []string{"result"})

		mustRegisterCollector(reg, CartWritesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartWritesTotal = v
			}
		})
		mustRegisterCollector(reg, CardConfirmsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CardConfirmsTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutSubmissionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutSubmissionsTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutSubmitLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CheckoutSubmitLatency = v
			}
		})
	})
}

// ObserveCardConfirm records a product card commit when metrics are registered.
func ObserveCardConfirm(outcome string) {
	if CardConfirmsTotal != nil {
		CardConfirmsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveCheckoutSubmission records a submission outcome when metrics are registered.
func ObserveCheckoutSubmission(result string, latencyMs float64) {
	if CheckoutSubmissionsTotal != nil {
		CheckoutSubmissionsTotal.WithLabelValues(result).Inc()
	}
	if CheckoutSubmitLatency != nil && latencyMs >= 0 {
		CheckoutSubmitLatency.WithLabelValues(result).Observe(latencyMs)
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
