// Package metrics exposes search progress as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/tourfit/internal/optimization"
)

const namespace = "tourfit"

// Collectors groups the run metrics. A zero Collectors is not usable; build
// one with NewCollectors.
type Collectors struct {
	Evaluations  prometheus.Counter
	Generations  prometheus.Counter
	Penalized    prometheus.Counter
	Runs         *prometheus.CounterVec
	ActiveRuns   prometheus.Gauge
	BestFitness  *prometheus.GaugeVec
	BestDistance *prometheus.GaugeVec
	RunDuration  prometheus.Histogram
}

// NewCollectors creates the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fitness_evaluations_total",
			Help:      "Chromosomes scored by the tour evaluator.",
		}),
		Generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations evaluated across all runs.",
		}),
		Penalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "penalized_tours_total",
			Help:      "Population members that visited some point more than once, summed per generation.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by final status.",
		}, []string{"status"}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Runs currently evolving.",
		}),
		BestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Best fitness of the latest generation.",
		}, []string{"run_id"}),
		BestDistance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_distance",
			Help:      "Tour length of the best chromosome of the latest generation.",
		}, []string{"run_id"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(c.Evaluations, c.Generations, c.Penalized, c.Runs,
			c.ActiveRuns, c.BestFitness, c.BestDistance, c.RunDuration)
	}
	return c
}

// Observer returns an engine observer that feeds the collectors for one run.
// GenerationStats.Evaluations is cumulative, so only the increase is added.
func (c *Collectors) Observer(runID string) func(optimization.GenerationStats) {
	seen := 0
	fitness := c.BestFitness.WithLabelValues(runID)
	distance := c.BestDistance.WithLabelValues(runID)
	return func(s optimization.GenerationStats) {
		if d := s.Evaluations - seen; d > 0 {
			c.Evaluations.Add(float64(d))
		}
		seen = s.Evaluations
		c.Generations.Inc()
		c.Penalized.Add(float64(s.Penalized))
		fitness.Set(s.BestFitness)
		distance.Set(s.BestDistance)
	}
}

// RunStarted marks a run as active.
func (c *Collectors) RunStarted() {
	c.ActiveRuns.Inc()
}

// RunFinished records the final status and duration of a run and drops its
// per-run series.
func (c *Collectors) RunFinished(runID, status string, seconds float64) {
	c.ActiveRuns.Dec()
	c.Runs.WithLabelValues(status).Inc()
	c.RunDuration.Observe(seconds)
	c.BestFitness.DeleteLabelValues(runID)
	c.BestDistance.DeleteLabelValues(runID)
}
