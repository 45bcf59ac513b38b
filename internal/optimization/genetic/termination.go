package genetic

import (
	"fmt"
	"strings"
	"time"
)

// State is what termination conditions observe after each generation.
type State struct {
	Generation          int
	BestFitness         float64
	StagnantGenerations int
	Elapsed             time.Duration
}

// Termination decides when a run stops. Reached returns a human readable
// reason when the condition holds.
type Termination interface {
	Name() string
	Reached(s State) (string, bool)
}

// GenerationLimit stops after a fixed number of generations.
type GenerationLimit int

// Name implements Termination
func (g GenerationLimit) Name() string { return fmt.Sprintf("Generation Number (%d)", int(g)) }

// Reached implements Termination
func (g GenerationLimit) Reached(s State) (string, bool) {
	if s.Generation >= int(g) {
		return fmt.Sprintf("generation limit of %d reached", int(g)), true
	}
	return "", false
}

// TimeEvolving stops once the run has evolved for at least the duration.
type TimeEvolving time.Duration

// Name implements Termination
func (t TimeEvolving) Name() string { return fmt.Sprintf("Time Evolving (%s)", time.Duration(t)) }

// Reached implements Termination
func (t TimeEvolving) Reached(s State) (string, bool) {
	if s.Elapsed >= time.Duration(t) {
		return fmt.Sprintf("evolved for %s", time.Duration(t)), true
	}
	return "", false
}

// FitnessStagnation stops when the best fitness has not improved for the
// given number of generations.
type FitnessStagnation int

// Name implements Termination
func (f FitnessStagnation) Name() string { return fmt.Sprintf("Fitness Stagnation (%d)", int(f)) }

// Reached implements Termination
func (f FitnessStagnation) Reached(s State) (string, bool) {
	if s.StagnantGenerations >= int(f) {
		return fmt.Sprintf("fitness stagnant for %d generations", int(f)), true
	}
	return "", false
}

// FitnessThreshold stops once the best fitness reaches the threshold.
type FitnessThreshold float64

// Name implements Termination
func (f FitnessThreshold) Name() string { return fmt.Sprintf("Fitness Threshold (%g)", float64(f)) }

// Reached implements Termination
func (f FitnessThreshold) Reached(s State) (string, bool) {
	if s.BestFitness >= float64(f) {
		return fmt.Sprintf("fitness threshold %g reached", float64(f)), true
	}
	return "", false
}

// OrTermination stops when any of its conditions holds.
type OrTermination []Termination

// Or combines conditions; nil entries are dropped.
func Or(conditions ...Termination) OrTermination {
	out := make(OrTermination, 0, len(conditions))
	for _, c := range conditions {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Name implements Termination
func (o OrTermination) Name() string {
	names := make([]string, len(o))
	for i, c := range o {
		names[i] = c.Name()
	}
	return "Or(" + strings.Join(names, ", ") + ")"
}

// Reached implements Termination
func (o OrTermination) Reached(s State) (string, bool) {
	for _, c := range o {
		if reason, ok := c.Reached(s); ok {
			return reason, true
		}
	}
	return "", false
}
