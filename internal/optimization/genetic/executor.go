package genetic

import (
	"context"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/copyleftdev/tourfit/internal/tour"
)

// evaluate scores every chromosome without a cached fitness and returns the
// number of fitness calls made. With more than one worker the calls run on
// a bounded goroutine pool; each chromosome is handed to exactly one worker.
// The first error cancels the remaining work.
func evaluate(ctx context.Context, fitness tour.Fitness, population []*tour.Chromosome, workers int) (int, error) {
	pending := make([]*tour.Chromosome, 0, len(population))
	for _, c := range population {
		if _, ok := c.Fitness(); !ok {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	if workers <= 1 {
		for i, c := range pending {
			if err := ctx.Err(); err != nil {
				return i, err
			}
			f, err := fitness.Evaluate(c)
			if err != nil {
				return i + 1, err
			}
			c.SetFitness(f)
		}
		return len(pending), nil
	}

	var calls atomic.Int64
	p := pool.New().
		WithMaxGoroutines(workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for _, c := range pending {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			calls.Add(1)
			f, err := fitness.Evaluate(c)
			if err != nil {
				return err
			}
			c.SetFitness(f)
			return nil
		})
	}
	err := p.Wait()
	return int(calls.Load()), err
}
