package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/roar/internal/integrators"
	"github.com/san-kum/roar/internal/sizing"
)

// Variant is one member of an ensemble. Each variant needs its own
// integrator instance because integrators may keep scratch buffers.
type Variant struct {
	Name       string
	Integrator integrators.Integrator
	Config     Config
}

// Ensemble runs variants of the same engine concurrently.
type Ensemble struct {
	seed    *sizing.Result
	opts    []Option
	metrics func() []Metric
}

// NewEnsemble takes a metrics factory so no metric is shared between runs.
func NewEnsemble(seed *sizing.Result, metrics func() []Metric, opts ...Option) *Ensemble {
	return &Ensemble{seed: seed, opts: opts, metrics: metrics}
}

// Run returns one result per variant, in order. A failed variant keeps
// whatever partial result it produced and contributes to the joined error.
func (e *Ensemble) Run(ctx context.Context, variants []Variant) ([]*Result, error) {
	results := make([]*Result, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i, v := range variants {
		wg.Add(1)
		go func(idx int, v Variant) {
			defer wg.Done()

			opts := append(append([]Option(nil), e.opts...), WithIntegrator(v.Integrator))
			s := New(e.seed, opts...)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					s.AddMetric(m)
				}
			}

			res, err := s.Run(ctx, v.Config)
			results[idx] = res
			if err != nil {
				errs[idx] = fmt.Errorf("%s: %w", v.Name, err)
			}
		}(i, v)
	}

	wg.Wait()
	return results, errors.Join(errs...)
}
