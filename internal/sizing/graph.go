package sizing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/roar/internal/units"
)

var (
	// ErrCyclicPlan is returned when the steps cannot be ordered.
	ErrCyclicPlan = errors.New("sizing: dependency cycle")
	// ErrUnknownDependency is returned when a step needs a field no step produces.
	ErrUnknownDependency = errors.New("sizing: unknown dependency")
	// ErrDuplicateStep is returned when two steps produce the same field.
	ErrDuplicateStep = errors.New("sizing: duplicate step")
)

// A step computes one Result field from the DesignSpec (captured by eval)
// and from the earlier fields it names in needs. Values are SI.
type step struct {
	name  string
	label string
	dim   units.Dimension
	unit  string
	needs []string
	eval  func(in inputs) (float64, error)
}

// inputs exposes only the declared dependencies of a step.
type inputs struct {
	step   string
	needs  []string
	values map[string]float64
}

func (in inputs) get(name string) float64 {
	for _, n := range in.needs {
		if n == name {
			return in.values[name]
		}
	}
	panic(fmt.Sprintf("sizing: step %q reads undeclared dependency %q", in.step, name))
}

// plan orders steps so every step follows its dependencies. Ties keep
// declaration order, so the plan is deterministic.
func plan(steps []step) ([]step, error) {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		if _, dup := index[s.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStep, s.name)
		}
		index[s.name] = i
	}

	indegree := make([]int, len(steps))
	dependents := make([][]int, len(steps))
	for i, s := range steps {
		for _, n := range s.needs {
			j, ok := index[n]
			if !ok {
				return nil, fmt.Errorf("%w: %q needs %q", ErrUnknownDependency, s.name, n)
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	ordered := make([]step, 0, len(steps))
	done := make([]bool, len(steps))
	for len(ordered) < len(steps) {
		progressed := false
		for i := range steps {
			if done[i] || indegree[i] > 0 {
				continue
			}
			done[i] = true
			progressed = true
			ordered = append(ordered, steps[i])
			for _, k := range dependents[i] {
				indegree[k]--
			}
			break
		}
		if !progressed {
			var stuck []string
			for i, s := range steps {
				if !done[i] {
					stuck = append(stuck, s.name)
				}
			}
			return nil, fmt.Errorf("%w among %s", ErrCyclicPlan, strings.Join(stuck, ", "))
		}
	}
	return ordered, nil
}

// evaluate runs an ordered plan. Every value is assigned exactly once and
// must be positive and finite.
func evaluate(ordered []step) (map[string]float64, error) {
	values := make(map[string]float64, len(ordered))
	for _, s := range ordered {
		if _, set := values[s.name]; set {
			return nil, fmt.Errorf("%w: %q assigned twice", ErrDuplicateStep, s.name)
		}
		v, err := s.eval(inputs{step: s.name, needs: s.needs, values: values})
		if err != nil {
			return nil, fmt.Errorf("sizing: %s: %w", s.label, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil, fmt.Errorf("%w: %s = %g %s", ErrInvalidResult, s.label, v, units.SIUnit(s.dim).Symbol)
		}
		values[s.name] = v
	}
	return values, nil
}
