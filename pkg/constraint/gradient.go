package constraint

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// DefaultStep is the finite-difference step used when none is given.
const DefaultStep = 1e-6

// Gradient evaluates term t under r and its central finite-difference
// gradient with respect to the poses of vars. The gradient is laid out as
// (x, y, θ) triples in vars order. Assets in vars that the term does not
// depend on simply get zero entries.
//
// A non-finite cost or gradient is reported as a CONSTRAINT_EVALUATION
// error naming t's constraint.
func Gradient(t Term, r scene.PoseReader, vars []string, step float64) (float64, []float64, error) {
	if step <= 0 {
		step = DefaultStep
	}
	cost, err := t.Cost(r)
	if err != nil {
		return 0, nil, err
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return 0, nil, errors.Evaluation(t.Constraint, "cost is %v", cost)
	}
	if len(vars) == 0 {
		return cost, nil, nil
	}

	x := make([]float64, 3*len(vars))
	for i, id := range vars {
		p, ok := r.Pose(id)
		if !ok {
			return 0, nil, errors.Evaluation(t.Constraint, "unknown asset %q", id)
		}
		x[3*i], x[3*i+1], x[3*i+2] = p.X, p.Y, p.Theta
	}

	poses := make(scene.Snapshot, len(vars))
	view := scene.Overlay{Base: r, Poses: poses}
	var evalErr error
	f := func(v []float64) float64 {
		for i, id := range vars {
			poses[id] = scene.Pose{X: v[3*i], Y: v[3*i+1], Theta: v[3*i+2]}
		}
		c, err := t.Cost(view)
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return c
	}

	grad := fd.Gradient(nil, f, x, &fd.Settings{
		Formula:     fd.Central,
		Step:        step,
		OriginKnown: true,
		OriginValue: cost,
	})
	if evalErr != nil {
		return 0, nil, evalErr
	}
	for i, g := range grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return 0, nil, errors.Evaluation(t.Constraint, "gradient of %s is %v", vars[i/3], g)
		}
	}
	return cost, grad, nil
}
