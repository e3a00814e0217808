// Package solver minimizes the weighted constraint energy of a scene over the
// poses of its free assets.
//
// # Algorithm
//
// Each iteration:
//
//  1. Evaluates every constraint term and its finite-difference gradient at
//     the current poses. Terms run concurrently on an errgroup, write into
//     pre-sized slots, and are reduced in a fixed order, so results do not
//     depend on the worker count.
//  2. Records the energy breakdown and checks termination.
//  3. Applies one Adam step (global gradient-norm clipping, optional 1/t
//     decay) and wraps headings to (-π, π].
//
// Every ProjectInterval updates, free assets under a containment constraint
// whose center has escaped the boundary are projected back inside.
//
// # Termination
//
//   - Converged: all hard constraints satisfied and the energy is below
//     EnergyTol or has not improved by RelTol for Patience iterations.
//   - Stalled: no improvement for StallPatience iterations while infeasible.
//   - IterationLimitReached: MaxIterations updates done or TimeLimit exceeded.
//
// Only free assets are ever written back to the scene.
package solver

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/golang/geo/r2"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/geom"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Solver optimizes the free assets of one scene. A Solver is single-use and
// not safe for concurrent Run calls.
type Solver struct {
	scene       *scene.Scene
	constraints []constraint.Constraint
	free        []string
	index       map[string]int
	terms       []termSlot
	contained   []int // indexes into free
	opts        Options
	status      Status
}

type termSlot struct {
	term   constraint.Term
	owner  int     // index into constraints
	weight float64 // energy weight of the owner
	vars   []string
	at     []int // index of each var in free
}

// New validates the inputs and prepares a solver. A nil free list means
// every non-fixed asset; fixed assets are always dropped from it.
func New(s *scene.Scene, cs []constraint.Constraint, free []string, opts Options) (*Solver, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	for _, c := range cs {
		for _, id := range c.Scope() {
			if !s.Has(id) {
				return nil, errors.Evaluation(c.ID(), "unknown asset %q", id)
			}
		}
	}

	if free == nil {
		free = s.Free()
	}
	sv := &Solver{
		scene:       s,
		constraints: cs,
		index:       make(map[string]int),
		opts:        opts,
		status:      StatusInitialized,
	}
	for _, id := range free {
		if !s.Has(id) {
			return nil, errors.New(errors.ErrCodeUnknownAsset, "unknown free asset %q", id)
		}
		if _, dup := sv.index[id]; dup || s.Fixed(id) {
			continue
		}
		sv.index[id] = len(sv.free)
		sv.free = append(sv.free, id)
	}

	contained := make(map[int]bool)
	for ci, c := range cs {
		w := constraint.EnergyWeight(c)
		if c.Kind() == constraint.KindContainment {
			for _, id := range c.Scope() {
				if i, ok := sv.index[id]; ok {
					contained[i] = true
				}
			}
		}
		for _, t := range constraint.TermsOf(c) {
			slot := termSlot{term: t, owner: ci, weight: w}
			if w != 0 {
				for _, id := range t.Scope {
					if i, ok := sv.index[id]; ok {
						slot.vars = append(slot.vars, id)
						slot.at = append(slot.at, i)
					}
				}
			}
			sv.terms = append(sv.terms, slot)
		}
	}
	for i := range sv.free {
		if contained[i] {
			sv.contained = append(sv.contained, i)
		}
	}
	return sv, nil
}

// Free returns the ids the solver may move.
func (sv *Solver) Free() []string { return append([]string(nil), sv.free...) }

// Status returns the current state machine position.
func (sv *Solver) Status() Status { return sv.status }

// evaluation is the reduced result of one pass over all terms.
type evaluation struct {
	energy   float64
	grad     []float64
	costs    []float64 // per constraint, unweighted
	byKind   map[constraint.Kind]float64
	feasible bool
}

// Run optimizes until a terminal status is reached and writes the final
// poses of the free assets back to the scene.
//
// Cancellation is checked between iterations; the last fully evaluated poses
// are written back and ctx.Err() is returned. A non-finite cost or gradient
// aborts before the update with a CONSTRAINT_EVALUATION error, again writing
// back the last good poses.
func (sv *Solver) Run(ctx context.Context) (*Result, error) {
	if sv.status != StatusInitialized {
		return nil, errors.New(errors.ErrCodeInternal, "solver already ran")
	}
	start := time.Now()
	logger := sv.opts.Logger
	o := sv.opts

	initial := sv.scene.Snapshot().Subset(sv.free)
	cur := initial.Clone()
	// Feasible zero-energy starts are left untouched.
	if ev, err := sv.evaluate(cur); err != nil || !ev.feasible || ev.energy > o.EnergyTol {
		sv.jitter(cur)
	}
	lastGood := initial

	logger.Info("solve started",
		"free", len(sv.free),
		"constraints", len(sv.constraints),
		"terms", len(sv.terms))

	n := 3 * len(sv.free)
	m := make([]float64, n)
	v := make([]float64, n)

	state := State{Status: StatusIterating}
	sv.status = StatusIterating
	best := math.Inf(1)
	sinceBest := 0
	timedOut := false

	for {
		if err := ctx.Err(); err != nil {
			sv.writeBack(lastGood)
			return nil, err
		}

		ev, err := sv.evaluate(cur)
		if err != nil {
			sv.writeBack(lastGood)
			logger.Error("evaluation failed", "iteration", state.Iteration, "err", err)
			return nil, err
		}
		lastGood = cur.Clone()

		gradNorm := floats.Norm(ev.grad, 2)
		rec := Record{
			Iteration:    state.Iteration,
			Energy:       ev.energy,
			Feasible:     ev.feasible,
			GradNorm:     gradNorm,
			ByKind:       ev.byKind,
			ByConstraint: make(map[string]float64, len(sv.constraints)),
		}
		for i, c := range sv.constraints {
			rec.ByConstraint[c.ID()] = ev.costs[i]
		}
		state.History = append(state.History, rec)
		state.Energy = ev.energy
		state.Feasible = ev.feasible
		state.Breakdown = rec.ByConstraint
		if o.SnapshotInterval > 0 && state.Iteration%o.SnapshotInterval == 0 {
			state.Snapshots = append(state.Snapshots, Snapshot{Iteration: state.Iteration, Poses: cur.Clone()})
		}

		if math.IsInf(best, 1) || ev.energy < best-o.RelTol*math.Abs(best) {
			best = ev.energy
			sinceBest = 0
		} else {
			sinceBest++
		}

		switch {
		case ev.feasible && (ev.energy <= o.EnergyTol || sinceBest >= o.Patience):
			state.Status = StatusConverged
		case !ev.feasible && sinceBest >= o.StallPatience:
			state.Status = StatusStalled
		case state.Iteration >= o.MaxIterations:
			state.Status = StatusIterationLimit
		case o.TimeLimit > 0 && time.Since(start) > o.TimeLimit:
			state.Status = StatusIterationLimit
			timedOut = true
		}
		state.Done = state.Status.Terminal()
		sv.status = state.Status

		if o.LogInterval > 0 && state.Iteration%o.LogInterval == 0 {
			logger.Debug("iteration", breakdownKeyvals(state.Iteration, ev)...)
		}
		if o.Progress != nil {
			o.Progress(state)
		}
		if state.Done {
			break
		}

		sv.step(cur, ev.grad, m, v, state.Iteration+1)
		state.Iteration++
		if o.ProjectInterval > 0 && state.Iteration%o.ProjectInterval == 0 {
			sv.projectBack(cur)
		}
	}

	sv.writeBack(cur)
	res := &Result{
		Status:     state.Status,
		Iterations: state.Iteration,
		Energy:     state.Energy,
		Feasible:   state.Feasible,
		TimedOut:   timedOut,
		Poses:      cur,
		History:    state.History,
		Snapshots:  state.Snapshots,
		Duration:   time.Since(start),
	}
	logger.Info("solve finished",
		"status", res.Status,
		"iterations", res.Iterations,
		"energy", res.Energy,
		"feasible", res.Feasible,
		"duration", res.Duration)
	return res, nil
}

// evaluate computes every term at cur and reduces the results in term order.
func (sv *Solver) evaluate(cur scene.Snapshot) (*evaluation, error) {
	view := scene.Overlay{Base: sv.scene, Poses: cur}
	costs := make([]float64, len(sv.terms))
	grads := make([][]float64, len(sv.terms))
	errs := make([]error, len(sv.terms))

	var g errgroup.Group
	g.SetLimit(sv.opts.Workers)
	for i := range sv.terms {
		g.Go(func() error {
			t := sv.terms[i]
			costs[i], grads[i], errs[i] = constraint.Gradient(t.term, view, t.vars, sv.opts.Step)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	ev := &evaluation{
		grad:   make([]float64, 3*len(sv.free)),
		costs:  make([]float64, len(sv.constraints)),
		byKind: make(map[constraint.Kind]float64),
	}
	for i, t := range sv.terms {
		ev.costs[t.owner] += costs[i]
		if t.weight == 0 {
			continue
		}
		ev.energy += t.weight * costs[i]
		ev.byKind[sv.constraints[t.owner].Kind()] += t.weight * costs[i]
		for k, at := range t.at {
			for d := 0; d < 3; d++ {
				ev.grad[3*at+d] += t.weight * grads[i][3*k+d]
			}
		}
	}
	if math.IsNaN(ev.energy) || math.IsInf(ev.energy, 0) {
		return nil, errors.New(errors.ErrCodeConstraintEvaluation, "energy is %v", ev.energy)
	}

	ev.feasible = true
	for _, c := range sv.constraints {
		if !c.IsHard() {
			continue
		}
		ok, err := c.Satisfied(view, sv.opts.Tolerance)
		if err != nil {
			return nil, err
		}
		if !ok {
			ev.feasible = false
			break
		}
	}
	return ev, nil
}

// step applies one Adam update to cur in place. t is the 1-based step count.
func (sv *Solver) step(cur scene.Snapshot, grad, m, v []float64, t int) {
	o := sv.opts
	if norm := floats.Norm(grad, 2); o.GradClip > 0 && norm > o.GradClip {
		floats.Scale(o.GradClip/norm, grad)
	}
	lr := o.LearningRate / (1 + o.Decay*float64(t))
	c1 := 1 - math.Pow(o.Beta1, float64(t))
	c2 := 1 - math.Pow(o.Beta2, float64(t))

	for i, id := range sv.free {
		g := grad[3*i : 3*i+3]
		settled := g[0] == 0 && g[1] == 0 && g[2] == 0
		var delta [3]float64
		for d := 0; d < 3; d++ {
			k := 3*i + d
			if settled {
				m[k] = 0
			}
			m[k] = o.Beta1*m[k] + (1-o.Beta1)*g[d]
			v[k] = o.Beta2*v[k] + (1-o.Beta2)*g[d]*g[d]
			delta[d] = lr * (m[k] / c1) / (math.Sqrt(v[k]/c2) + o.Epsilon)
		}
		p := cur[id]
		cur[id] = scene.Pose{
			X:     p.X - delta[0],
			Y:     p.Y - delta[1],
			Theta: geom.WrapAngle(p.Theta - delta[2]),
		}
	}
}

// jitter perturbs the free poses with seeded uniform noise.
func (sv *Solver) jitter(cur scene.Snapshot) {
	if sv.opts.Jitter <= 0 {
		return
	}
	rng := rand.New(rand.NewPCG(sv.opts.Seed, sv.opts.Seed^0xdeadbeef))
	j := sv.opts.Jitter
	for _, id := range sv.free {
		p := cur[id]
		cur[id] = scene.Pose{
			X:     p.X + j*(2*rng.Float64()-1),
			Y:     p.Y + j*(2*rng.Float64()-1),
			Theta: geom.WrapAngle(p.Theta + j*(2*rng.Float64()-1)),
		}
	}
}

// projectBack moves escaped centers of contained assets inside the boundary.
func (sv *Solver) projectBack(cur scene.Snapshot) {
	poly := sv.scene.Polygon()
	for _, i := range sv.contained {
		id := sv.free[i]
		p := cur[id]
		c := r2.Point{X: p.X, Y: p.Y}
		if poly.Contains(c) {
			continue
		}
		q := poly.ProjectInside(c, sv.opts.ProjectMargin)
		cur[id] = scene.Pose{X: q.X, Y: q.Y, Theta: p.Theta}
	}
}

func (sv *Solver) writeBack(poses scene.Snapshot) {
	if err := sv.scene.Apply(poses.Subset(sv.free)); err != nil {
		sv.opts.Logger.Error("write back failed", "err", err)
	}
}

func breakdownKeyvals(iter int, ev *evaluation) []any {
	kv := []any{"iter", iter, "total", ev.energy, "feasible", ev.feasible}
	for _, k := range constraint.Kinds {
		if c, ok := ev.byKind[k]; ok {
			kv = append(kv, string(k), c)
		}
	}
	return kv
}
