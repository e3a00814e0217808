package constraint

import (
	"github.com/matzehuels/floorsolve/pkg/reach"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Reachability keeps the anchor pairs of a reach.Module walkable. It
// decomposes into one term per (pair, asset) combination.
type Reachability struct {
	base
	module *reach.Module
}

// NewReachability wraps a reach.Module.
func NewReachability(m Meta, module *reach.Module) *Reachability {
	return &Reachability{
		base:   base{meta: m, kind: KindReachability, scope: module.Scope()},
		module: module,
	}
}

// Module returns the wrapped reachability module.
func (c *Reachability) Module() *reach.Module { return c.module }

// Cost implements Constraint.
func (c *Reachability) Cost(p scene.PoseReader) (float64, error) {
	return c.module.Cost(p)
}

// Satisfied implements Constraint.
func (c *Reachability) Satisfied(p scene.PoseReader, tol float64) (bool, error) {
	return satisfied(c, p, tol)
}

// Terms implements Decomposer.
func (c *Reachability) Terms() []Term {
	rt := c.module.Terms()
	out := make([]Term, len(rt))
	for i, t := range rt {
		out[i] = Term{Constraint: c.meta.ID, Scope: t.Scope, Cost: t.Cost}
	}
	return out
}

// Implicated implements Implicator: only assets with positive clearance
// cost are blamed.
func (c *Reachability) Implicated(p scene.PoseReader) ([]string, error) {
	return c.module.Implicated(p)
}
