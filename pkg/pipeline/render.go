package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/matzehuels/floorsolve/pkg/cache"
	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/problem"
	"github.com/matzehuels/floorsolve/pkg/reach"
	"github.com/matzehuels/floorsolve/pkg/render"
	"github.com/matzehuels/floorsolve/pkg/render/dot"
	"github.com/matzehuels/floorsolve/pkg/render/floorplan"
	"github.com/matzehuels/floorsolve/pkg/render/plot"
	"github.com/matzehuels/floorsolve/pkg/scene"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

// RenderWithCacheInfo renders opts.Artifacts for the final poses of res and
// reports whether every artifact came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, inst *problem.Instance, res *Result, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	runHash, err := cache.HashValue(struct {
		Problem    string         `json:"problem"`
		Poses      scene.Snapshot `json:"poses"`
		Status     solver.Status  `json:"status"`
		Iterations int            `json:"iterations"`
		Residual   []string       `json:"residual"`
	}{res.ProblemHash, res.Poses, res.Status, res.Iterations, res.Residual.Assets()})
	if err != nil {
		return nil, false, fmt.Errorf("hash run: %w", err)
	}

	artifacts := make(map[string][]byte)
	allCached := true
	for _, kind := range opts.Artifacts {
		names := artifactNames(kind, opts.Format)
		for _, name := range names {
			key := r.Keyer.RenderKey(runHash, cache.RenderKeyOpts{Kind: kind, Format: name})
			data, hit, err := r.Cache.Get(ctx, key)
			if opts.Refresh || err != nil || !hit {
				allCached = false
				break
			}
			artifacts[name] = data
		}
		if !allCached {
			break
		}
	}
	if allCached {
		return artifacts, true, nil // All artifacts from cache
	}

	rendered, err := RenderArtifacts(ctx, inst, res, opts)
	if err != nil {
		return nil, false, err
	}
	for _, kind := range opts.Artifacts {
		for _, name := range artifactNames(kind, opts.Format) {
			key := r.Keyer.RenderKey(runHash, cache.RenderKeyOpts{Kind: kind, Format: name})
			_ = r.Cache.Set(ctx, key, rendered[name], cache.TTLRender)
		}
	}
	return rendered, false, nil // Cache miss
}

func artifactNames(kind, format string) []string {
	if kind == ArtifactLoss {
		return []string{"loss.png", "loss-log.png"}
	}
	return []string{ArtifactName(kind, format)}
}

// RenderArtifacts renders opts.Artifacts without caching.
func RenderArtifacts(ctx context.Context, inst *problem.Instance, res *Result, opts Options) (map[string][]byte, error) {
	out := make(map[string][]byte)
	violating := res.Residual.Assets()

	for _, kind := range opts.Artifacts {
		switch kind {
		case ArtifactFloorplan:
			g, err := ClearanceGraph(inst.Scene, inst.Constraints)
			if err != nil {
				return nil, err
			}
			svg := floorplan.RenderSVG(inst.Scene,
				floorplan.WithClearance(g),
				floorplan.WithViolations(violating),
				floorplan.WithLabels())
			data, err := render.Convert(svg, opts.Format)
			if err != nil {
				return nil, err
			}
			out[ArtifactName(kind, opts.Format)] = data

		case ArtifactClearance, ArtifactIncidence:
			var src string
			if kind == ArtifactClearance {
				g, err := ClearanceGraph(inst.Scene, inst.Constraints)
				if err != nil {
					return nil, err
				}
				src = dot.ClearanceDOT(g)
			} else {
				src = dot.IncidenceDOT(inst.Scene, inst.Constraints, violating)
			}
			data, err := renderDOT(ctx, src, opts.Format)
			if err != nil {
				return nil, err
			}
			out[ArtifactName(kind, opts.Format)] = data

		case ArtifactLoss:
			if res.Solve == nil || len(res.Solve.History) == 0 {
				return nil, fmt.Errorf("loss curve needs a solve history")
			}
			title := "Energy"
			if res.Name != "" {
				title = res.Name
			}
			linear, err := plot.Loss(res.Solve.History, plot.Options{Title: title})
			if err != nil {
				return nil, err
			}
			logScale, err := plot.Loss(res.Solve.History, plot.Options{Title: title, Log: true})
			if err != nil {
				return nil, err
			}
			out["loss.png"] = linear
			out["loss-log.png"] = logScale
		}
	}
	return out, nil
}

func renderDOT(ctx context.Context, src, format string) ([]byte, error) {
	if format == render.FormatDOT {
		return []byte(src), nil
	}
	svg, err := dot.RenderSVG(ctx, src)
	if err != nil {
		return nil, err
	}
	return render.Convert(svg, format)
}

// ClearanceGraph merges the clearance graphs of every reachability
// constraint in cs, evaluated at the current poses of s. Anchors shared
// between constraints appear once.
func ClearanceGraph(s *scene.Scene, cs []constraint.Constraint) (reach.Graph, error) {
	var out reach.Graph
	var seen []string
	for _, c := range cs {
		rc, ok := c.(*constraint.Reachability)
		if !ok {
			continue
		}
		g, err := rc.Module().Graph(s)
		if err != nil {
			return reach.Graph{}, err
		}
		for _, n := range g.Nodes {
			if !slices.Contains(seen, n.ID) {
				seen = append(seen, n.ID)
				out.Nodes = append(out.Nodes, n)
			}
		}
		out.Edges = append(out.Edges, g.Edges...)
	}
	return out, nil
}
