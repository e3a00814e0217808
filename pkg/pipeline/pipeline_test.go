package pipeline

import (
	"bytes"
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/floorsolve/pkg/archive"
	"github.com/matzehuels/floorsolve/pkg/cache"
	"github.com/matzehuels/floorsolve/pkg/observability"
	"github.com/matzehuels/floorsolve/pkg/problem"
)

const corridor = `
name = "corridor"

[boundary]
vertices = [{ x = 0.0, y = 0.0 }, { x = 10.0, y = 0.0 }, { x = 10.0, y = 3.0 }, { x = 0.0, y = 3.0 }]

[[assets]]
id = "bench"
footprint = { width = 2.0, depth = 0.3 }
pose = { x = 5.0, y = 1.5 }

[[anchors]]
id = "west"
x = 0.5
y = 1.5

[[anchors]]
id = "east"
x = 9.5
y = 1.5

[[constraints]]
id = "walk"
kind = "reachability_clearance"
pairs = [{ from = "west", to = "east", clearance = 1.0 }]

[[constraints]]
id = "inside"
kind = "containment"
assets = ["bench"]
hard = true
`

func corridorProblem(t *testing.T) *problem.Problem {
	t.Helper()
	p, err := problem.Parse([]byte(corridor))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func execute(t *testing.T, r *Runner, opts Options) *Result {
	t.Helper()
	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return res
}

func TestValidateArtifact(t *testing.T) {
	tests := []struct {
		kind, format string
		wantErr      bool
	}{
		{"floorplan", "svg", false},
		{"floorplan", "pdf", false},
		{"floorplan", "dot", true},
		{"clearance", "dot", false},
		{"incidence", "png", false},
		{"loss", "png", false},
		{"loss", "svg", true},
		{"heatmap", "svg", true},
		{"", "svg", true},
	}
	for _, tt := range tests {
		err := ValidateArtifact(tt.kind, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateArtifact(%q, %q) error = %v, wantErr %v", tt.kind, tt.format, err, tt.wantErr)
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("missing problem should fail")
	}

	opts = Options{Problem: &problem.Problem{}, Artifacts: []string{ArtifactLoss, ArtifactIncidence}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.Format != DefaultFormat || opts.Logger == nil {
		t.Errorf("defaults not applied: format=%q logger=%v", opts.Format, opts.Logger)
	}

	opts = Options{Problem: &problem.Problem{}, Artifacts: []string{ArtifactFloorplan}, Format: "dot"}
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("floorplan as dot should fail")
	}
}

func TestExecuteCorridor(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res := execute(t, r, Options{Problem: corridorProblem(t)})

	if res.RunID == "" || res.ProblemHash == "" {
		t.Errorf("RunID = %q, ProblemHash = %q", res.RunID, res.ProblemHash)
	}
	if res.Stats.Assets != 1 || res.Stats.Free != 1 || res.Stats.Constraints != 2 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if !res.Feasible {
		t.Errorf("Feasible = false, Residual = %+v", res.Residual)
	}
	if y := res.Poses["bench"].Y; math.Abs(y-1.5) <= 0.9 {
		t.Errorf("bench y = %v, expected it to leave the walkway", y)
	}
	if res.Refinement == nil {
		t.Error("Refinement = nil, want a refinement pass")
	}
}

func TestExecuteCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := archive.NewMemoryStore()
	r := NewRunner(fc, nil, nil)
	r.Archive = store
	defer r.Close()

	first := execute(t, r, Options{Problem: corridorProblem(t)})
	if first.CacheInfo.SolveHit {
		t.Error("first run should miss the cache")
	}

	second := execute(t, r, Options{Problem: corridorProblem(t)})
	if !second.CacheInfo.SolveHit {
		t.Error("second run should hit the cache")
	}
	if diff := cmp.Diff(first.Poses, second.Poses); diff != "" {
		t.Errorf("cached poses differ (-first +second):\n%s", diff)
	}
	if first.Energy != second.Energy || first.Status != second.Status {
		t.Errorf("cached summary differs: %v/%s vs %v/%s", first.Energy, first.Status, second.Energy, second.Status)
	}

	refreshed := execute(t, r, Options{Problem: corridorProblem(t), Refresh: true})
	if refreshed.CacheInfo.SolveHit {
		t.Error("refresh should bypass the cache")
	}

	// A changed setting is a different key.
	p := corridorProblem(t)
	p.Solver.Seed = 42
	if execute(t, r, Options{Problem: p}).CacheInfo.SolveHit {
		t.Error("different seed should miss the cache")
	}

	runs, err := store.List(context.Background(), archive.ListOptions{ProblemHash: first.ProblemHash})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 4 {
		t.Fatalf("archived %d runs, want 4", len(runs))
	}
	got, err := store.Get(context.Background(), second.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CacheHit || got.Status != string(second.Status) {
		t.Errorf("archived run = %+v", got)
	}
}

func TestExecuteTimeLimitNotCached(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)

	for i := 0; i < 2; i++ {
		p := corridorProblem(t)
		p.Solver.TimeLimit = time.Minute
		if execute(t, r, Options{Problem: p}).CacheInfo.SolveHit {
			t.Errorf("run %d: time-limited solves must not be cached", i)
		}
	}
}

func TestExecuteNoRefine(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res := execute(t, r, Options{Problem: corridorProblem(t), NoRefine: true})
	if res.Refinement != nil {
		t.Errorf("Refinement = %+v, want nil", res.Refinement)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	a := execute(t, r, Options{Problem: corridorProblem(t)})
	b := execute(t, r, Options{Problem: corridorProblem(t)})
	if diff := cmp.Diff(a.Poses, b.Poses); diff != "" {
		t.Errorf("poses differ between runs (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(a.Solve.History, b.Solve.History); diff != "" {
		t.Errorf("history differs between runs (-a +b):\n%s", diff)
	}
}

func TestExecuteBuildError(t *testing.T) {
	p := corridorProblem(t)
	p.Constraints[1].Assets = []string{"ghost"}
	_, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{Problem: p})
	if err == nil || !strings.HasPrefix(err.Error(), "build:") {
		t.Errorf("Execute() error = %v, want build error", err)
	}
}

func TestExecuteArtifacts(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	opts := Options{
		Problem:   corridorProblem(t),
		Artifacts: []string{ArtifactClearance, ArtifactIncidence, ArtifactLoss},
		Format:    "dot",
	}
	res := execute(t, r, opts)

	if !strings.HasPrefix(string(res.Artifacts["clearance.dot"]), "graph clearance {") {
		t.Errorf("clearance.dot = %q", res.Artifacts["clearance.dot"])
	}
	if !strings.Contains(string(res.Artifacts["incidence.dot"]), `"bench"`) {
		t.Errorf("incidence.dot = %q", res.Artifacts["incidence.dot"])
	}
	for _, name := range []string{"loss.png", "loss-log.png"} {
		if !bytes.HasPrefix(res.Artifacts[name], []byte("\x89PNG")) {
			t.Errorf("%s is not a PNG", name)
		}
	}
	if res.CacheInfo.RenderHit {
		t.Error("first render should miss the cache")
	}

	opts.Problem = corridorProblem(t)
	again := execute(t, r, opts)
	if !again.CacheInfo.RenderHit {
		t.Error("second render should hit the cache")
	}
	if diff := cmp.Diff(res.Artifacts["clearance.dot"], again.Artifacts["clearance.dot"]); diff != "" {
		t.Errorf("cached artifact differs:\n%s", diff)
	}
}

func TestExecuteFloorplan(t *testing.T) {
	res := execute(t, NewRunner(nil, nil, nil), Options{
		Problem:   corridorProblem(t),
		Artifacts: []string{ArtifactFloorplan},
	})
	svg := string(res.Artifacts["floorplan.svg"])
	if !strings.HasPrefix(svg, "<svg") || !strings.Contains(svg, "bench") {
		t.Errorf("floorplan.svg = %.200q", svg)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) add(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnBuildStart(context.Context, string)           { h.add("build") }
func (h *recordingHooks) OnSolveStart(context.Context, string, int, int) { h.add("solve") }
func (h *recordingHooks) OnRefineStart(context.Context, string, int)     { h.add("refine") }

func TestExecuteHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetPipelineHooks(h)
	defer observability.Reset()

	execute(t, NewRunner(nil, nil, nil), Options{Problem: corridorProblem(t)})
	if diff := cmp.Diff([]string{"build", "solve", "refine"}, h.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}
