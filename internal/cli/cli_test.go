package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/pipeline"
	"github.com/matzehuels/floorsolve/pkg/problem"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

const corridorPath = "../../examples/corridor.toml"

// capture redirects command output to a buffer for the duration of the test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldOut, oldErr := out, errOut
	out, errOut = &buf, io.Discard
	t.Cleanup(func() { out, errOut = oldOut, oldErr })
	return &buf
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	for _, want := range []string{"solve", "check", "render", "serve", "runs", "cache", "completion"} {
		found := false
		for _, name := range got {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing subcommand %q in %v", want, got)
		}
	}
}

func TestCheckProblem(t *testing.T) {
	r, err := checkProblem(corridorPath)
	if err != nil {
		t.Fatalf("checkProblem() error = %v", err)
	}
	if r.Name != "corridor" || r.Assets != 1 || r.Free != 1 || r.Constraints != 2 {
		t.Errorf("report = %+v", r)
	}
	// The bench starts on the walkway.
	if diff := cmp.Diff([]string{"bench"}, r.Violations.Assets()); diff != "" {
		t.Errorf("violations mismatch (-want +got):\n%s", diff)
	}
	if r.Energy <= 0 {
		t.Errorf("Energy = %v, want > 0", r.Energy)
	}
}

func TestCheckCommandJSON(t *testing.T) {
	buf := capture(t)
	if err := runCLI(t, "check", "--json", corridorPath); err != nil {
		t.Fatalf("check error = %v", err)
	}
	var r checkReport
	if err := json.Unmarshal(buf.Bytes(), &r); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if r.ProblemHash == "" || r.Violations.Empty() {
		t.Errorf("report = %+v", r)
	}
}

func TestCheckStrict(t *testing.T) {
	capture(t)
	err := runCLI(t, "check", "--strict", corridorPath)
	if err == nil || !strings.Contains(err.Error(), "violate") {
		t.Errorf("check --strict error = %v", err)
	}
}

func TestCheckMissingFile(t *testing.T) {
	capture(t)
	if err := runCLI(t, "check", "does-not-exist.toml"); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestSolveApplyOnlyChangedFlags(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd := c.solveCommand()
	if err := cmd.ParseFlags([]string{"--seed", "7", "--incidence-depth", "2"}); err != nil {
		t.Fatal(err)
	}
	p := &problem.Problem{}
	p.Solver.MaxIterations = 123
	p.Solver.LearningRate = 0.5

	var opts solveOpts
	opts.seed = 7
	opts.incidenceDepth = 2
	opts.maxIterations = solver.DefaultMaxIterations
	opts.apply(cmd, p)

	if p.Solver.Seed != 7 || p.Refine.IncidenceDepth != 2 {
		t.Errorf("changed flags not applied: solver %+v, refine %+v", p.Solver, p.Refine)
	}
	if p.Solver.MaxIterations != 123 || p.Solver.LearningRate != 0.5 {
		t.Errorf("unchanged flags overrode the problem: %+v", p.Solver)
	}
}

func TestSolveCommand(t *testing.T) {
	capture(t)
	dir := t.TempDir()
	runPath := filepath.Join(dir, "run.json")
	solvedPath := filepath.Join(dir, "solved.toml")

	err := runCLI(t, "solve", corridorPath,
		"--no-cache",
		"--max-iterations", "400",
		"-o", runPath,
		"--write-problem", solvedPath,
		"--render", "floorplan",
		"--out-dir", dir)
	if err != nil {
		t.Fatalf("solve error = %v", err)
	}

	data, err := os.ReadFile(runPath)
	if err != nil {
		t.Fatal(err)
	}
	var res pipeline.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode run output: %v", err)
	}
	if res.Name != "corridor" || res.RunID == "" {
		t.Errorf("result = %+v", res)
	}

	solved, err := problem.Load(solvedPath)
	if err != nil {
		t.Fatalf("load solved problem: %v", err)
	}
	if got := solved.Assets[0].Pose; got != res.Poses["bench"] {
		t.Errorf("solved pose = %+v, want %+v", got, res.Poses["bench"])
	}

	svg, err := os.ReadFile(filepath.Join(dir, "corridor.floorplan.svg"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("floorplan is not an SVG")
	}
}

func TestRenderCommandRejectsLoss(t *testing.T) {
	capture(t)
	err := runCLI(t, "render", corridorPath, "--kind", "loss")
	if err == nil || !strings.Contains(err.Error(), "needs a solve") {
		t.Errorf("render --kind loss error = %v", err)
	}
}

func TestRenderCommandDOT(t *testing.T) {
	capture(t)
	dir := t.TempDir()
	if err := runCLI(t, "render", corridorPath, "--kind", "clearance,incidence", "--format", "dot", "--out-dir", dir); err != nil {
		t.Fatalf("render error = %v", err)
	}
	for _, name := range []string{"corridor.clearance.dot", "corridor.incidence.dot"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Contains(data, []byte("graph")) {
			t.Errorf("%s is not a DOT graph:\n%s", name, data)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	buf := capture(t)
	dir := t.TempDir()
	artifacts := map[string][]byte{
		"loss.png":      []byte("png"),
		"floorplan.svg": []byte("<svg/>"),
	}
	if err := writeArtifacts("rooms/studio.toml", dir, artifacts); err != nil {
		t.Fatal(err)
	}
	for name, want := range artifacts {
		got, err := os.ReadFile(filepath.Join(dir, "studio."+name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	// Files are reported in name order.
	s := buf.String()
	if strings.Index(s, "studio.floorplan.svg") > strings.Index(s, "studio.loss.png") {
		t.Errorf("artifacts not listed in order:\n%s", s)
	}
}

func TestWriteArtifactsEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	if err := writeArtifacts("x.toml", dir, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory created without artifacts")
	}
}

func TestThrottle(t *testing.T) {
	var got []int
	fn := throttle(time.Hour, func(m progressMsg) { got = append(got, m.Iteration) })
	fn(solver.State{Iteration: 0})
	fn(solver.State{Iteration: 1})
	fn(solver.State{Iteration: 2})
	fn(solver.State{Iteration: 3, Done: true})
	if diff := cmp.Diff([]int{0, 3}, got); diff != "" {
		t.Errorf("forwarded iterations mismatch (-want +got):\n%s", diff)
	}
}

func TestNewProgressMsgCopiesBreakdown(t *testing.T) {
	byKind := map[constraint.Kind]float64{constraint.KindCollision: 2}
	st := solver.State{Iteration: 4, Energy: 2, History: []solver.Record{{ByKind: byKind}}}
	msg := newProgressMsg(st)
	byKind[constraint.KindCollision] = 0
	if msg.ByKind[constraint.KindCollision] != 2 {
		t.Errorf("ByKind aliases the solver state: %v", msg.ByKind)
	}
}

func TestSolveModelUpdate(t *testing.T) {
	cancelled := false
	m := NewSolveModel("studio", 100, func() { cancelled = true })

	next, cmd := m.Update(progressMsg{Iteration: 50, Energy: 1.5, ByKind: map[constraint.Kind]float64{constraint.KindCollision: 1.5}})
	m = next.(SolveModel)
	if cmd != nil || m.Progress.Iteration != 50 {
		t.Fatalf("progress not recorded: %+v", m.Progress)
	}
	view := m.View()
	for _, want := range []string{"studio", "50/100", string(constraint.KindCollision)} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}

	res := &pipeline.Result{Name: "studio"}
	next, cmd = m.Update(doneMsg{Result: res})
	if cmd == nil || next.(SolveModel).Result != res {
		t.Error("done message should store the result and quit")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !next.(SolveModel).Aborted || !cancelled {
		t.Error("q should abort and cancel the solve")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		n, total int
		full     int
	}{
		{0, 100, 0},
		{50, 100, barWidth / 2},
		{100, 100, barWidth},
		{200, 100, barWidth},
		{5, 0, 0},
	}
	for _, tt := range tests {
		bar := renderBar(tt.n, tt.total)
		if got := strings.Count(bar, "█"); got != tt.full {
			t.Errorf("renderBar(%d, %d) has %d full cells, want %d", tt.n, tt.total, got, tt.full)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	buf := capture(t)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := runCLI(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error = %v", err)
	}
	if !strings.Contains(buf.String(), "empty") {
		t.Errorf("clear on a missing cache printed:\n%s", buf.String())
	}

	dir, _ := cacheDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := runCLI(t, "cache", "prune"); err != nil {
		t.Fatalf("cache prune error = %v", err)
	}
	if !strings.Contains(buf.String(), "Pruned 0") {
		t.Errorf("prune printed:\n%s", buf.String())
	}

	buf.Reset()
	if err := runCLI(t, "cache", "path"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != dir {
		t.Errorf("cache path = %q, want %q", got, dir)
	}
}

func TestRunsRequiresArchive(t *testing.T) {
	capture(t)
	t.Setenv(envArchiveURI, "")
	err := runCLI(t, "runs", "list")
	if err == nil || !strings.Contains(err.Error(), envArchiveURI) {
		t.Errorf("runs list error = %v", err)
	}
}
