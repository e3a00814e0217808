package constraint

import (
	"math"
	"testing"

	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/reach"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

func newScene(t *testing.T, assets ...scene.Asset) *scene.Scene {
	t.Helper()
	s, err := scene.New(scene.Boundary{
		Vertices: []scene.Vertex{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}},
	}, assets)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func unit(id string, x, y, theta float64) scene.Asset {
	return scene.Asset{ID: id, Footprint: scene.Footprint{Width: 1, Depth: 1}, Pose: scene.Pose{X: x, Y: y, Theta: theta}}
}

func cost(t *testing.T, c Constraint, p scene.PoseReader) float64 {
	t.Helper()
	v, err := c.Cost(p)
	if err != nil {
		t.Fatalf("%s: Cost() error = %v", c.ID(), err)
	}
	return v
}

func TestContainment(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want float64
	}{
		{"inside", 2, 2, 0},
		{"touching wall", 0.5, 2, 0},
		{"half out", 0, 2, 1}, // two corners 0.5 outside
		// (4.5,4.5) is 0.5√2 away; (4.5,3.5) and (3.5,4.5) are 0.5 away.
		{"corner out", 4, 4, 0.5*math.Sqrt2 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t, unit("a", tt.x, tt.y, 0))
			c := NewContainment(Meta{ID: "c"}, "a")
			if got := cost(t, c, s); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollisionSymmetricAndZeroIffDisjoint(t *testing.T) {
	offset := 0.5 + math.Sqrt2/2
	tests := []struct {
		name     string
		a, b     scene.Asset
		positive bool
	}{
		{"coincident", unit("a", 2, 2, 0), unit("b", 2, 2, 0), true},
		{"overlap", unit("a", 1.5, 2, 0), unit("b", 2, 2, 0.3), true},
		{"apart", unit("a", 1, 1, 0), unit("b", 3, 3, 0), false},
		{"rotated touching", unit("a", 1, 2, 0), unit("b", 1+offset, 2, math.Pi/4), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t, tt.a, tt.b)
			ab := cost(t, NewCollision(Meta{ID: "ab"}, "a", "b"), s)
			ba := cost(t, NewCollision(Meta{ID: "ba"}, "b", "a"), s)
			if math.Abs(ab-ba) > 1e-12 {
				t.Errorf("asymmetric: %v vs %v", ab, ba)
			}
			if tt.positive && ab <= 1e-9 {
				t.Errorf("Cost() = %v, want > 0", ab)
			}
			if !tt.positive && ab > 1e-9 {
				t.Errorf("Cost() = %v, want ≈ 0", ab)
			}
		})
	}
}

func TestCollisionSlopesOutOfContainment(t *testing.T) {
	bed := scene.Asset{ID: "bed", Footprint: scene.Footprint{Width: 3, Depth: 3}, Pose: scene.Pose{X: 2, Y: 2}}
	c := NewCollision(Meta{ID: "c"}, "bed", "chair")
	prev := math.Inf(1)
	for _, x := range []float64{2.2, 2.4, 2.6, 2.8} {
		s := newScene(t, bed, unit("chair", x, 2, 0))
		got := cost(t, c, s)
		if got >= prev {
			t.Errorf("chair at x=%v: cost %v did not drop below %v", x, got, prev)
		}
		prev = got
	}
}

func TestAlignment(t *testing.T) {
	s := newScene(t, unit("a", 1, 1, math.Pi/2), unit("b", 3, 3, -math.Pi/2))
	tests := []struct {
		name string
		c    *Alignment
		want float64
	}{
		{"absolute hit", NewAlignment(Meta{ID: "x"}, []string{"a"}, math.Pi/2, false), 0},
		{"absolute miss", NewAlignment(Meta{ID: "x"}, []string{"a"}, 0, false), 1},
		{"relative opposite", NewAlignment(Meta{ID: "x"}, []string{"a", "b"}, 0, false), 2},
		{"relative symmetric", NewAlignment(Meta{ID: "x"}, []string{"a", "b"}, 0, true), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cost(t, tt.c, s); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSemantic(t *testing.T) {
	s := newScene(t,
		unit("sofa", 2, 0.5, math.Pi/2), // back on the bottom wall, facing +y
		unit("tv", 2, 3.5, 0),
	)
	tests := []struct {
		name   string
		rel    Relation
		assets []string
		p      Params
		want   float64
	}{
		{"distance in range", RelationDistance, []string{"sofa", "tv"}, Params{Min: 2, Max: 4}, 0},
		{"distance too close", RelationDistance, []string{"sofa", "tv"}, Params{Min: 4}, 1},
		{"near too far", RelationNear, []string{"sofa", "tv"}, Params{Max: 1}, 4},
		{"position inside radius", RelationPosition, []string{"tv"}, Params{X: 2, Y: 3, Radius: 0.5}, 0},
		{"position outside radius", RelationPosition, []string{"tv"}, Params{X: 2, Y: 1.5, Radius: 1}, 1},
		{"facing", RelationFacing, []string{"sofa", "tv"}, Params{}, 0},
		{"facing away", RelationFacing, []string{"tv", "sofa"}, Params{}, 1},
		{"against wall", RelationAgainstWall, []string{"sofa"}, Params{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSemantic(Meta{ID: tt.name}, tt.rel, tt.assets, tt.p)
			if got := cost(t, c, s); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnergyWeight(t *testing.T) {
	tests := []struct {
		name string
		m    Meta
		want float64
		hard bool
	}{
		{"soft", Meta{ID: "s", Weight: 2}, 2, false},
		{"soft zero", Meta{ID: "s", Weight: 0}, 0, false},
		{"hard flag", Meta{ID: "h", Weight: 3, Hard: true}, 300, true},
		{"hard infinite", Meta{ID: "h", Weight: math.Inf(1)}, HardWeight, true},
		{"hard zero", Meta{ID: "h", Weight: 0, Hard: true}, HardWeight, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContainment(tt.m, "a")
			if c.IsHard() != tt.hard {
				t.Errorf("IsHard() = %v, want %v", c.IsHard(), tt.hard)
			}
			if got := EnergyWeight(c); got != tt.want {
				t.Errorf("EnergyWeight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	s := newScene(t, unit("a", 1, 1, 0), unit("b", 3, 3, 0))
	anchors := []reach.Anchor{{ID: "p", X: 0.2, Y: 0.2}, {ID: "q", X: 3.8, Y: 0.2}}

	good := []Spec{
		{Kind: KindContainment, Assets: []string{"a"}, Weight: 1, Hard: true},
		{ID: "ab", Kind: KindCollision, Assets: []string{"a", "b"}, Weight: 1},
		{Kind: KindSemantic, Relation: RelationNear, Assets: []string{"a", "b"}, Max: 2, Weight: 0.5},
		{Kind: KindReachability, Pairs: []reach.Pair{{From: "p", To: "q", Clearance: 0.3}}, Weight: 1},
	}
	cs, err := Build(s, good, anchors)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cs[0].ID() != "containment-1" || cs[1].ID() != "ab" {
		t.Errorf("ids = %q, %q", cs[0].ID(), cs[1].ID())
	}
	if _, ok := cs[3].(Decomposer); !ok {
		t.Error("reachability should decompose into terms")
	}

	tests := []struct {
		name string
		spec Spec
		code errors.Code
	}{
		{"unknown kind", Spec{Kind: "gravity", Assets: []string{"a"}}, errors.ErrCodeInvalidConstraint},
		{"unknown relation", Spec{Kind: KindSemantic, Relation: "on_top_of", Assets: []string{"a", "b"}}, errors.ErrCodeInvalidConstraint},
		{"negative weight", Spec{Kind: KindContainment, Assets: []string{"a"}, Weight: -1}, errors.ErrCodeInvalidConstraint},
		{"nan weight", Spec{Kind: KindContainment, Assets: []string{"a"}, Weight: math.NaN()}, errors.ErrCodeInvalidConstraint},
		{"arity", Spec{Kind: KindCollision, Assets: []string{"a"}}, errors.ErrCodeInvalidConstraint},
		{"unknown asset", Spec{ID: "ghost", Kind: KindContainment, Assets: []string{"zzz"}}, errors.ErrCodeConstraintEvaluation},
		{"unknown anchor", Spec{Kind: KindReachability, Pairs: []reach.Pair{{From: "p", To: "zzz"}}}, errors.ErrCodeUnknownAnchor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(s, []Spec{tt.spec}, anchors)
			if !errors.Is(err, tt.code) {
				t.Fatalf("Build() error = %v, want %s", err, tt.code)
			}
		})
	}

	_, err = Build(s, []Spec{{ID: "ghost", Kind: KindContainment, Assets: []string{"zzz"}}}, nil)
	if id, ok := errors.ConstraintOf(err); !ok || id != "ghost" {
		t.Errorf("ConstraintOf() = %q, %v; want ghost", id, ok)
	}
}

func TestAllPairsSkipsFixedPairs(t *testing.T) {
	door := unit("door", 0.5, 0.5, 0)
	door.Fixed = true
	window := unit("window", 3.5, 3.5, 0)
	window.Fixed = true
	s := newScene(t, door, window, unit("a", 2, 2, 0))

	if n := len(AllPairsCollision(s, 1, true)); n != 2 {
		t.Errorf("AllPairsCollision() = %d constraints, want 2", n)
	}
	if n := len(AllContainment(s, 1, true)); n != 1 {
		t.Errorf("AllContainment() = %d constraints, want 1", n)
	}
}

func TestGradient(t *testing.T) {
	s := newScene(t, unit("a", 2, 2, 0))
	c := NewSemantic(Meta{ID: "pos"}, RelationPosition, []string{"a"}, Params{X: 0, Y: 2})
	term := TermsOf(c)[0]

	got, grad, err := Gradient(term, s, []string{"a"}, 1e-6)
	if err != nil {
		t.Fatal(err)
	}
	// cost = d², d = x, so ∂/∂x = 2x = 4.
	if math.Abs(got-4) > 1e-9 {
		t.Errorf("cost = %v, want 4", got)
	}
	if math.Abs(grad[0]-4) > 1e-4 || math.Abs(grad[1]) > 1e-4 || math.Abs(grad[2]) > 1e-4 {
		t.Errorf("grad = %v, want [4 0 0]", grad)
	}
}

type nanConstraint struct{ base }

func (c *nanConstraint) Cost(scene.PoseReader) (float64, error) { return math.NaN(), nil }
func (c *nanConstraint) Satisfied(p scene.PoseReader, tol float64) (bool, error) {
	return satisfied(c, p, tol)
}

func TestGradientRejectsNaN(t *testing.T) {
	s := newScene(t, unit("a", 2, 2, 0))
	c := &nanConstraint{base{meta: Meta{ID: "bad"}, kind: KindSemantic, scope: []string{"a"}}}
	_, _, err := Gradient(TermsOf(c)[0], s, []string{"a"}, 0)
	if !errors.Is(err, errors.ErrCodeConstraintEvaluation) {
		t.Fatalf("Gradient() error = %v, want CONSTRAINT_EVALUATION", err)
	}
	if id, _ := errors.ConstraintOf(err); id != "bad" {
		t.Errorf("ConstraintOf() = %q, want bad", id)
	}
}
