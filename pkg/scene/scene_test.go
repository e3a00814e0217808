package scene

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/floorsolve/pkg/errors"
)

func room(w, d float64) Boundary {
	return Boundary{
		Vertices:   []Vertex{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: d}, {X: 0, Y: d}},
		WallHeight: 2.5,
	}
}

func box(id string, x, y float64) Asset {
	return Asset{ID: id, Footprint: Footprint{Width: 1, Depth: 1}, Pose: Pose{X: x, Y: y}}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		boundary Boundary
		assets   []Asset
		code     errors.Code
	}{
		{"valid", room(4, 4), []Asset{box("a", 1, 1), box("b", 3, 3)}, ""},
		{"closing vertex", Boundary{Vertices: []Vertex{{0, 0, 0}, {4, 0, 0}, {4, 4, 0}, {0, 0, 0}}}, nil, ""},
		{"two vertices", Boundary{Vertices: []Vertex{{0, 0, 0}, {4, 0, 0}}}, nil, errors.ErrCodeInvalidGeometry},
		{"zero area", Boundary{Vertices: []Vertex{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}}, nil, errors.ErrCodeInvalidGeometry},
		{"nan vertex", Boundary{Vertices: []Vertex{{0, 0, 0}, {math.NaN(), 0, 0}, {1, 1, 0}}}, nil, errors.ErrCodeInvalidGeometry},
		{"zero width", room(4, 4), []Asset{{ID: "a", Footprint: Footprint{Width: 0, Depth: 1}}}, errors.ErrCodeInvalidGeometry},
		{"negative depth", room(4, 4), []Asset{{ID: "a", Footprint: Footprint{Width: 1, Depth: -1}}}, errors.ErrCodeInvalidGeometry},
		{"duplicate id", room(4, 4), []Asset{box("a", 1, 1), box("a", 2, 2)}, errors.ErrCodeInvalidInput},
		{"empty id", room(4, 4), []Asset{box("", 1, 1)}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.boundary, tt.assets)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("New() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Fatalf("New() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestApplyAtomic(t *testing.T) {
	s, err := New(room(4, 4), []Asset{box("a", 1, 1), box("b", 3, 3)})
	if err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()

	err = s.Apply(map[string]Pose{
		"a":       {X: 2, Y: 2},
		"missing": {X: 0, Y: 0},
	})
	if !errors.Is(err, errors.ErrCodeUnknownAsset) {
		t.Fatalf("Apply() error = %v, want UNKNOWN_ASSET", err)
	}
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("scene changed after failed Apply (-before +after):\n%s", diff)
	}

	if err := s.Apply(map[string]Pose{"a": {X: 2, Y: 2, Theta: 0.5}}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	got, _ := s.Pose("a")
	if diff := cmp.Diff(Pose{X: 2, Y: 2, Theta: 0.5}, got); diff != "" {
		t.Errorf("pose mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyRejectsNaN(t *testing.T) {
	s, _ := New(room(4, 4), []Asset{box("a", 1, 1)})
	if err := s.Apply(map[string]Pose{"a": {X: math.NaN()}}); err == nil {
		t.Fatal("Apply() accepted NaN pose")
	}
	if p, _ := s.Pose("a"); p.X != 1 {
		t.Errorf("pose changed to %v", p)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s, _ := New(room(4, 4), []Asset{box("a", 1, 1)})
	c := s.Clone()
	if err := c.Apply(map[string]Pose{"a": {X: 3, Y: 3}}); err != nil {
		t.Fatal(err)
	}
	if p, _ := s.Pose("a"); p.X != 1 {
		t.Errorf("original mutated through clone: %v", p)
	}
}

func TestFreeAndContains(t *testing.T) {
	fixed := box("door", 0.5, 0.5)
	fixed.Fixed = true
	s, _ := New(room(4, 4), []Asset{box("a", 1, 1), fixed, box("b", 2, 2)})

	if diff := cmp.Diff([]string{"a", "b"}, s.Free()); diff != "" {
		t.Errorf("Free() mismatch (-want +got):\n%s", diff)
	}
	if !s.Contains(2, 2) || s.Contains(5, 2) {
		t.Error("Contains() wrong")
	}
}

func TestOverlay(t *testing.T) {
	s, _ := New(room(4, 4), []Asset{box("a", 1, 1), box("b", 2, 2)})
	o := s.With(Snapshot{"a": {X: 3, Y: 3}})

	if p, _ := o.Pose("a"); p.X != 3 {
		t.Errorf("overlay pose = %v, want x=3", p)
	}
	if p, _ := o.Pose("b"); p.X != 2 {
		t.Errorf("fallback pose = %v, want x=2", p)
	}
	r, ok := Rect(o, "a")
	if !ok || r.Center.X != 3 || r.HalfW != 0.5 {
		t.Errorf("Rect() = %+v, %v", r, ok)
	}
	if _, ok := Rect(o, "nope"); ok {
		t.Error("Rect() found unknown asset")
	}
}
