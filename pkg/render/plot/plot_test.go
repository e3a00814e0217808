package plot

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func history() []solver.Record {
	var h []solver.Record
	e := 4.0
	for i := 0; i < 30; i++ {
		h = append(h, solver.Record{
			Iteration: i,
			Energy:    e,
			ByKind: map[constraint.Kind]float64{
				constraint.KindCollision:   e * 0.75,
				constraint.KindContainment: e * 0.25,
			},
		})
		e /= 2
	}
	h[len(h)-1].Energy = 0
	return h
}

func TestLoss(t *testing.T) {
	for _, log := range []bool{false, true} {
		png, err := Loss(history(), Options{Log: log})
		if err != nil {
			t.Fatalf("Loss(log=%v) error = %v", log, err)
		}
		if !bytes.HasPrefix(png, pngMagic) {
			t.Errorf("Loss(log=%v) did not produce a PNG", log)
		}
	}
}

func TestLossEmpty(t *testing.T) {
	if _, err := Loss(nil, Options{}); err == nil {
		t.Error("expected error for empty history")
	}
}

func TestKinds(t *testing.T) {
	got := kinds(history(), nil)
	want := []constraint.Kind{constraint.KindContainment, constraint.KindCollision}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kinds() mismatch (-want +got):\n%s", diff)
	}
	got = kinds(history(), []constraint.Kind{constraint.KindCollision, constraint.KindAlignment})
	if diff := cmp.Diff([]constraint.Kind{constraint.KindCollision}, got); diff != "" {
		t.Errorf("kinds(only) mismatch (-want +got):\n%s", diff)
	}
}
