package archive

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

func sampleRuns() []Run {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Run{
		{ID: "r1", ProblemHash: "p1", Status: "converged", Poses: scene.Snapshot{"a": {X: 1}}, CreatedAt: t0},
		{ID: "r2", ProblemHash: "p2", Status: "stalled", Poses: scene.Snapshot{"a": {X: 2}}, CreatedAt: t0.Add(time.Minute)},
		{ID: "r3", ProblemHash: "p1", Status: "converged", Poses: scene.Snapshot{"a": {X: 3}}, CreatedAt: t0.Add(2 * time.Minute)},
	}
}

func ids(runs []Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close(ctx)

	for _, r := range sampleRuns() {
		if err := s.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Get(ctx, "r2")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sampleRuns()[1], got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all", ListOptions{}, []string{"r3", "r2", "r1"}},
		{"by problem", ListOptions{ProblemHash: "p1"}, []string{"r3", "r1"}},
		{"limit", ListOptions{Limit: 1}, []string{"r3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.List(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, ids(runs)); diff != "" {
				t.Errorf("List() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	run := sampleRuns()[0]
	_ = s.Put(ctx, run)

	run.Poses["a"] = scene.Pose{X: 99}
	got, _ := s.Get(ctx, "r1")
	if got.Poses["a"].X != 1 {
		t.Error("store should not alias the caller's poses")
	}
	got.Poses["a"] = scene.Pose{X: 42}
	again, _ := s.Get(ctx, "r1")
	if again.Poses["a"].X != 1 {
		t.Error("Get should return a copy")
	}
}

func TestMemoryStoreRejectsEmptyID(t *testing.T) {
	err := NewMemoryStore().Put(context.Background(), Run{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Put() error = %v, want INVALID_INPUT", err)
	}
}
