//go:build integration

package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/floorsolve/pkg/errors"
)

func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("FLOORSOLVE_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewMongoStore(ctx, MongoOptions{
		URI:        uri,
		Database:   "floorsolve_test",
		Collection: "runs_" + uuid.NewString()[:8],
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}
	defer func() {
		_ = s.coll.Drop(ctx)
		_ = s.Close(ctx)
	}()

	for _, r := range sampleRuns() {
		if err := s.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Get(ctx, "r3")
	if err != nil {
		t.Fatal(err)
	}
	if got.ProblemHash != "p1" || got.Poses["a"].X != 3 {
		t.Errorf("Get() = %+v", got)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
	runs, err := s.List(ctx, ListOptions{ProblemHash: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "r3" {
		t.Errorf("List() = %v", ids(runs))
	}
}
