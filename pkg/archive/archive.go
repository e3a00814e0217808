// Package archive keeps a history of finished runs.
//
// The pipeline writes one [Run] per solve; the CLI and the HTTP server list
// and fetch them. [MemoryStore] backs tests and single-process servers,
// [MongoStore] persists runs in MongoDB.
package archive

import (
	"context"
	"time"

	"github.com/matzehuels/floorsolve/pkg/scene"
)

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 50

// Run is an archived solve.
type Run struct {
	ID          string         `json:"id" bson:"_id"`
	Name        string         `json:"name,omitempty" bson:"name,omitempty"`
	ProblemHash string         `json:"problem_hash" bson:"problem_hash"`
	Status      string         `json:"status" bson:"status"`
	Iterations  int            `json:"iterations" bson:"iterations"`
	Energy      float64        `json:"energy" bson:"energy"`
	Feasible    bool           `json:"feasible" bson:"feasible"`
	Refined     bool           `json:"refined" bson:"refined"`
	Residual    []string       `json:"residual,omitempty" bson:"residual,omitempty"`
	Poses       scene.Snapshot `json:"poses" bson:"poses"`
	CacheHit    bool           `json:"cache_hit" bson:"cache_hit"`
	Duration    time.Duration  `json:"duration" bson:"duration"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
}

// ListOptions filters List.
type ListOptions struct {
	// ProblemHash restricts the result to runs of one problem.
	ProblemHash string
	Limit       int
}

func (o *ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Store persists runs. List returns the newest runs first.
// Get returns a NOT_FOUND error for unknown ids.
type Store interface {
	Put(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	List(ctx context.Context, opts ListOptions) ([]Run, error)
	Close(ctx context.Context) error
}
