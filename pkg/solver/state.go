package solver

import (
	"time"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Status is the solver state machine position.
//
//	Initialized → Iterating → Converged | Stalled | IterationLimitReached
type Status string

const (
	StatusInitialized    Status = "initialized"
	StatusIterating      Status = "iterating"
	StatusConverged      Status = "converged"
	StatusStalled        Status = "stalled"
	StatusIterationLimit Status = "iteration_limit_reached"
)

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	switch s {
	case StatusConverged, StatusStalled, StatusIterationLimit:
		return true
	}
	return false
}

// Record is one history entry: the energy breakdown evaluated at the poses
// of one iteration, before that iteration's update.
type Record struct {
	Iteration int                         `json:"iteration"`
	Energy    float64                     `json:"energy"`
	Feasible  bool                        `json:"feasible"`
	GradNorm  float64                     `json:"grad_norm"`
	ByKind    map[constraint.Kind]float64 `json:"by_kind"`
	// ByConstraint holds unweighted costs.
	ByConstraint map[string]float64 `json:"by_constraint,omitempty"`
}

// Snapshot is the pose set of the free assets at one iteration.
type Snapshot struct {
	Iteration int            `json:"iteration"`
	Poses     scene.Snapshot `json:"poses"`
}

// State is the live optimization state handed to Options.Progress.
type State struct {
	Iteration int
	Energy    float64
	Feasible  bool
	// Breakdown holds the unweighted cost of each constraint.
	Breakdown map[string]float64
	History   []Record
	Snapshots []Snapshot
	Status    Status
	Done      bool
}

// Result summarizes a finished run.
type Result struct {
	Status     Status         `json:"status"`
	Iterations int            `json:"iterations"`
	Energy     float64        `json:"energy"`
	Feasible   bool           `json:"feasible"`
	TimedOut   bool           `json:"timed_out,omitempty"`
	Poses      scene.Snapshot `json:"poses"`
	History    []Record       `json:"history"`
	Snapshots  []Snapshot     `json:"snapshots,omitempty"`
	Duration   time.Duration  `json:"duration"`
}
