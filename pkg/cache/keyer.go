package cache

// SolveKeyOpts holds the options that change the outcome of a solve.
// Fields that only affect reporting (logging, progress) are left out.
type SolveKeyOpts struct {
	Seed          uint64  `json:"seed"`
	MaxIterations int     `json:"max_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	Tolerance     float64 `json:"tolerance"`
	Refine        bool    `json:"refine"`
	// Settings carries the remaining solver and refinement knobs, already
	// serialized by the caller.
	Settings string `json:"settings,omitempty"`
}

// RenderKeyOpts identifies a rendered artifact of a cached solve.
type RenderKeyOpts struct {
	Kind   string `json:"kind"`   // "clearance", "incidence", "loss"
	Format string `json:"format"` // "svg", "png", "dot"
}

// Keyer generates cache keys.
type Keyer interface {
	// SolveKey returns the key of a solve result for a problem hash.
	SolveKey(problemHash string, opts SolveKeyOpts) string
	// RenderKey returns the key of an artifact rendered from a solve.
	RenderKey(runHash string, opts RenderKeyOpts) string
}

// DefaultKeyer hashes every key component into a prefixed SHA-256 key.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SolveKey implements Keyer.
func (DefaultKeyer) SolveKey(problemHash string, opts SolveKeyOpts) string {
	return hashKey("solve", problemHash, opts)
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(runHash string, opts RenderKeyOpts) string {
	return hashKey("render", runHash, opts)
}

var _ Keyer = DefaultKeyer{}
