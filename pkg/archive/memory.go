package archive

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/floorsolve/pkg/errors"
)

// MemoryStore keeps runs in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run)}
}

// Put stores run, replacing any run with the same id.
func (m *MemoryStore) Put(_ context.Context, run Run) error {
	if err := errors.ValidateID("run", run.ID); err != nil {
		return err
	}
	run.Poses = run.Poses.Clone()
	run.Residual = slices.Clone(run.Residual)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

// Get returns the run with the given id.
func (m *MemoryStore) Get(_ context.Context, id string) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return Run{}, errors.New(errors.ErrCodeNotFound, "run %q not found", id)
	}
	run.Poses = run.Poses.Clone()
	return run, nil
}

// List returns runs newest first, ties broken by id.
func (m *MemoryStore) List(_ context.Context, opts ListOptions) ([]Run, error) {
	m.mu.RLock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		if opts.ProblemHash == "" || r.ProblemHash == opts.ProblemHash {
			r.Poses = r.Poses.Clone()
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if n := opts.limit(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Close does nothing.
func (m *MemoryStore) Close(context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
