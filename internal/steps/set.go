package steps

import (
	"context"
	"sort"
	"sync"

	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// SetStep stores fixed values in the run's shared data. Rollback restores
// what the keys held before.
type SetStep struct {
	base
	values map[string]any

	mu       sync.Mutex
	previous map[string][]previousValue // keyed by invocation id
}

type previousValue struct {
	key     string
	value   any
	existed bool
}

func (s *SetStep) Execute(_ context.Context, inv stepper.Invocation) error {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	prev := make([]previousValue, 0, len(keys))
	for _, k := range keys {
		v, ok := inv.Data.Get(k)
		prev = append(prev, previousValue{key: k, value: v, existed: ok})
		inv.Data.Set(k, s.values[k])
	}

	s.mu.Lock()
	s.previous[inv.ID.String()] = prev
	s.mu.Unlock()
	return nil
}

func (s *SetStep) Rollback(_ context.Context, inv stepper.Invocation, _ *status.Status) error {
	s.mu.Lock()
	prev := s.previous[inv.ID.String()]
	delete(s.previous, inv.ID.String())
	s.mu.Unlock()

	for i := len(prev) - 1; i >= 0; i-- {
		p := prev[i]
		if p.existed {
			inv.Data.Set(p.key, p.value)
		} else {
			inv.Data.Remove(p.key)
		}
	}
	return nil
}
