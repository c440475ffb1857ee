package stepper

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	g := NewGroup("deploy", "Deploy")
	s := newStep(nil, "copy")
	r.RegisterGroup(g)
	r.RegisterStep(s)

	got, err := r.StepGroup("deploy")
	require.NoError(t, err)
	assert.Same(t, g, got)
	assert.True(t, r.HasGroup("deploy"))
	assert.False(t, r.HasGroup("copy"))

	step, err := r.Step("copy")
	require.NoError(t, err)
	assert.Same(t, s, step)
	assert.True(t, r.HasStep("copy"))
	assert.Same(t, g, r.MustStepGroup("deploy"))
}

func TestRegistry_LookupMisses(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.StepGroup("missing")
	assert.ErrorIs(t, err, ErrStepGroupNotFound)
	assert.Contains(t, err.Error(), `"missing"`)

	_, err = r.Step("missing")
	assert.ErrorIs(t, err, ErrStepNotFound)

	assert.Panics(t, func() { r.MustStepGroup("missing") })
}

func TestRegistry_RegistrationPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(r *Registry)
	}{
		{name: "nil group", fn: func(r *Registry) { r.RegisterGroup(nil) }},
		{name: "empty group id", fn: func(r *Registry) { r.RegisterGroup(NewGroup("", "x")) }},
		{name: "duplicate group", fn: func(r *Registry) {
			r.RegisterGroup(NewGroup("a", "A"))
			r.RegisterGroup(NewGroup("a", "A again"))
		}},
		{name: "nil step", fn: func(r *Registry) { r.RegisterStep(nil) }},
		{name: "empty step id", fn: func(r *Registry) { r.RegisterStep(newStep(nil, "")) }},
		{name: "duplicate step", fn: func(r *Registry) {
			r.RegisterStep(newStep(nil, "s"))
			r.RegisterStep(newStep(nil, "s"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, func() { tt.fn(NewRegistry()) })
		})
	}
}

func TestRegistry_SortedIDs(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		r.RegisterGroup(NewGroup(id, id))
		r.RegisterStep(newStep(nil, id))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Groups())
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Steps())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.RegisterGroup(NewGroup(fmt.Sprintf("g%d", i), ""))
		}(i)
		go func() {
			defer wg.Done()
			_ = r.Groups()
			_, _ = r.StepGroup("g0")
		}()
	}
	wg.Wait()
	assert.Len(t, r.Groups(), 20)
}

func TestGroupable_Entries(t *testing.T) {
	t.Parallel()

	s := newStep(nil, "flash", "prepare")
	entry := StepEntry(s, WithSecondaryID("boot"), WithDependencies("power"), Disabled(true))
	assert.Equal(t, KindStep, entry.Kind())
	assert.Same(t, s, entry.Step())
	assert.Nil(t, entry.Group())
	assert.Equal(t, "flash", entry.ExtensionID())
	assert.True(t, entry.Disabled)
	assert.Equal(t, []string{"power", "prepare"}, entry.AllDependencies())
	assert.Equal(t, "step flash#boot", entry.String())

	g := NewGroup("inner", "")
	ge := GroupEntry(g, WithDependencies("flash"))
	assert.Equal(t, KindGroup, ge.Kind())
	assert.Same(t, g, ge.Group())
	assert.Nil(t, ge.Step())
	assert.Equal(t, []string{"flash"}, ge.AllDependencies())
	assert.Equal(t, "group inner", ge.String())
	assert.Equal(t, "inner", g.Label(), "an empty label falls back to the id")

	assert.Panics(t, func() { StepEntry(nil) })
	assert.Panics(t, func() { GroupEntry(nil) })
}

func TestGroup_StepsReturnsCopy(t *testing.T) {
	t.Parallel()

	g := NewGroup("g", "G", StepEntry(newStep(nil, "a")))
	entries, err := g.Steps(nil)
	require.NoError(t, err)
	entries[0] = StepEntry(newStep(nil, "mutated"))

	again, err := g.Steps(nil)
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].ExtensionID())
	assert.Nil(t, g.NewIterator())
}
