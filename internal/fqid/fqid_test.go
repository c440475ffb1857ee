package fqid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChild_BuildsCanonicalString(t *testing.T) {
	root := Root(TypeStepper, "deploy", "")
	step := root.Child(TypeGroup, "flash", "").
		Child(TypeIteration, "2", "").
		Child(TypeStep, "copy", "boot")

	assert.Equal(t, "stepper:deploy/group:flash/iteration:2/step:copy#boot", step.String())
	assert.Equal(t, 4, step.Depth())
	assert.Equal(t, TypeStep, step.Type())
	assert.Equal(t, "copy", step.ID())
	assert.Equal(t, "boot", step.SecondaryID())
	assert.Equal(t, "stepper:deploy/group:flash/iteration:2", step.Parent().String())
}

func TestChild_DoesNotMutateParent(t *testing.T) {
	root := Root(TypeStepper, "s", "")
	a := root.Child(TypeStep, "a", "")
	b := root.Child(TypeStep, "b", "")

	assert.Equal(t, "stepper:s", root.String())
	assert.Same(t, root, a.Parent())
	assert.Same(t, root, b.Parent())
	assert.False(t, a.Equal(b))
}

func TestEqual_IsStructural(t *testing.T) {
	a := Root(TypeStepper, "s", "").Child(TypeStep, "x", "1")
	b := Root(TypeStepper, "s", "").Child(TypeStep, "x", "1")

	assert.NotSame(t, a, b)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	var nilID *FullQualifiedID
	assert.True(t, nilID.Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestIteration(t *testing.T) {
	group := Root(TypeStepper, "s", "").Child(TypeGroup, "g", "")
	assert.Equal(t, -1, group.Iteration())

	step := group.Child(TypeIteration, "3", "").Child(TypeStep, "x", "")
	assert.Equal(t, 3, step.Iteration())

	inner := step.Parent().Child(TypeGroup, "nested", "").Child(TypeIteration, "0", "").Child(TypeStep, "y", "")
	assert.Equal(t, 0, inner.Iteration(), "nearest iteration wins")
}

func TestAncestor(t *testing.T) {
	step := Root(TypeStepper, "s", "").Child(TypeGroup, "g", "").Child(TypeStep, "x", "")

	require.NotNil(t, step.Ancestor(TypeGroup))
	assert.Equal(t, "g", step.Ancestor(TypeGroup).ID())
	assert.Same(t, step, step.Ancestor(TypeStep))
	assert.Nil(t, step.Ancestor(TypeIteration))
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []*FullQualifiedID{
		Root(TypeStepper, "deploy", ""),
		Root(TypeStepper, "deploy", "").Child(TypeStepper, "deploy/0", "board-1"),
		Root(TypeStepper, "a:b", "c#d").Child(TypeStep, "100%", ""),
	}
	for _, want := range tests {
		t.Run(want.String(), func(t *testing.T) {
			got, err := Parse(want.String())
			require.NoError(t, err)
			assert.True(t, want.Equal(got))
			assert.Equal(t, want.Depth(), got.Depth())
			assert.Equal(t, want.ID(), got.ID())
			assert.Equal(t, want.SecondaryID(), got.SecondaryID())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse("stepper:s/noType")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestString_NilIsEmpty(t *testing.T) {
	var id *FullQualifiedID
	assert.Equal(t, "", id.String())
}
