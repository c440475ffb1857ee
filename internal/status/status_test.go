package status

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Ordering(t *testing.T) {
	assert.Less(t, OK, Info)
	assert.Less(t, Info, Warning)
	assert.Less(t, Warning, Error)
	assert.Less(t, Error, Cancel)
}

func TestSeverity_Classification(t *testing.T) {
	tests := []struct {
		sev         Severity
		fatal       bool
		accumulated bool
	}{
		{OK, false, false},
		{Info, false, true},
		{Warning, false, true},
		{Error, true, false},
		{Cancel, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.sev.String(), func(t *testing.T) {
			assert.Equal(t, tt.fatal, tt.sev.IsFatal())
			assert.Equal(t, tt.accumulated, tt.sev.IsAccumulated())
		})
	}
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("WARNING")
	require.NoError(t, err)
	assert.Equal(t, Warning, sev)

	_, err = ParseSeverity("fatal")
	assert.Error(t, err)
}

func TestSeverity_StringOutOfRange(t *testing.T) {
	assert.Equal(t, "severity(42)", Severity(42).String())
}

func TestMerge_SeverityIsMaximum(t *testing.T) {
	merged := Merge("run", New(Info, "a"), nil, New(Error, "b"), New(Warning, "c"))

	assert.Equal(t, Error, merged.Severity)
	require.Len(t, merged.Children, 3, "nil entries are skipped")
	assert.True(t, merged.IsMulti())
}

func TestMerge_EmptyIsOK(t *testing.T) {
	merged := Merge("nothing")
	assert.Equal(t, OK, merged.Severity)
	assert.False(t, merged.IsMulti())
	assert.True(t, merged.IsOK())
}

func TestCombine(t *testing.T) {
	assert.Nil(t, Combine("x", nil))

	single := New(Warning, "only")
	assert.Same(t, single, Combine("x", []*Status{single}))

	multi := Combine("x", []*Status{New(Info, "a"), New(Warning, "b")})
	require.NotNil(t, multi)
	assert.Equal(t, Warning, multi.Severity)
	assert.Len(t, multi.Children, 2)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	st := New(Warning, "careful")
	assert.Same(t, st, FromError(st))
	assert.Same(t, st, FromError(fmt.Errorf("wrapped: %w", st)))

	cancelled := FromError(context.Canceled)
	assert.Equal(t, Cancel, cancelled.Severity)
	assert.ErrorIs(t, cancelled, context.Canceled)

	deadline := FromError(fmt.Errorf("op: %w", context.DeadlineExceeded))
	assert.Equal(t, Cancel, deadline.Severity)

	plain := errors.New("boom")
	classified := FromError(plain)
	assert.Equal(t, Error, classified.Severity)
	assert.ErrorIs(t, classified, plain)
}

func TestFromError_JoinedTrees(t *testing.T) {
	diskFull := errors.New("disk full")
	warn := New(Warning, "slow link")
	info := New(Info, "fyi")

	tests := []struct {
		name string
		err  error
		want Severity
		same *Status
	}{
		{name: "plain error beside warning", err: errors.Join(diskFull, warn), want: Error},
		{name: "warning beside plain error", err: errors.Join(warn, diskFull), want: Error},
		{name: "wrapped join", err: fmt.Errorf("step b: %w", errors.Join(warn, diskFull)), want: Error},
		{name: "multiple %w", err: fmt.Errorf("%w and %w", info, diskFull), want: Error},
		{name: "cancellation beside warning", err: errors.Join(warn, context.Canceled), want: Cancel},
		{name: "statuses only keep the worst", err: errors.Join(info, warn), want: Warning},
		{name: "first status is already worst", err: errors.Join(warn, info), want: Warning, same: warn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := FromError(tt.err)
			require.NotNil(t, st)
			assert.Equal(t, tt.want, st.Severity)
			if tt.same != nil {
				assert.Same(t, tt.same, st)
				return
			}
			assert.ErrorIs(t, st, tt.err)
		})
	}

	st := FromError(errors.Join(diskFull, warn))
	assert.ErrorIs(t, st, diskFull)
	assert.Contains(t, st.Error(), "disk full")
	assert.Contains(t, st.Error(), "slow link")
}

func TestStatus_UnwrapSearchesChildren(t *testing.T) {
	sentinel := errors.New("sentinel")
	tree := Merge("root", New(Info, "a"), Wrap(Error, sentinel, "child failed"))

	assert.ErrorIs(t, tree, sentinel)

	var target *Status
	require.ErrorAs(t, tree, &target)
}

func TestStatus_ErrorString(t *testing.T) {
	st := Merge("run finished", New(Warning, "disk low"), Wrap(Error, errors.New("exit 1"), "build failed"))

	msg := st.Error()
	assert.Contains(t, msg, "error: run finished")
	assert.Contains(t, msg, "warning: disk low")
	assert.Contains(t, msg, "build failed: exit 1")
}

func TestStatus_ErrorDoesNotRepeatCause(t *testing.T) {
	st := FromError(errors.New("boom"))
	assert.Equal(t, "error: boom", st.Error())
}

func TestErrorf_RecordsCause(t *testing.T) {
	sentinel := errors.New("missing")
	st := Errorf("lookup %q: %w", "g1", sentinel)

	assert.Equal(t, Error, st.Severity)
	assert.ErrorIs(t, st, sentinel)
	assert.Contains(t, st.Message, `lookup "g1"`)
}

func TestFlatten(t *testing.T) {
	a, b, c := New(Info, "a"), New(Warning, "b"), New(Error, "c")
	tree := Merge("root", a, Merge("inner", b, c))

	assert.Equal(t, []*Status{a, b, c}, tree.Flatten())
	assert.Equal(t, []*Status{a}, a.Flatten())
	assert.Nil(t, (*Status)(nil).Flatten())
}
