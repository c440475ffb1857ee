package callback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
)

// permutations returns every ordering of keys.
func permutations(keys []string) [][]string {
	if len(keys) <= 1 {
		return [][]string{append([]string(nil), keys...)}
	}
	var out [][]string
	for i := range keys {
		rest := make([]string, 0, len(keys)-1)
		rest = append(rest, keys[:i]...)
		rest = append(rest, keys[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{keys[i]}, p...))
		}
	}
	return out
}

func TestMonitor_FiresOnceForEveryOrdering(t *testing.T) {
	keys := []string{"k1", "k2", "k3"}
	orders := permutations(keys)
	require.Len(t, orders, 6)

	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			var calls int
			var got *status.Status
			m := NewMonitor(func(st *status.Status) {
				calls++
				got = st
			}, "k1", "k2", "k3")

			for i, k := range order {
				assert.Equal(t, 0, calls, "continuation fired before key %d was unlocked", i)
				m.Unlock(k, nil)
			}

			assert.Equal(t, 1, calls)
			require.NotNil(t, got)
			assert.Equal(t, status.OK, got.Severity)
			assert.True(t, m.IsDone())
			assert.Equal(t, 0, m.Pending())
		})
	}
}

func TestMonitor_ConcurrentUnlocksFromManyGoroutines(t *testing.T) {
	for _, order := range permutations([]string{"k1", "k2", "k3"}) {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			var calls atomic.Int32
			m := NewMonitor(func(*status.Status) { calls.Add(1) }, "k1", "k2", "k3")

			var g errgroup.Group
			for i, k := range order {
				g.Go(func() error {
					time.Sleep(time.Duration(i) * time.Millisecond)
					m.Unlock(k, nil)
					return nil
				})
			}
			require.NoError(t, g.Wait())

			select {
			case <-m.Done():
			case <-time.After(time.Second):
				t.Fatal("monitor never completed")
			}
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestMonitor_StressManyKeys(t *testing.T) {
	const n = 200
	keys := make([]any, n)
	for i := range keys {
		keys[i] = i
	}

	var calls atomic.Int32
	m := NewPlainMonitor(func() { calls.Add(1) }, keys...)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			<-start
			m.Unlock(k, nil)
			m.Unlock(k, nil) // duplicate reports are ignored
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, m.IsDone())
}

func TestMonitor_ContinuationRunsOnFinalUnlockGoroutine(t *testing.T) {
	finalDone := make(chan struct{})
	var ranBeforeReturn atomic.Bool
	m := NewMonitor(func(*status.Status) { ranBeforeReturn.Store(true) }, "a", "b")

	m.Unlock("a", nil)
	go func() {
		m.Unlock("b", nil)
		// The continuation is synchronous with the final Unlock call.
		assert.True(t, ranBeforeReturn.Load())
		close(finalDone)
	}()
	<-finalDone
}

func TestMonitor_MergesNonOKStatusesInKeyOrder(t *testing.T) {
	var got *status.Status
	m := NewMonitor(func(st *status.Status) { got = st }, "first", "second", "third")

	m.Unlock("third", status.New(status.Error, "third failed"))
	m.Unlock("first", status.New(status.Warning, "first warned"))
	m.Unlock("second", status.OKStatus())

	require.NotNil(t, got)
	assert.Equal(t, status.Error, got.Severity)
	require.Len(t, got.Children, 2)
	assert.Equal(t, "first warned", got.Children[0].Message)
	assert.Equal(t, "third failed", got.Children[1].Message)
}

func TestMonitor_LockReopensBeforeCompletion(t *testing.T) {
	var calls int
	m := NewMonitor(func(*status.Status) { calls++ }, "a")

	m.Lock("b", "a") // "a" already registered: no-op
	m.Unlock("a", nil)
	assert.Equal(t, 0, calls, "b is still pending")
	assert.Equal(t, 1, m.Pending())

	m.Unlock("b", nil)
	assert.Equal(t, 1, calls)
}

func TestMonitor_LockAfterCompletionIsIgnored(t *testing.T) {
	var calls int
	m := NewMonitor(func(*status.Status) { calls++ }, "a")
	m.Unlock("a", nil)

	m.Lock("late")
	m.Unlock("late", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, m.Pending())
}

func TestMonitor_UnlockUnknownKeyIsRecorded(t *testing.T) {
	var got *status.Status
	m := NewMonitor(func(st *status.Status) { got = st }, "a")

	m.Unlock("stranger", status.New(status.Info, "unexpected"))
	assert.Nil(t, got, "a is still pending")

	m.Unlock("a", nil)
	require.NotNil(t, got)
	require.Len(t, got.Children, 1)
	assert.Equal(t, "unexpected", got.Children[0].Message)
}

func TestMonitor_NoKeysFiresOnFirstUnlock(t *testing.T) {
	var calls int
	m := NewPlainMonitor(func() { calls++ })
	assert.False(t, m.IsDone())

	m.Unlock("only", nil)
	assert.Equal(t, 1, calls)
}

func TestMonitor_UnlockErrClassifies(t *testing.T) {
	m := NewMonitor(nil, "a", "b")
	m.UnlockErr("a", nil)
	m.UnlockErr("b", context.Canceled)

	res := m.Result()
	require.NotNil(t, res)
	assert.Equal(t, status.Cancel, res.Severity)
}

func TestMonitor_Wait(t *testing.T) {
	m := NewMonitor(nil, "a")
	go m.Unlock("a", status.New(status.Error, "failed"))

	err := m.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, status.Error, status.FromError(err).Severity)

	ok := NewMonitor(nil, "a")
	ok.Unlock("a", nil)
	assert.NoError(t, ok.Wait(context.Background()))
}

func TestMonitor_WaitHonoursContext(t *testing.T) {
	m := NewMonitor(nil, "never")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := m.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, m.Result())
}
