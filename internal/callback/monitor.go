// Package callback provides Monitor, a fan-in join that reduces many
// independently arriving asynchronous completions to one continuation.
//
// A Monitor is primed with a set of keys. Each asynchronous operation reports
// its outcome with Unlock(key, status), from any goroutine and in any order.
// When every registered key has reported, the continuation runs exactly once
// on the goroutine that delivered the final Unlock.
package callback

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
)

// Monitor joins a set of keyed completions. Use NewMonitor for the
// status-bearing variant and NewPlainMonitor when only completion matters.
type Monitor struct {
	mu      sync.Mutex
	order   []any
	results map[any]*status.Status
	pending int
	fired   bool
	done    chan struct{}
	merged  *status.Status

	onDone func(*status.Status)
	logger *log.Logger
}

// NewMonitor creates a Monitor that passes the merged status of all keys to
// done. keys are locked immediately.
func NewMonitor(done func(*status.Status), keys ...any) *Monitor {
	m := &Monitor{
		results: make(map[any]*status.Status),
		done:    make(chan struct{}),
		onDone:  done,
	}
	m.Lock(keys...)
	return m
}

// NewPlainMonitor creates a Monitor whose continuation takes no arguments.
func NewPlainMonitor(done func(), keys ...any) *Monitor {
	var fn func(*status.Status)
	if done != nil {
		fn = func(*status.Status) { done() }
	}
	return NewMonitor(fn, keys...)
}

// SetLogger attaches a logger for diagnostics such as locks arriving after
// completion. A nil logger disables them.
func (m *Monitor) SetLogger(logger *log.Logger) {
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// Lock registers additional keys as pending. Locking a key that is already
// registered is a no-op. Locking after the continuation has fired is ignored.
func (m *Monitor) Lock(keys ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fired {
		if m.logger != nil && len(keys) > 0 {
			m.logger.Warn("lock after completion ignored", "keys", len(keys))
		}
		return
	}
	for _, k := range keys {
		if _, ok := m.results[k]; ok {
			continue
		}
		m.order = append(m.order, k)
		m.results[k] = nil
		m.pending++
	}
}

// Unlock records the outcome for key. A nil st counts as OK. Unlocking a key
// that was never locked registers it as already reported. Reporting the same
// key twice keeps the first outcome.
func (m *Monitor) Unlock(key any, st *status.Status) {
	if st == nil {
		st = status.OKStatus()
	}

	m.mu.Lock()
	if m.fired {
		m.mu.Unlock()
		return
	}
	prev, known := m.results[key]
	switch {
	case !known:
		m.order = append(m.order, key)
		m.results[key] = st
	case prev == nil:
		m.results[key] = st
		m.pending--
	default:
		m.mu.Unlock()
		return
	}
	if m.pending > 0 {
		m.mu.Unlock()
		return
	}

	m.fired = true
	m.merged = m.mergeLocked()
	merged := m.merged
	fn := m.onDone
	m.mu.Unlock()

	if fn != nil {
		fn(merged)
	}
	close(m.done)
}

// UnlockErr is Unlock for plain errors, classified with status.FromError.
func (m *Monitor) UnlockErr(key any, err error) {
	m.Unlock(key, status.FromError(err))
}

// mergeLocked builds the continuation's status from every non-OK outcome in
// key registration order. It must be called with m.mu held.
func (m *Monitor) mergeLocked() *status.Status {
	var failed []*status.Status
	for _, k := range m.order {
		if st := m.results[k]; !st.IsOK() {
			failed = append(failed, st)
		}
	}
	if len(failed) == 0 {
		return status.OKStatus()
	}
	return status.Merge("callback monitor", failed...)
}

// Pending returns the number of keys that have not reported yet.
func (m *Monitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// IsDone reports whether the continuation has fired.
func (m *Monitor) IsDone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}

// Done returns a channel closed after the continuation has returned.
func (m *Monitor) Done() <-chan struct{} { return m.done }

// Result returns the merged status once the monitor is done, or nil before.
func (m *Monitor) Result() *status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.merged
}

// Wait blocks until the monitor is done or ctx ends. It returns the merged
// status (which may itself be a fatal *status.Status) or ctx.Err().
func (m *Monitor) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		if st := m.Result(); !st.IsOK() {
			return st
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
