package stepper

import (
	"context"
	"sync"
	"sync/atomic"
)

// Progress is the progress and cancellation sink handed to the engine and to
// every step. Sub-monitors share cancellation with their root.
type Progress interface {
	BeginTask(label string, totalWork int)
	Worked(units int)
	SubTask(name string)
	IsCancelled() bool
	SetCancelled(cancelled bool)
	Done()

	// Sub returns a monitor that maps its own work onto ticks units of this
	// one. A sub-monitor that never calls BeginTask reports all ticks on
	// Done.
	Sub(ticks int) Progress
}

// ProgressUpdate is delivered to a ProgressListener whenever the root
// monitor changes. Total is UnknownWork for indeterminate runs.
type ProgressUpdate struct {
	Label   string
	SubTask string
	Worked  float64
	Total   int
	Done    bool
}

// ProgressListener receives root progress updates. It is called on the
// goroutine reporting the work and must not block.
type ProgressListener func(ProgressUpdate)

// Monitor is the root Progress implementation.
type Monitor struct {
	ctx       context.Context
	listener  ProgressListener
	cancelled atomic.Bool

	mu      sync.Mutex
	label   string
	subTask string
	total   int
	worked  float64
	done    bool
}

// NewProgress returns a root monitor. listener may be nil.
func NewProgress(listener ProgressListener) *Monitor {
	return &Monitor{listener: listener, total: UnknownWork}
}

// NewProgressContext returns a root monitor that also reports cancelled once
// ctx is done.
func NewProgressContext(ctx context.Context, listener ProgressListener) *Monitor {
	m := NewProgress(listener)
	m.ctx = ctx
	return m
}

func (m *Monitor) BeginTask(label string, totalWork int) {
	m.mu.Lock()
	m.label = label
	m.total = totalWork
	m.worked = 0
	m.done = false
	u := m.updateLocked()
	m.mu.Unlock()
	m.notify(u)
}

func (m *Monitor) Worked(units int) { m.add(float64(units)) }

func (m *Monitor) add(units float64) {
	if units <= 0 {
		return
	}
	m.mu.Lock()
	m.worked += units
	if m.total > 0 && m.worked > float64(m.total) {
		m.worked = float64(m.total)
	}
	u := m.updateLocked()
	m.mu.Unlock()
	m.notify(u)
}

func (m *Monitor) SubTask(name string) {
	m.mu.Lock()
	m.subTask = name
	u := m.updateLocked()
	m.mu.Unlock()
	m.notify(u)
}

func (m *Monitor) IsCancelled() bool {
	if m.cancelled.Load() {
		return true
	}
	if m.ctx != nil && m.ctx.Err() != nil {
		m.cancelled.Store(true)
		return true
	}
	return false
}

func (m *Monitor) SetCancelled(cancelled bool) { m.cancelled.Store(cancelled) }

func (m *Monitor) Done() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	if m.total > 0 {
		m.worked = float64(m.total)
	}
	u := m.updateLocked()
	m.mu.Unlock()
	m.notify(u)
}

func (m *Monitor) Sub(ticks int) Progress {
	return &subProgress{root: m, add: m.add, cancelled: m.IsCancelled, setCancelled: m.SetCancelled, ticks: float64(ticks)}
}

// Snapshot returns the current state of the monitor.
func (m *Monitor) Snapshot() ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked()
}

func (m *Monitor) updateLocked() ProgressUpdate {
	return ProgressUpdate{Label: m.label, SubTask: m.subTask, Worked: m.worked, Total: m.total, Done: m.done}
}

func (m *Monitor) notify(u ProgressUpdate) {
	if m.listener != nil {
		m.listener(u)
	}
}

// subProgress scales its own work into ticks units of its parent.
type subProgress struct {
	root         *Monitor
	add          func(float64)
	cancelled    func() bool
	setCancelled func(bool)
	ticks        float64

	mu       sync.Mutex
	total    int
	reported float64
	worked   float64
	begun    bool
	done     bool
}

func (s *subProgress) BeginTask(_ string, totalWork int) {
	s.mu.Lock()
	s.begun = true
	s.total = totalWork
	s.mu.Unlock()
}

func (s *subProgress) Worked(units int) {
	if units <= 0 {
		return
	}
	s.mu.Lock()
	if s.done || s.total <= 0 {
		s.mu.Unlock()
		return
	}
	s.worked += float64(units)
	if s.worked > float64(s.total) {
		s.worked = float64(s.total)
	}
	delta := s.ticks*s.worked/float64(s.total) - s.reported
	s.reported += delta
	s.mu.Unlock()
	s.add(delta)
}

func (s *subProgress) SubTask(name string) { s.root.SubTask(name) }

func (s *subProgress) IsCancelled() bool { return s.cancelled() }

func (s *subProgress) SetCancelled(cancelled bool) { s.setCancelled(cancelled) }

func (s *subProgress) Done() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	delta := s.ticks - s.reported
	s.reported = s.ticks
	s.mu.Unlock()
	s.add(delta)
}

func (s *subProgress) Sub(ticks int) Progress {
	return &subProgress{root: s.root, add: s.addScaled, cancelled: s.cancelled, setCancelled: s.setCancelled, ticks: float64(ticks)}
}

// addScaled converts units of this monitor's own total into parent units.
func (s *subProgress) addScaled(units float64) {
	s.mu.Lock()
	if s.done || s.total <= 0 {
		s.mu.Unlock()
		return
	}
	delta := s.ticks * units / float64(s.total)
	if s.reported+delta > s.ticks {
		delta = s.ticks - s.reported
	}
	s.reported += delta
	s.mu.Unlock()
	s.add(delta)
}
