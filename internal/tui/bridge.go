package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// Sender is the part of *tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// EventBridge forwards engine output into a running dashboard program. Its
// methods may be called from any goroutine. Once the program has exited,
// sends return immediately.
type EventBridge struct {
	p Sender
}

// NewEventBridge creates a bridge sending to p.
func NewEventBridge(p Sender) EventBridge {
	return EventBridge{p: p}
}

// Event forwards one engine event.
func (b EventBridge) Event(ev stepper.Event) {
	b.p.Send(RunEventMsg{Event: ev})
}

// ProgressListener returns a listener that forwards root progress updates
// without blocking the reporting goroutine. While a send is pending, newer
// updates replace older ones. Call stop once the run has returned.
func (b EventBridge) ProgressListener() (listener stepper.ProgressListener, stop func()) {
	pending := make(chan stepper.ProgressUpdate, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range pending {
			b.p.Send(ProgressMsg{Update: u})
		}
	}()

	listener = func(u stepper.ProgressUpdate) {
		for {
			select {
			case pending <- u:
				return
			default:
			}
			select {
			case <-pending:
			default:
			}
		}
	}
	stop = func() {
		close(pending)
		<-done
	}
	return listener, stop
}

// Finished reports the run result.
func (b EventBridge) Finished(err error) {
	b.p.Send(RunFinishedMsg{Err: err})
}
