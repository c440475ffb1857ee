package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

const (
	progressBarWidth    = 30
	progressLabelWidth  = 48
	progressMinInterval = 100 * time.Millisecond
)

// progressView renders root progress updates as a single redrawn terminal
// line built from a static bubbles/progress bar.
type progressView struct {
	out io.Writer
	bar progress.Model

	mu      sync.Mutex
	last    time.Time
	drawn   bool
	nowFunc func() time.Time
}

func newProgressView(out io.Writer) *progressView {
	return &progressView{
		out: out,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(progressBarWidth),
			progress.WithoutPercentage(),
		),
		nowFunc: time.Now,
	}
}

// Listener adapts the view to stepper.ProgressListener. Updates arriving
// faster than progressMinInterval are dropped unless they finish the task.
func (v *progressView) Listener() stepper.ProgressListener {
	return func(u stepper.ProgressUpdate) {
		v.mu.Lock()
		defer v.mu.Unlock()
		now := v.nowFunc()
		if !u.Done && v.drawn && now.Sub(v.last) < progressMinInterval {
			return
		}
		v.last = now
		v.drawn = true
		fmt.Fprintf(v.out, "\r%s\033[K", v.render(u))
	}
}

// Finish moves the cursor past the progress line.
func (v *progressView) Finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.drawn {
		fmt.Fprintln(v.out)
		v.drawn = false
	}
}

func (v *progressView) render(u stepper.ProgressUpdate) string {
	label := u.Label
	if u.SubTask != "" {
		label = u.SubTask
	}
	label = truncate(label, progressLabelWidth)

	if u.Total == stepper.UnknownWork || u.Total <= 0 {
		if u.Done {
			return v.bar.ViewAs(1) + " done " + label
		}
		return styleDim.Render("working...") + " " + label
	}

	pct := u.Worked / float64(u.Total)
	if pct > 1 {
		pct = 1
	}
	if u.Done {
		pct = 1
	}
	return fmt.Sprintf("%s %3.0f%% %s", v.bar.ViewAs(pct), pct*100, label)
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func isStdinTTY() bool  { return isTerminal(os.Stdin) }
func isStdoutTTY() bool { return isTerminal(os.Stdout) }
func isStderrTTY() bool { return isTerminal(os.Stderr) }
