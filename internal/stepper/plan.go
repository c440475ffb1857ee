package stepper

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
)

// PlanFormatter renders the structure of a step group without executing it.
// It is used by the plan command and by run --dry-run.
type PlanFormatter struct {
	writer io.Writer
	styled bool
}

// NewPlanFormatter creates a PlanFormatter. When styled is true, lipgloss
// styling is applied to headers and markers.
func NewPlanFormatter(w io.Writer, styled bool) *PlanFormatter {
	return &PlanFormatter{writer: w, styled: styled}
}

type planStyles struct {
	header   lipgloss.Style
	group    lipgloss.Style
	disabled lipgloss.Style
	meta     lipgloss.Style
}

func (f *PlanFormatter) styles() planStyles {
	s := planStyles{
		header:   lipgloss.NewStyle(),
		group:    lipgloss.NewStyle(),
		disabled: lipgloss.NewStyle(),
		meta:     lipgloss.NewStyle(),
	}
	if f.styled {
		s.header = s.header.Bold(true).Foreground(lipgloss.Color("12")) // bright blue
		s.group = s.group.Bold(true)
		s.disabled = s.disabled.Foreground(lipgloss.Color("11")) // yellow
		s.meta = s.meta.Faint(true)
	}
	return s
}

// Print writes FormatGroup output to the formatter's writer.
func (f *PlanFormatter) Print(group StepGroup, sc StepContext, data *props.Container) error {
	_, err := io.WriteString(f.writer, f.FormatGroup(group, sc, data))
	return err
}

// FormatGroup returns the plan of group for sc as a string. Nested groups are
// indented; iterated groups show their iterator; disabled entries are marked
// and their subtrees omitted.
func (f *PlanFormatter) FormatGroup(group StepGroup, sc StepContext, data *props.Container) string {
	if data == nil {
		data = props.New()
	}
	st := f.styles()
	var sb strings.Builder

	header := fmt.Sprintf("Plan: %s (%s)", group.Label(), group.ID())
	sb.WriteString(st.header.Render(header))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len(header)))
	sb.WriteString("\n")
	if sc != nil {
		fmt.Fprintf(&sb, "Context: %s (%s)\n", sc.Name(), sc.ID())
	}
	if d, ok := group.(interface{ Description() string }); ok && d.Description() != "" {
		fmt.Fprintf(&sb, "%s\n", d.Description())
	}
	sb.WriteString("\n")

	total, err := TotalWork(group, sc, data)
	f.writeGroup(&sb, st, group, sc, data, 1, map[string]bool{})
	sb.WriteString("\n")
	switch {
	case err != nil:
		fmt.Fprintf(&sb, "Total work: n/a (%v)\n", err)
	case total == UnknownWork:
		sb.WriteString("Total work: unknown\n")
	default:
		fmt.Fprintf(&sb, "Total work: %d\n", total)
	}
	return sb.String()
}

func (f *PlanFormatter) writeGroup(sb *strings.Builder, st planStyles, group StepGroup, sc StepContext, data *props.Container, depth int, visiting map[string]bool) {
	indent := strings.Repeat("  ", depth)
	if visiting[group.ID()] {
		fmt.Fprintf(sb, "%s(cycle: %s)\n", indent, group.ID())
		return
	}
	visiting[group.ID()] = true
	defer delete(visiting, group.ID())

	entries, err := group.Steps(sc)
	if err != nil {
		fmt.Fprintf(sb, "%s(error: %v)\n", indent, err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintf(sb, "%s(empty)\n", indent)
		return
	}

	for i, entry := range entries {
		name := entry.ExtensionID()
		if entry.SecondaryID != "" {
			name += "#" + entry.SecondaryID
		}

		var line string
		switch entry.Kind() {
		case KindGroup:
			g := entry.Group()
			line = fmt.Sprintf("%s%d. %s", indent, i+1, st.group.Render(fmt.Sprintf("[group] %s: %s", name, g.Label())))
			if kind := iteratorKind(g); kind != "" {
				line += " " + st.meta.Render("("+kind+")")
			}
		default:
			step := entry.Step()
			line = fmt.Sprintf("%s%d. %s: %s", indent, i+1, name, step.Label())
			work := step.TotalWork(sc, data)
			if work == UnknownWork {
				line += " " + st.meta.Render("[work: unknown]")
			} else {
				line += " " + st.meta.Render(fmt.Sprintf("[work: %d]", work))
			}
		}
		if entry.Disabled {
			line += " " + st.disabled.Render("[DISABLED]")
		}
		sb.WriteString(line)
		sb.WriteString("\n")

		if deps := entry.AllDependencies(); len(deps) > 0 {
			sb.WriteString(st.meta.Render(fmt.Sprintf("%s     requires: %s", indent, strings.Join(deps, ", "))))
			sb.WriteString("\n")
		}
		if entry.Kind() == KindGroup && !entry.Disabled {
			f.writeGroup(sb, st, entry.Group(), sc, data, depth+1, visiting)
		}
	}
}

// iteratorKind describes the iterator a group would use, or "" when it runs
// once.
func iteratorKind(group StepGroup) string {
	switch it := group.NewIterator().(type) {
	case nil:
		return ""
	case *CountIterator:
		return fmt.Sprintf("repeats %d times", it.count)
	case *ListIterator:
		return fmt.Sprintf("iterates over %q", it.key)
	default:
		return "iterated"
	}
}
