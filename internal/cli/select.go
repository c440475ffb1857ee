package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// ErrSelectionCancelled is returned when the user aborts the interactive
// run selection or declines the confirmation.
var ErrSelectionCancelled = errors.New("run selection cancelled by user")

// selectWidth is the fixed form width used by the selection forms.
const selectWidth = 80

// runSelection holds the choices made in the interactive run forms.
type runSelection struct {
	GroupID         string
	ContextIDs      []string
	ContinueOnError bool
}

// selectRun asks the user for the group, the contexts, and the failure mode,
// then confirms. sel carries the preselected values and receives the result.
func selectRun(reg *stepper.Registry, contexts []stepper.StepContext, sel *runSelection) error {
	if err := runGroupPage(reg, &sel.GroupID); err != nil {
		return mapSelectErr(err)
	}
	if len(contexts) > 1 {
		if err := runContextPage(contexts, &sel.ContextIDs, &sel.ContinueOnError); err != nil {
			return mapSelectErr(err)
		}
		if len(sel.ContextIDs) == 0 {
			return fmt.Errorf("no context selected")
		}
	}

	confirmed := false
	if err := runConfirmPage(selectionSummary(sel), &confirmed); err != nil {
		return mapSelectErr(err)
	}
	if !confirmed {
		return ErrSelectionCancelled
	}
	return nil
}

func runGroupPage(reg *stepper.Registry, groupID *string) error {
	ids := reg.Groups()
	options := make([]huh.Option[string], len(ids))
	for i, id := range ids {
		label := id
		if g, err := reg.StepGroup(id); err == nil && g.Label() != id {
			label = fmt.Sprintf("%s (%s)", g.Label(), id)
		}
		options[i] = huh.NewOption(label, id)
	}
	if *groupID == "" && len(ids) > 0 {
		*groupID = ids[0]
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which step group would you like to run?").
				Options(options...).
				Value(groupID),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(selectWidth).
		Run()
}

func runContextPage(contexts []stepper.StepContext, selected *[]string, continueOnError *bool) error {
	options := make([]huh.Option[string], len(contexts))
	preselect := make(map[string]bool, len(*selected))
	for _, id := range *selected {
		preselect[id] = true
	}
	for i, sc := range contexts {
		label := sc.ID()
		if sc.Name() != sc.ID() {
			label = fmt.Sprintf("%s (%s)", sc.Name(), sc.ID())
		}
		options[i] = huh.NewOption(label, sc.ID()).Selected(len(preselect) == 0 || preselect[sc.ID()])
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Run against which contexts?").
				Description("Use space to toggle. Contexts run one after another.").
				Options(options...).
				Value(selected),
			huh.NewConfirm().
				Title("Continue after a failing context?").
				Description("When off, the first failing context stops the run.").
				Value(continueOnError),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(selectWidth).
		Run()
}

func runConfirmPage(summary string, confirmed *bool) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Start run?").
				Description(summary).
				Affirmative("Run").
				Negative("Cancel").
				Value(confirmed),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(selectWidth).
		Run()
}

func selectionSummary(sel *runSelection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Group: %s\n", sel.GroupID)
	if len(sel.ContextIDs) > 0 {
		fmt.Fprintf(&sb, "Contexts: %s\n", strings.Join(sel.ContextIDs, ", "))
	}
	fmt.Fprintf(&sb, "Continue on error: %t", sel.ContinueOnError)
	return sb.String()
}

// mapSelectErr converts huh.ErrUserAborted into ErrSelectionCancelled.
func mapSelectErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrSelectionCancelled
	}
	return err
}
