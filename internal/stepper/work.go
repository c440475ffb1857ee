package stepper

import (
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
)

// TotalWork sums the estimated work of every enabled step in group and its
// nested groups. Any step reporting UnknownWork makes the whole total
// UnknownWork. Iterated groups are counted once because the number of passes
// is only known after the iterator has been initialized.
func TotalWork(group StepGroup, sc StepContext, data *props.Container) (int, error) {
	return totalWork(group, sc, data, map[string]bool{})
}

func totalWork(group StepGroup, sc StepContext, data *props.Container, visiting map[string]bool) (int, error) {
	if visiting[group.ID()] {
		return 0, newCycleError(group.ID())
	}
	visiting[group.ID()] = true
	defer delete(visiting, group.ID())

	entries, err := group.Steps(sc)
	if err != nil {
		return UnknownWork, err
	}

	total := 0
	for _, entry := range entries {
		if entry.Disabled {
			continue
		}
		var work int
		switch entry.Kind() {
		case KindGroup:
			work, err = totalWork(entry.Group(), sc, data, visiting)
			if err != nil {
				return UnknownWork, err
			}
		case KindStep:
			work = entry.Step().TotalWork(sc, data)
		}
		if work < 0 {
			return UnknownWork, nil
		}
		total += work
	}
	return total, nil
}
