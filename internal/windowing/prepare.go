package windowing

import "log/slog"

// Stats summarizes the result of window preparation.
//
// Fields:
// - Total: estimated tokens for included groups only.
// - Budget: the input token budget used.
// - IncludedGroups: number of groups included, pinned ones too.
// - SkippedGroups: total groups minus IncludedGroups.
// - OverBudgetNewest: true when pinned groups plus the newest group exceed Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns the groups (oldest→newest) that fit within budget
// using the TokenCounter, without splitting groups.
//
// Rules:
//   - Pinned groups are always included and counted first.
//   - Include whole unpinned groups scanning newest→oldest while total ≤ budget;
//     stop at the first group that does not fit.
//   - If the newest unpinned group does not fit next to the pinned ones, only
//     pinned groups are returned and OverBudgetNewest is set.
//   - A budget ≤ 0 leaves room for the pinned groups only; OverBudgetNewest is
//     set when any unpinned group exists.
func PrepareSendWindow(groups []Group, budget int, c TokenCounter) ([]Group, Stats) {
	// Base cases
	if len(groups) == 0 {
		return nil, Stats{Budget: budget}
	}

	include := make([]bool, len(groups))
	total := 0
	included := 0
	for i, g := range groups {
		if g.Pinned {
			include[i] = true
			total += c.CountGroup(g)
			included++
		}
	}

	over := false
	unpinned := 0
	for gi := len(groups) - 1; gi >= 0; gi-- {
		g := groups[gi]
		if g.Pinned {
			continue
		}
		cost := c.CountGroup(g)
		if budget <= 0 || total+cost > budget {
			if unpinned == 0 {
				slog.Debug("window: newest group over budget", "budget", budget, "pinned_cost", total, "cost", cost)
				over = true
			}
			// If adding this group would exceed budget, stop scanning older groups.
			break
		}
		include[gi] = true
		total += cost
		included++
		unpinned++
	}

	window := make([]Group, 0, included)
	for i, g := range groups {
		if include[i] {
			window = append(window, g)
		}
	}
	return window, Stats{
		Total:            total,
		Budget:           budget,
		IncludedGroups:   included,
		SkippedGroups:    len(groups) - included,
		OverBudgetNewest: over,
	}
}
