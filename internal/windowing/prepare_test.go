package windowing_test

import (
	"testing"

	"github.com/petasbytes/game-agent/internal/windowing"
)

func TestPrepareSendWindow_EmptyGroups(t *testing.T) {
	window, stats := windowing.PrepareSendWindow(nil, 123, windowing.HeuristicCounter{})
	if window != nil || stats.Budget != 123 || stats.Total != 0 || stats.OverBudgetNewest {
		t.Fatalf("unexpected result: window=%v stats=%+v", window, stats)
	}
}

func TestPrepareSendWindow_AllFitIncludingOldest(t *testing.T) {
	// G1: "oldest" => 6 + 4 = 10; G2: "mid" => 7; G3: "new" => 7. Total 24.
	groups := []windowing.Group{G(1, "oldest"), G(2, "mid"), G(3, "new")}

	window, stats := windowing.PrepareSendWindow(groups, 24, windowing.HeuristicCounter{})

	if stats.Budget != 24 || stats.Total != 24 || stats.OverBudgetNewest {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.IncludedGroups != 3 || stats.SkippedGroups != 0 {
		t.Fatalf("IncludedGroups/SkippedGroups mismatch: got inc=%d skip=%d", stats.IncludedGroups, stats.SkippedGroups)
	}
	if got := indexes(window); !equalInts(got, []int{1, 2, 3}) {
		t.Fatalf("window order: got=%v", got)
	}
}

func TestPrepareSendWindow_ExactlyOneOlderAlsoFits(t *testing.T) {
	// G1: "a" => 5; G2: "bbbb" => 8; G3: "cc" => 6 (newest)
	// Budget = 14 => include newest (6) + next older (8) = 14; stop before adding oldest.
	groups := []windowing.Group{G(1, "a"), G(2, "bbbb"), G(3, "cc")}

	window, stats := windowing.PrepareSendWindow(groups, 14, windowing.HeuristicCounter{})

	if stats.Total != 14 || stats.IncludedGroups != 2 || stats.SkippedGroups != 1 || stats.OverBudgetNewest {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if got := indexes(window); !equalInts(got, []int{2, 3}) {
		t.Fatalf("window: got=%v want=[2 3]", got)
	}
}

func TestPrepareSendWindow_StopsAtFirstGroupThatDoesNotFit(t *testing.T) {
	// G1: "a" => 5 would fit, but G2 (14) does not; no gaps are allowed.
	groups := []windowing.Group{G(1, "a"), G(2, "0123456789"), G(3, "cc")}

	window, stats := windowing.PrepareSendWindow(groups, 12, windowing.HeuristicCounter{})
	if got := indexes(window); !equalInts(got, []int{3}) {
		t.Fatalf("window: got=%v want=[3] (stats %+v)", got, stats)
	}
}

func TestPrepareSendWindow_PinnedSummaryAlwaysIncluded(t *testing.T) {
	summary := G(10, "summary") // 7 + 4 = 11
	summary.Pinned = true
	groups := []windowing.Group{summary, G(11, "aaaa"), G(12, "bb")} // 8, 6

	window, stats := windowing.PrepareSendWindow(groups, 17, windowing.HeuristicCounter{})

	if got := indexes(window); !equalInts(got, []int{10, 12}) {
		t.Fatalf("window: got=%v want=[10 12]", got)
	}
	if stats.Total != 17 || stats.IncludedGroups != 2 || stats.SkippedGroups != 1 || stats.OverBudgetNewest {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPrepareSendWindow_NewestOverBudget_ReturnsPinnedOnly(t *testing.T) {
	summary := G(5, "s") // 5
	summary.Pinned = true
	groups := []windowing.Group{summary, G(6, "xxxxxxxxxx")} // 14

	window, stats := windowing.PrepareSendWindow(groups, 10, windowing.HeuristicCounter{})

	if got := indexes(window); !equalInts(got, []int{5}) {
		t.Fatalf("window: got=%v want=[5]", got)
	}
	if !stats.OverBudgetNewest || stats.IncludedGroups != 1 || stats.SkippedGroups != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPrepareSendWindow_NoCapacityBudget_WithGroups(t *testing.T) {
	window, stats := windowing.PrepareSendWindow([]windowing.Group{G(1, "x")}, 0, windowing.HeuristicCounter{})

	if len(window) != 0 || !stats.OverBudgetNewest || stats.SkippedGroups != 1 || stats.IncludedGroups != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPrepareSendWindow_NoCapacityBudget_KeepsPinned(t *testing.T) {
	summary := G(2, "summary")
	summary.Pinned = true
	groups := []windowing.Group{summary, G(3, "a"), G(4, "b")}

	for _, budget := range []int{0, -50} {
		window, stats := windowing.PrepareSendWindow(groups, budget, windowing.HeuristicCounter{})
		if got := indexes(window); !equalInts(got, []int{2}) {
			t.Fatalf("budget %d: window got=%v want=[2]", budget, got)
		}
		if !stats.OverBudgetNewest || stats.IncludedGroups != 1 || stats.SkippedGroups != 2 {
			t.Fatalf("budget %d: unexpected stats: %+v", budget, stats)
		}
	}

	window, stats := windowing.PrepareSendWindow([]windowing.Group{summary}, 0, windowing.HeuristicCounter{})
	if len(window) != 1 || stats.OverBudgetNewest {
		t.Fatalf("pinned only: window=%v stats=%+v", indexes(window), stats)
	}
}
