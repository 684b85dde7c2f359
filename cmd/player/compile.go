package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petasbytes/game-agent/internal/notation"
)

type compiledAction struct {
	Buttons []string `json:"buttons"`
	Hold    int      `json:"hold"`
}

func newCompileCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "compile <notation>...",
		Short: "Check input notation and show the actions it compiles to",
		Example: `  player compile "R2 A U3 UB"
  player compile --json W5 S`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := notation.Compile(strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				actions := make([]compiledAction, len(seq))
				for i, a := range seq {
					actions[i] = compiledAction{Buttons: a.Buttons.Names(), Hold: a.Hold}
				}
				b, _ := json.MarshalIndent(actions, "", "  ")
				fmt.Fprintln(out, string(b))
				return nil
			}
			for i, a := range seq {
				what := "wait"
				if !a.IsWait() {
					what = "press " + strings.Join(a.Buttons.Names(), "+")
				}
				fmt.Fprintf(out, "%3d  %-6s %s for %d tick(s)\n", i+1, a, what, a.Hold)
			}
			fmt.Fprintf(out, "%d actions, %d ticks: %s\n", len(seq), seq.TotalTicks(), seq)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the actions as JSON")
	return cmd
}
