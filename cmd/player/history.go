package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petasbytes/game-agent/internal/store"
	"github.com/petasbytes/game-agent/memory"
)

func newHistoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded play sessions",
	}
	cmd.AddCommand(newHistoryListCmd(c), newHistoryExportCmd(c))
	return cmd
}

func (c *cli) openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	if err := c.load(cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(c.cfg.Storage.DatabasePath())
}

func newHistoryListCmd(c *cli) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			sessions, err := s.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				if sessions == nil {
					sessions = []store.Session{}
				}
				b, _ := json.MarshalIndent(sessions, "", "  ")
				fmt.Fprintln(out, string(b))
				return nil
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tTURNS\tGAME\tGOAL")
			for _, sess := range sessions {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					sess.ID, sess.StartedAt.Local().Format(time.DateTime), sess.Turns, orDash(sess.Game), orDash(sess.Goal))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Max sessions; 0 lists all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newHistoryExportCmd(c *cli) *cobra.Command {
	var (
		outPath string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export the turn records of a session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.ListTurns(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if recs == nil {
				recs = []memory.TurnRecord{}
			}
			if outPath != "" {
				if err := memory.SaveTranscript(outPath, recs); err != nil {
					return fmt.Errorf("write transcript: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(recs), outPath)
				return nil
			}
			b, err := json.MarshalIndent(recs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to a file instead of stdout")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Only the newest n records; 0 exports all")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
