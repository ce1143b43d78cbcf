package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/constellation/pkg/constellation"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var top int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "match <audio-file>",
		Short: "Identify a recording against the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc constellation.Service) error {
				results, err := svc.MatchSong(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if top > 0 && len(results) > top {
					results = results[:top]
				}
				if jsonOut {
					return writeJSON(cmd, results)
				}
				printMatches(cmd, results)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 5, "Show at most this many candidates (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func printMatches(cmd *cobra.Command, results []constellation.MatchResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No candidates share a hash with the recording.")
		return
	}

	rows := make([][]string, len(results))
	for i, m := range results {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			m.Title,
			m.Artist,
			fmt.Sprintf("%.2f", m.Score),
			fmt.Sprintf("%+.3fs", m.OffsetSec),
			strconv.Itoa(m.Pairs),
			yesNo(m.IsMatch),
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Title", "Artist", "Score", "Offset", "Pairs", "Match"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))

	if best := results[0]; best.IsMatch {
		fmt.Fprintf(out, "Match: %s by %s (score %.2f)\n", best.Title, best.Artist, best.Score)
	} else {
		fmt.Fprintln(out, "No confident match.")
	}
}
