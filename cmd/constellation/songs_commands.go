package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/utils"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed songs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc constellation.Service) error {
				songs, err := svc.ListSongs()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, songs)
				}
				out := cmd.OutOrStdout()
				if len(songs) == 0 {
					fmt.Fprintln(out, "The index is empty.")
					return nil
				}
				rows := make([][]string, len(songs))
				for i, s := range songs {
					rows[i] = []string{
						s.ID,
						s.Title,
						s.Artist,
						formatDuration(s.DurationMs),
						strconv.Itoa(s.Records),
					}
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Artist", "Duration", "Records"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				fmt.Fprintf(out, "%d songs\n", len(songs))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <song-id>...",
		Short: "Remove songs and their fingerprints from the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if !utils.IsUUID(id) {
					return fmt.Errorf("invalid song id %q", id)
				}
			}
			return ctx.withService(func(svc constellation.Service) error {
				for _, id := range args {
					song, err := svc.GetSongByID(id)
					if err != nil {
						return fmt.Errorf("song %s: %w", id, err)
					}
					if err := svc.DeleteSong(id); err != nil {
						return fmt.Errorf("delete %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s by %s (%s)\n", song.Title, song.Artist, id)
				}
				return nil
			})
		},
	}
}

func formatDuration(ms int) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
