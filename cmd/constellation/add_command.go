package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/utils"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string
	var artist string
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "add <audio-file-or-dir>...",
		Short: "Fingerprint audio files and store them in the index",
		Long: `Fingerprint audio files and store them in the index.

Directories are walked for audio files. Title and artist come from the file
tags, falling back to the file name and "Unknown Artist"; --title and
--artist override them and are only accepted for a single file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			for _, arg := range args {
				found, err := utils.ListAudioFiles(arg)
				if err != nil {
					return fmt.Errorf("list %s: %w", arg, err)
				}
				files = append(files, found...)
			}
			if len(files) == 0 {
				return errors.New("no audio files found")
			}
			if (title != "" || artist != "") && len(files) > 1 {
				return fmt.Errorf("--title and --artist apply to a single file, got %d", len(files))
			}

			return ctx.withService(func(svc constellation.Service) error {
				return addFiles(cmd, svc, files, title, artist, !noProgress && len(files) > 1)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Song title (defaults to the file tags)")
	cmd.Flags().StringVar(&artist, "artist", "", "Song artist (defaults to the file tags)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func addFiles(cmd *cobra.Command, svc constellation.Service, files []string, title, artist string, progress bool) error {
	var (
		p   *mpb.Progress
		bar *mpb.Bar
	)
	if progress {
		p = mpb.NewWithContext(cmd.Context(), mpb.WithOutput(cmd.ErrOrStderr()), mpb.WithWidth(64))
		bar = p.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("Indexing: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 30),
			),
		)
	}

	var rows [][]string
	failed := 0
	for _, path := range files {
		if err := cmd.Context().Err(); err != nil {
			if p != nil {
				bar.Abort(false)
				p.Wait()
			}
			return err
		}

		meta := audio.ReadTags(path)
		songTitle, songArtist := meta.Title, meta.Artist
		if title != "" {
			songTitle = title
		}
		if artist != "" {
			songArtist = artist
		}

		id, err := svc.AddSong(cmd.Context(), path, songTitle, songArtist)
		if err != nil {
			failed++
			rows = append(rows, []string{filepath.Base(path), songTitle, songArtist, "failed: " + err.Error()})
		} else {
			rows = append(rows, []string{filepath.Base(path), songTitle, songArtist, id})
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if p != nil {
		p.Wait()
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "Title", "Artist", "ID"}, rows, nil))
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
