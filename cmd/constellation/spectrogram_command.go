package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/render"
)

func newSpectrogramCommand(ctx *commandContext) *cobra.Command {
	var (
		output    string
		landmarks bool
		start     float64
		duration  float64
		width     int
		height    int
	)

	cmd := &cobra.Command{
		Use:   "spectrogram <audio-file>",
		Short: "Render a spectrogram PNG, optionally with landmarks marked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sig, err := audio.Load(cmd.Context(), args[0], loadConfig(cfg))
			if err != nil {
				return err
			}
			if start > 0 || duration > 0 {
				if duration <= 0 {
					duration = sig.Duration()
				}
				sig = audio.Excerpt(sig, start, duration)
			}

			var overlay []render.Point
			if landmarks {
				a, err := fingerprint.Analyze(sig, cfg.Pipeline)
				if err != nil {
					return err
				}
				overlay = render.LandmarkPoints(a)
			}

			if output == "" {
				base := filepath.Base(args[0])
				output = strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
			}
			if err := render.SpectrogramPNG(output, sig, overlay, render.Options{Width: width, Height: height}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%.1fs, %d landmarks)\n", output, sig.Duration(), len(overlay))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG path (defaults to the input name with .png)")
	cmd.Flags().BoolVar(&landmarks, "landmarks", false, "Mark the fingerprint landmarks")
	cmd.Flags().Float64Var(&start, "start", 0, "Excerpt start in seconds")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Excerpt length in seconds (0 for the rest)")
	cmd.Flags().IntVar(&width, "width", render.DefaultWidth, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", render.DefaultHeight, "Image height in pixels")
	return cmd
}
