package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/constellation/internal/config"
	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var withPower bool

	cmd := &cobra.Command{
		Use:   "compare <reference> <query>",
		Short: "Score a query recording against a reference recording",
		Long: `Score a query recording against a reference recording without touching
the index.

--json emits the landmarks, hash records, matched pairs, offsets and offset
histogram for plotting. The spectrogram power matrix is large and only
included with --with-power.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			cmp, err := compareFiles(cmd, cfg, args[0], args[1])
			if err != nil {
				return err
			}

			if jsonOut {
				if !withPower {
					dropPower(cmp.Reference)
					dropPower(cmp.Query)
				}
				return writeJSON(cmd, cmp)
			}
			printComparison(cmd, cmp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the full comparison as JSON")
	cmd.Flags().BoolVar(&withPower, "with-power", false, "Include spectrogram power matrices in --json output")
	return cmd
}

func loadConfig(cfg *config.Config) audio.LoadConfig {
	return audio.LoadConfig{SampleRate: cfg.Audio.SampleRate, TempDir: cfg.Audio.TempDir}
}

func compareFiles(cmd *cobra.Command, cfg *config.Config, referencePath, queryPath string) (*constellation.Comparison, error) {
	ref, err := audio.Load(cmd.Context(), referencePath, loadConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("loading reference: %w", err)
	}
	query, err := audio.Load(cmd.Context(), queryPath, loadConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("loading query: %w", err)
	}
	return constellation.CompareSignals(ref, query, cfg.Pipeline, cfg.Search.MatchThreshold)
}

// dropPower keeps the spectrogram axes but clears the matrix.
func dropPower(a *fingerprint.Analysis) {
	if a == nil || a.Spectrogram == nil {
		return
	}
	spec := *a.Spectrogram
	spec.Power = nil
	a.Spectrogram = &spec
}

func printComparison(cmd *cobra.Command, cmp *constellation.Comparison) {
	res := cmp.Result
	rows := [][]string{
		{"Reference landmarks", strconv.Itoa(len(cmp.Reference.Landmarks))},
		{"Query landmarks", strconv.Itoa(len(cmp.Query.Landmarks))},
		{"Reference records", strconv.Itoa(len(cmp.Reference.Fingerprint.Records))},
		{"Query records", strconv.Itoa(len(cmp.Query.Fingerprint.Records))},
		{"Matched pairs", strconv.Itoa(len(res.Pairs))},
		{"Score", fmt.Sprintf("%.2f", res.Score)},
		{"Offset", fmt.Sprintf("%+.3fs", res.Offset)},
		{"Match", yesNo(cmp.IsMatch)},
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
}
