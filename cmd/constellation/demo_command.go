package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/himanishpuri/constellation/internal/config"
	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/search"
	"github.com/himanishpuri/constellation/pkg/logger"
	"github.com/himanishpuri/constellation/pkg/utils"
)

type demoOptions struct {
	Excerpt  float64 // seconds
	MinStart float64
	MaxStart float64
	MaxShift int // whole seconds; shifts are drawn from [-MaxShift, MaxShift)
}

func defaultDemoOptions() demoOptions {
	return demoOptions{Excerpt: 10, MinStart: 20, MaxStart: 90, MaxShift: 5}
}

func (o demoOptions) validate() error {
	switch {
	case o.Excerpt <= 0:
		return fmt.Errorf("--excerpt must be positive, got %v", o.Excerpt)
	case o.MinStart < 0 || o.MaxStart < o.MinStart:
		return fmt.Errorf("start range [%v, %v) is invalid", o.MinStart, o.MaxStart)
	case o.MaxShift < 1:
		return fmt.Errorf("--max-shift must be at least 1, got %d", o.MaxShift)
	}
	return nil
}

// pickSongs draws two distinct indices below n.
func pickSongs(r *rand.Rand, n int) (int, int) {
	song := r.IntN(n)
	other := r.IntN(n - 1)
	if other >= song {
		other++
	}
	return song, other
}

// pickStart draws an excerpt start in [MinStart, MaxStart), pulled in so the
// excerpt fits inside a song of duration seconds. Songs too short for the
// range start at a random point that still fits, or at zero.
func pickStart(r *rand.Rand, duration float64, o demoOptions) float64 {
	lo, hi := o.MinStart, math.Min(o.MaxStart, duration-o.Excerpt)
	if hi <= lo {
		lo = 0
	}
	if hi <= lo {
		return 0
	}
	return lo + r.Float64()*(hi-lo)
}

func pickShift(r *rand.Rand, maxShift int) int {
	return r.IntN(2*maxShift) - maxShift
}

type demoCase struct {
	Name     string
	Query    string
	Result   fingerprint.MatchResult
	Expected string
}

func newDemoCommand(ctx *commandContext) *cobra.Command {
	opts := defaultDemoOptions()
	var seed uint64
	var searchAll bool

	cmd := &cobra.Command{
		Use:   "demo <music-dir>",
		Short: "Match a random excerpt against itself, a shifted copy and another song",
		Long: `Pick a random song from the directory and a random excerpt of it, then
score the excerpt against itself, against an excerpt of the same song shifted
by a random whole number of seconds, and against a random excerpt of a
different song.

With --search every song in the directory is fingerprinted and the excerpt is
matched against all of them; the top-scoring song should be the one the
excerpt came from. Nothing is written to the index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			files, err := utils.ListAudioFiles(args[0])
			if err != nil {
				return err
			}
			if len(files) < 2 {
				return errors.New("demo needs at least two audio files")
			}

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			r := rand.New(rand.NewPCG(seed, seed))
			fmt.Fprintf(cmd.OutOrStdout(), "Seed: %d\n", seed)

			return runDemo(cmd, ctx.appLogger(), cfg, r, files, opts, searchAll)
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().BoolVar(&searchAll, "search", false, "Also search the excerpt against every song in the directory")
	cmd.Flags().Float64Var(&opts.Excerpt, "excerpt", opts.Excerpt, "Excerpt length in seconds")
	cmd.Flags().Float64Var(&opts.MinStart, "min-start", opts.MinStart, "Earliest excerpt start in seconds")
	cmd.Flags().Float64Var(&opts.MaxStart, "max-start", opts.MaxStart, "Latest excerpt start in seconds")
	cmd.Flags().IntVar(&opts.MaxShift, "max-shift", opts.MaxShift, "Largest shift in whole seconds")
	return cmd
}

func runDemo(cmd *cobra.Command, log *logger.Logger, cfg *config.Config, r *rand.Rand, files []string, opts demoOptions, searchAll bool) error {
	songIdx, otherIdx := pickSongs(r, len(files))

	song, err := audio.Load(cmd.Context(), files[songIdx], loadConfig(cfg))
	if err != nil {
		return err
	}
	other, err := audio.Load(cmd.Context(), files[otherIdx], loadConfig(cfg))
	if err != nil {
		return err
	}

	start := pickStart(r, song.Duration(), opts)
	shift := pickShift(r, opts.MaxShift)
	shiftedStart := math.Max(0, start+float64(shift))
	otherStart := pickStart(r, other.Duration(), opts)

	songName, otherName := filepath.Base(files[songIdx]), filepath.Base(files[otherIdx])
	log.Debugf("excerpt %s @ %.2fs, shifted @ %.2fs, unrelated %s @ %.2fs",
		songName, start, shiftedStart, otherName, otherStart)

	excerpt, err := fingerprint.Generate(audio.Excerpt(song, start, opts.Excerpt), cfg.Pipeline)
	if err != nil {
		return err
	}
	shifted, err := fingerprint.Generate(audio.Excerpt(song, shiftedStart, opts.Excerpt), cfg.Pipeline)
	if err != nil {
		return err
	}
	unrelated, err := fingerprint.Generate(audio.Excerpt(other, otherStart, opts.Excerpt), cfg.Pipeline)
	if err != nil {
		return err
	}

	cases := []demoCase{
		{"self", fmt.Sprintf("%s @ %.2fs", songName, start), fingerprint.Match(excerpt, excerpt), "+0.000s"},
		{"shifted", fmt.Sprintf("%s @ %.2fs", songName, shiftedStart), fingerprint.Match(excerpt, shifted),
			fmt.Sprintf("%+.3fs", start-shiftedStart)},
		{"unrelated", fmt.Sprintf("%s @ %.2fs", otherName, otherStart), fingerprint.Match(excerpt, unrelated), "-"},
	}
	printDemo(cmd, fmt.Sprintf("%s @ %.2fs", songName, start), cases, cfg.Search.MatchThreshold)

	if !searchAll {
		return nil
	}
	return demoSearch(cmd, log, cfg, files, songIdx, excerpt)
}

func printDemo(cmd *cobra.Command, reference string, cases []demoCase, threshold float64) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reference excerpt: %s\n", reference)

	rows := make([][]string, len(cases))
	for i, c := range cases {
		rows[i] = []string{
			c.Name,
			c.Query,
			fmt.Sprintf("%.2f", c.Result.Score),
			fmt.Sprintf("%+.3fs", c.Result.Offset),
			c.Expected,
			fmt.Sprintf("%d", len(c.Result.Pairs)),
			yesNo(c.Result.IsMatch(threshold)),
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Case", "Query", "Score", "Offset", "Expected", "Pairs", "Match"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
}

// demoSearch fingerprints every file and ranks them against the excerpt.
func demoSearch(cmd *cobra.Command, log *logger.Logger, cfg *config.Config, files []string, songIdx int, excerpt *fingerprint.Fingerprint) error {
	p := mpb.NewWithContext(cmd.Context(), mpb.WithOutput(cmd.ErrOrStderr()), mpb.WithWidth(64))
	bar := p.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("Fingerprinting: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	entries := make([]search.Entry, 0, len(files))
	for _, path := range files {
		sig, err := audio.Load(cmd.Context(), path, loadConfig(cfg))
		if err != nil {
			log.Warnf("Skipping %s: %v", filepath.Base(path), err)
			bar.Increment()
			continue
		}
		fp, err := fingerprint.Generate(sig, cfg.Pipeline)
		if err != nil {
			bar.Abort(false)
			p.Wait()
			return err
		}
		entries = append(entries, search.Entry{ID: path, Fingerprint: fp})
		bar.Increment()
	}
	p.Wait()

	out, err := search.Search(cmd.Context(), excerpt, search.Entries(entries), search.Options{Workers: cfg.Search.Workers})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	best, ok := out.Best()
	if !ok {
		fmt.Fprintln(w, "Search: no song shares a hash with the excerpt")
		return nil
	}
	fmt.Fprintf(w, "Search over %d songs: best %s (score %.2f, offset %+.3fs), expected %s: %s\n",
		out.Scanned, filepath.Base(best.ID), best.Result.Score, best.Result.Offset,
		filepath.Base(files[songIdx]), verdict(best.ID == files[songIdx]))
	return nil
}

func verdict(ok bool) string {
	if ok {
		return "correct"
	}
	return "wrong"
}
