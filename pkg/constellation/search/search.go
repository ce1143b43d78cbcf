// Package search runs one query fingerprint against many reference
// fingerprints in parallel and ranks the references by match score.
package search

import (
	"context"
	"iter"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

// Options tunes a search. The zero value uses one worker per CPU and scans
// every reference.
type Options struct {
	// Workers bounds the number of concurrent Match calls.
	Workers int
	// StopScore, when positive, cancels the remaining work as soon as any
	// reference scores at least this much.
	StopScore float64
}

// Entry is one reference fingerprint with its identifier.
type Entry struct {
	ID          string
	Fingerprint *fingerprint.Fingerprint
}

// Candidate is a reference that shared at least one key with the query.
type Candidate struct {
	ID     string
	Result fingerprint.MatchResult
}

// Outcome holds the ranked candidates of one search.
type Outcome struct {
	// Ranked is ordered by score, highest first, ties broken by ID.
	Ranked []Candidate
	// Scanned counts the references actually compared.
	Scanned int
	// Stopped is set when StopScore cut the scan short.
	Stopped bool
}

// Best returns the top-ranked candidate.
func (o Outcome) Best() (Candidate, bool) {
	if len(o.Ranked) == 0 {
		return Candidate{}, false
	}
	return o.Ranked[0], true
}

// Entries adapts a slice to the sequence Search consumes.
func Entries(list []Entry) iter.Seq2[string, *fingerprint.Fingerprint] {
	return func(yield func(string, *fingerprint.Fingerprint) bool) {
		for _, e := range list {
			if !yield(e.ID, e.Fingerprint) {
				return
			}
		}
	}
}

// Search matches query against every reference yielded by refs. References
// with no shared keys are left out of the ranking. The returned error is only
// ever the context's.
func Search(ctx context.Context, query *fingerprint.Fingerprint, refs iter.Seq2[string, *fingerprint.Fingerprint], opts Options) (Outcome, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	scanCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		mu      sync.Mutex
		ranked  []Candidate
		scanned int
		stopped atomic.Bool
	)

	var g errgroup.Group
	g.SetLimit(workers)

	for id, ref := range refs {
		if scanCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if scanCtx.Err() != nil {
				return nil
			}
			res := fingerprint.Match(ref, query)

			mu.Lock()
			scanned++
			if !res.NoMatch() {
				ranked = append(ranked, Candidate{ID: id, Result: res})
			}
			mu.Unlock()

			if opts.StopScore > 0 && res.Score >= opts.StopScore {
				stopped.Store(true)
				stop()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Result.Score != ranked[j].Result.Score {
			return ranked[i].Result.Score > ranked[j].Result.Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	return Outcome{Ranked: ranked, Scanned: scanned, Stopped: stopped.Load()}, nil
}
