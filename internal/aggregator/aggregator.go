// Package aggregator fans out to every contest source, isolates per-source
// failures and feeds the merged result into the store.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/user/contestcal/internal/apperr"
	"github.com/user/contestcal/internal/contest"
	"github.com/user/contestcal/internal/sources"
	"github.com/user/contestcal/pkg/logger"
)

// ContestWriter persists a batch of contests.
type ContestWriter interface {
	UpsertContests(ctx context.Context, contests []contest.Contest) (int, error)
}

// Result is the outcome of one source in a pass. Err is set, and Contests
// empty, when the source failed.
type Result struct {
	Platform contest.Platform  `json:"platform"`
	Contests []contest.Contest `json:"-"`
	Err      error             `json:"-"`
	Elapsed  time.Duration     `json:"elapsed"`
}

// OK reports whether the source succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Summary describes one refresh pass.
type Summary struct {
	RunID     string         `json:"run_id"`
	Fetched   int            `json:"fetched"`
	Stored    int            `json:"stored"`
	Failed    []string       `json:"failed_platforms,omitempty"`
	PerSource map[string]int `json:"per_source"`
	StartedAt time.Time      `json:"started_at"`
	Elapsed   time.Duration  `json:"elapsed"`
	Results   []Result       `json:"-"`
}

// Aggregator runs all sources concurrently.
type Aggregator struct {
	sources []sources.Source
	store   ContestWriter
}

// New creates an aggregator over the given sources.
func New(srcs []sources.Source, store ContestWriter) *Aggregator {
	return &Aggregator{sources: srcs, store: store}
}

// FetchAll runs every source concurrently and waits for all of them. A
// source that errors or panics yields a Result with Err set and no
// contests; it never cancels or delays the others, and FetchAll itself
// never fails. Results are in source order.
func (a *Aggregator) FetchAll(ctx context.Context) []Result {
	results := make([]Result, len(a.sources))

	var wg conc.WaitGroup
	for i, src := range a.sources {
		i, src := i, src
		wg.Go(func() {
			results[i] = fetchOne(ctx, src)
		})
	}
	wg.Wait()

	return results
}

func fetchOne(ctx context.Context, src sources.Source) Result {
	res := Result{Platform: src.Platform()}
	start := time.Now()

	var pc panics.Catcher
	pc.Try(func() {
		res.Contests, res.Err = src.Fetch(ctx)
	})
	if r := pc.Recovered(); r != nil {
		res.Err = fmt.Errorf("source panicked: %v", r.Value)
	}
	res.Elapsed = time.Since(start)

	if res.Err != nil {
		res.Err = apperr.Wrap(apperr.SourceUnavailable, string(res.Platform), res.Err)
		res.Contests = nil
		logger.Error().Err(res.Err).Str("platform", string(res.Platform)).Dur("elapsed", res.Elapsed).Msg("Contest source failed, contributing nothing")
		return res
	}

	logger.Debug().Str("platform", string(res.Platform)).Int("contests", len(res.Contests)).Dur("elapsed", res.Elapsed).Msg("Contest source fetched")
	return res
}

// Contests concatenates the contests of every successful result. No
// deduplication and no ordering: ids cannot collide across platforms.
func Contests(results []Result) []contest.Contest {
	var all []contest.Contest
	for _, r := range results {
		if r.OK() {
			all = append(all, r.Contests...)
		}
	}
	return all
}

// Refresh fetches from every source and upserts the merged contests. Only
// a storage failure is returned as an error.
func (a *Aggregator) Refresh(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		PerSource: make(map[string]int),
	}
	log := logger.With("aggregator").With().Str("run_id", summary.RunID).Logger()
	log.Info().Int("sources", len(a.sources)).Msg("Aggregation pass started")

	results := a.FetchAll(ctx)
	summary.Results = results
	for _, r := range results {
		if !r.OK() {
			summary.Failed = append(summary.Failed, string(r.Platform))
			continue
		}
		summary.PerSource[string(r.Platform)] = len(r.Contests)
	}

	all := Contests(results)
	summary.Fetched = len(all)

	stored, err := a.store.UpsertContests(ctx, all)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store contests")
		return summary, err
	}
	summary.Stored = stored
	summary.Elapsed = time.Since(summary.StartedAt)

	log.Info().
		Int("fetched", summary.Fetched).
		Int("stored", summary.Stored).
		Strs("failed", summary.Failed).
		Dur("elapsed", summary.Elapsed).
		Msg("Aggregation pass finished")

	return summary, nil
}
