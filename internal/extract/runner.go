package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/pgharvest/pgharvest/internal/dataset"
	"github.com/pgharvest/pgharvest/internal/observability"
	"github.com/pgharvest/pgharvest/internal/source"
)

type OutcomeKind int

const (
	OutcomeFailed OutcomeKind = iota
	OutcomeEmpty
	OutcomeOK
)

// Outcome is the per-query result. Failed and empty outcomes carry no paths;
// callers detect them by absence from the run result maps.
type Outcome struct {
	Kind        OutcomeKind
	DatasetPath string
	Partitions  []string
}

func failedOutcome() Outcome { return Outcome{Kind: OutcomeFailed} }
func emptyOutcome() Outcome  { return Outcome{Kind: OutcomeEmpty} }

// Materializer writes a fetched table as a partitioned dataset.
type Materializer interface {
	Materialize(ctx context.Context, t *dataset.Table, name, tempRoot string) (string, []string, error)
}

// Runner executes one named query over a session, retrying transient
// connectivity failures up to MaxAttempts with a fixed Backoff. Any other
// failure is fatal for the query on the first occurrence: malformed SQL and
// schema mismatches do not self-heal by waiting.
type Runner struct {
	Materializer Materializer
	Logger       *slog.Logger
	MaxAttempts  int
	Backoff      time.Duration
	Clock        func() time.Time
}

// Run executes sqlText and materializes the result under tempRoot/name. The
// SQL is caller-supplied and executed verbatim. A Runner is shared across
// workers, so defaults are resolved locally rather than written back.
func (r *Runner) Run(ctx context.Context, session Querier, name, sqlText, tempRoot string) Outcome {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}
	start := clock()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		r.log(ctx, slog.LevelInfo, "executing query", name, slog.Int("attempt", attempt))

		table, err := Fetch(ctx, session, sqlText)
		if err != nil {
			if source.IsConnectivityError(err) {
				r.log(ctx, slog.LevelWarn, "connectivity failure, will retry", name,
					slog.Int("attempt", attempt),
					slog.Int("max_attempts", maxAttempts),
					slog.Any("error", err),
				)
				observability.IncrementConnectRetry()
				if !sleep(ctx, backoff) {
					observability.ObserveQuery("failed", 0, clock().Sub(start))
					return failedOutcome()
				}
				continue
			}
			r.log(ctx, slog.LevelError, "query failed", name, slog.Any("error", err))
			observability.ObserveQuery("failed", 0, clock().Sub(start))
			return failedOutcome()
		}

		if table.NumRows() == 0 {
			r.log(ctx, slog.LevelWarn, "query returned no rows", name)
			observability.ObserveQuery("empty", 0, clock().Sub(start))
			return emptyOutcome()
		}
		r.log(ctx, slog.LevelInfo, "query finished", name, slog.Int("rows", table.NumRows()))

		path, partitions, err := r.Materializer.Materialize(ctx, table, name, tempRoot)
		if err != nil {
			r.log(ctx, slog.LevelError, "materialization failed", name, slog.Any("error", err))
			observability.ObserveQuery("failed", table.NumRows(), clock().Sub(start))
			return failedOutcome()
		}

		elapsed := clock().Sub(start)
		observability.ObserveQuery("ok", table.NumRows(), elapsed)
		r.log(ctx, slog.LevelInfo, "query processed", name,
			slog.Int("rows", table.NumRows()),
			slog.Duration("elapsed", elapsed),
		)
		return Outcome{Kind: OutcomeOK, DatasetPath: path, Partitions: partitions}
	}

	r.log(ctx, slog.LevelError, "query failed after all attempts", name, slog.Int("attempts", maxAttempts))
	observability.ObserveQuery("failed", 0, clock().Sub(start))
	return failedOutcome()
}

func (r *Runner) log(ctx context.Context, level slog.Level, msg, query string, attrs ...slog.Attr) {
	if r.Logger == nil {
		return
	}
	r.Logger.LogAttrs(ctx, level, msg, append([]slog.Attr{slog.String("query", query)}, attrs...)...)
}

// sleep blocks for d or until ctx is done, reporting whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
