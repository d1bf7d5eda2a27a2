package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// QuerySpec names one extract and the SQL that produces it.
type QuerySpec struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

// RunResult aggregates per-query outputs for one orchestration pass. Queries
// that failed or returned no rows are absent from both maps.
type RunResult struct {
	DatasetPaths map[string]string
	Partitions   map[string][]string
}

func newRunResult() RunResult {
	return RunResult{
		DatasetPaths: map[string]string{},
		Partitions:   map[string][]string{},
	}
}

// Session is a database session owned by whoever opened it.
type Session interface {
	Querier
	Close() error
}

// SessionFactory opens independent source sessions. *sql.DB returned by
// source.Open satisfies Session.
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

// Orchestrator fans the query list out over the runner. Sequential mode runs
// every query in input order on one shared session; parallel mode gives each
// worker its own session, since a single session must not be shared across
// goroutines.
type Orchestrator struct {
	Runner   *Runner
	Sessions SessionFactory
	Logger   *slog.Logger
	Workers  int
}

func (o *Orchestrator) ensureDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
}

// RunAll processes every spec and returns the aggregated result. Per-query
// failures never abort sibling queries; the only run-fatal error is failing
// to open the shared session in sequential mode.
func (o *Orchestrator) RunAll(ctx context.Context, specs []QuerySpec, tempRoot string, parallel bool) (RunResult, error) {
	o.ensureDefaults()
	result := newRunResult()

	if err := os.MkdirAll(tempRoot, 0o755); err != nil {
		return result, fmt.Errorf("create temp root %q: %w", tempRoot, err)
	}
	if len(specs) == 0 {
		return result, nil
	}

	if parallel {
		o.runParallel(ctx, specs, tempRoot, &result)
		return result, nil
	}

	session, err := o.Sessions.Open(ctx)
	if err != nil {
		return result, fmt.Errorf("open shared session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil && o.Logger != nil {
			o.Logger.WarnContext(ctx, "failed to close shared session", slog.Any("error", err))
		}
	}()

	for _, spec := range specs {
		name := normalizeName(spec.Name)
		if name == "" {
			continue
		}
		record(&result, name, o.Runner.Run(ctx, session, name, spec.Query, tempRoot))
	}
	return result, nil
}

type queryResult struct {
	name    string
	outcome Outcome
}

func (o *Orchestrator) runParallel(ctx context.Context, specs []QuerySpec, tempRoot string, result *RunResult) {
	workers := o.Workers
	if workers > len(specs) {
		workers = len(specs)
	}

	jobs := make(chan QuerySpec)
	results := make(chan queryResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.worker(ctx, jobs, results, tempRoot)
		}()
	}
	go func() {
		defer close(jobs)
		for _, spec := range specs {
			select {
			case jobs <- spec:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	// Results merge in completion order; nothing downstream may rely on it.
	for r := range results {
		record(result, r.name, r.outcome)
	}
}

// worker owns its session lifecycle. When the session cannot be opened, the
// worker still drains its jobs so every query gets a recorded outcome.
func (o *Orchestrator) worker(ctx context.Context, jobs <-chan QuerySpec, results chan<- queryResult, tempRoot string) {
	session, err := o.Sessions.Open(ctx)
	if err != nil {
		if o.Logger != nil {
			o.Logger.ErrorContext(ctx, "worker failed to open session", slog.Any("error", err))
		}
		for spec := range jobs {
			name := normalizeName(spec.Name)
			if name == "" {
				continue
			}
			results <- queryResult{name: name, outcome: failedOutcome()}
		}
		return
	}
	defer func() {
		if err := session.Close(); err != nil && o.Logger != nil {
			o.Logger.WarnContext(ctx, "failed to close worker session", slog.Any("error", err))
		}
	}()

	for spec := range jobs {
		name := normalizeName(spec.Name)
		if name == "" {
			continue
		}
		results <- queryResult{name: name, outcome: o.Runner.Run(ctx, session, name, spec.Query, tempRoot)}
	}
}

func record(result *RunResult, name string, outcome Outcome) {
	if outcome.Kind != OutcomeOK {
		return
	}
	result.DatasetPaths[name] = outcome.DatasetPath
	result.Partitions[name] = outcome.Partitions
}

// normalizeName strips whitespace so the query name is safe as a directory
// segment.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), "")
}
