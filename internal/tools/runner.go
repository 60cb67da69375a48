package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/cpgagent/internal/sales"
	"github.com/kalambet/cpgagent/internal/scenario"
)

// Output is the result of one call. Result holds a derived table
// ([]trend.PeriodTotal, anomaly.Report, ...) or a simulation record.
type Output struct {
	Kind     Kind          `json:"kind"`
	Result   any           `json:"result"`
	NoData   *sales.NoData `json:"no_data,omitempty"`
	Duration time.Duration `json:"-"`
}

// Runner executes calls against one immutable table. It is safe for
// concurrent use.
type Runner struct {
	table    *sales.Table
	defaults Defaults
	logger   *slog.Logger
}

// NewRunner creates a Runner over t.
func NewRunner(t *sales.Table, d Defaults) *Runner {
	return &Runner{table: t, defaults: d, logger: slog.Default()}
}

// Table returns the table the runner reads from.
func (r *Runner) Table() *sales.Table {
	return r.table
}

// Run executes a single call. Errors wrap sales.ErrInvalidParameter when an
// argument is rejected.
func (r *Runner) Run(c Call) (Output, error) {
	if c == nil {
		return Output{}, fmt.Errorf("%w: nil call", ErrUnknownKind)
	}

	start := time.Now()
	res, err := c.run(r.table, r.defaults)
	elapsed := time.Since(start)
	if err != nil {
		r.logger.Debug("tool rejected", "kind", c.Kind(), "error", err)
		return Output{}, fmt.Errorf("%s: %w", c.Kind(), err)
	}
	r.logger.Debug("tool completed", "kind", c.Kind(), "duration_ms", elapsed.Milliseconds())

	return Output{Kind: c.Kind(), Result: res, NoData: noDataOf(res), Duration: elapsed}, nil
}

// RunAll executes calls concurrently with at most workers in flight and
// returns outputs in call order. The first failure cancels the rest.
func (r *Runner) RunAll(ctx context.Context, calls []Call, workers int) ([]Output, error) {
	if workers <= 0 {
		workers = 4
	}
	outs := make([]Output, len(calls))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, c := range calls {
		i, c := i, c
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			out, err := r.Run(c)
			if err != nil {
				return fmt.Errorf("call %d: %w", i, err)
			}
			outs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

func noDataOf(res any) *sales.NoData {
	switch v := res.(type) {
	case scenario.PriceChange:
		return v.NoData
	case scenario.Promotion:
		return v.NoData
	}
	return nil
}
