package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/cpgagent/internal/sales"
	"github.com/kalambet/cpgagent/internal/storage"
	"github.com/kalambet/cpgagent/internal/tools"
)

// RunStore persists tool runs. *storage.Store satisfies it.
type RunStore interface {
	SaveRun(r storage.Run) error
	GetRun(id string) (storage.Run, error)
	ListRuns(limit, offset int) ([]storage.Run, error)
	DeleteRun(id string) error
}

// Result is the response shape shared by the HTTP API, the MCP server and
// the CLI.
type Result struct {
	RunID   string     `json:"run_id,omitempty"`
	Kind    tools.Kind `json:"kind"`
	Result  any        `json:"result"`
	NoData  string     `json:"no_data,omitempty"`
	Elapsed string     `json:"elapsed"`
}

// Executor runs catalog calls and records each one in the run log.
type Executor struct {
	runner *tools.Runner
	runs   RunStore // nil disables recording
}

func NewExecutor(runner *tools.Runner, runs RunStore) *Executor {
	return &Executor{runner: runner, runs: runs}
}

// Runner returns the underlying runner.
func (e *Executor) Runner() *tools.Runner {
	return e.runner
}

// Execute runs c. Rejected arguments are recorded as failed runs and
// returned as errors wrapping sales.ErrInvalidParameter.
func (e *Executor) Execute(c tools.Call) (Result, error) {
	if c == nil {
		return Result{}, errors.New("nil call")
	}

	args, err := json.Marshal(c)
	if err != nil {
		return Result{}, fmt.Errorf("encoding arguments: %w", err)
	}
	run := storage.Run{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Tool:      string(c.Kind()),
		ArgsJSON:  string(args),
	}

	out, err := e.runner.Run(c)
	if err != nil {
		run.Status = storage.RunFailed
		run.Error = err.Error()
		e.record(run)
		return Result{}, err
	}

	body, err := json.Marshal(out.Result)
	if err != nil {
		return Result{}, fmt.Errorf("encoding result: %w", err)
	}
	run.Status = storage.RunCompleted
	run.ResultJSON = string(body)
	run.DurationMs = out.Duration.Milliseconds()

	res := Result{
		Kind:    out.Kind,
		Result:  out.Result,
		NoData:  noDataMessage(out.NoData),
		Elapsed: out.Duration.String(),
	}
	if e.record(run) {
		res.RunID = run.ID
	}
	return res, nil
}

func (e *Executor) record(run storage.Run) bool {
	if e.runs == nil {
		return false
	}
	if err := e.runs.SaveRun(run); err != nil {
		slog.Warn("failed to record run", "tool", run.Tool, "error", err)
		return false
	}
	return true
}

func noDataMessage(n *sales.NoData) string {
	if n == nil {
		return ""
	}
	return n.String()
}
