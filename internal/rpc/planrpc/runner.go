// Package planrpc streams plan runs to RPC clients.
package planrpc

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simharness/simharness/internal/config"
	"github.com/simharness/simharness/internal/history"
	"github.com/simharness/simharness/internal/observability"
	"github.com/simharness/simharness/internal/rpc"
	"github.com/simharness/simharness/pkg/simulator"
)

// Runner executes a plan and yields streamed events.
type Runner interface {
	Run(r *http.Request, req rpc.RunPlanRequest) (<-chan rpc.RunPlanEvent, error)
}

// PlanRunner executes plans against a freshly launched engine child, one
// per run, so concurrent runs never share a reply stream.
type PlanRunner struct {
	Engine  config.EngineConfig
	Metrics *observability.Metrics
	History *history.Store
	Logger  *zap.Logger
}

// Run validates and compiles the plan, launches an engine, and streams one
// event per executed step. Engine-reported step errors ride inside step
// events; only transport and format failures abort the run.
func (r *PlanRunner) Run(reqCtx *http.Request, req rpc.RunPlanRequest) (<-chan rpc.RunPlanEvent, error) {
	out := make(chan rpc.RunPlanEvent, 16)
	ctx := reqCtx.Context()

	go func() {
		defer close(out)
		start := time.Now()

		runID := req.RunID
		if runID == "" {
			runID = uuid.NewString()
		}

		emit := func(ev rpc.RunPlanEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case out <- ev:
				return true
			}
		}

		if issues := req.Plan.Validate(); len(issues) > 0 {
			msgs := make([]string, 0, len(issues))
			for _, issue := range issues {
				msgs = append(msgs, issue.String())
			}
			emit(rpc.RunPlanEvent{Type: "error", RunID: runID, Error: "invalid plan: " + strings.Join(msgs, "; ")})
			r.Metrics.RecordRun("invalid", time.Since(start))
			return
		}

		compiled, err := req.Plan.Compile()
		if err != nil {
			emit(rpc.RunPlanEvent{Type: "error", RunID: runID, Error: err.Error()})
			r.Metrics.RecordRun("invalid", time.Since(start))
			return
		}

		path, err := simulator.Locate(r.Engine.Path)
		if err != nil {
			emit(rpc.RunPlanEvent{Type: "error", RunID: runID, Error: err.Error()})
			r.Metrics.RecordRun("error", time.Since(start))
			return
		}

		opts := simulator.Options{
			Logger:  r.Logger,
			Metrics: r.Metrics.ForEngine(),
		}
		if strings.EqualFold(strings.TrimSpace(r.Engine.Stderr), "discard") {
			opts.Stderr = io.Discard
		}

		client, err := simulator.Launch(path, opts)
		if err != nil {
			emit(rpc.RunPlanEvent{Type: "error", RunID: runID, Error: err.Error()})
			r.Metrics.RecordRun("error", time.Since(start))
			return
		}
		r.Metrics.RecordEngineLaunch()
		defer func() {
			if err := client.Close(); err != nil {
				r.warn("engine shutdown", err)
			}
		}()

		completed := 0
		runErr := ""
		for i, step := range compiled.Steps {
			if ctx.Err() != nil {
				runErr = "cancelled"
				break
			}

			resp, err := client.RunStep(compiled.CallerKey, step)
			if err != nil {
				runErr = fmt.Sprintf("step %d: %v", i, err)
				emit(rpc.RunPlanEvent{Type: "error", RunID: runID, Index: i, Error: runErr})
				break
			}

			if r.History != nil {
				if err := r.History.RecordStep(history.StepRecord{
					RunID:       runID,
					Index:       i,
					Endpoint:    string(step.Endpoint),
					Method:      step.Method,
					EngineError: resp.Error,
					TxID:        resp.Result.ID,
					Timestamp:   resp.Result.Timestamp,
				}); err != nil {
					r.warn("history step record", err)
				}
			}

			if !emit(rpc.RunPlanEvent{
				Type:     "step",
				RunID:    runID,
				Index:    i,
				Endpoint: string(step.Endpoint),
				Method:   step.Method,
				Response: &resp,
			}) {
				runErr = "cancelled"
				break
			}
			completed++
		}

		if r.History != nil {
			if err := r.History.RecordRun(history.Run{
				ID:        runID,
				CallerKey: compiled.CallerKey,
				Transport: req.Transport,
				Steps:     len(compiled.Steps),
				Completed: completed,
				Error:     runErr,
				StartedAt: start,
				EndedAt:   time.Now(),
			}); err != nil {
				r.warn("history run record", err)
			}
		}

		switch runErr {
		case "":
			emit(rpc.RunPlanEvent{Type: "done", RunID: runID, Index: completed, Done: true, Steps: completed})
			r.Metrics.RecordRun("ok", time.Since(start))
		case "cancelled":
			// Best effort: the peer is usually gone already.
			select {
			case out <- rpc.RunPlanEvent{Type: "error", RunID: runID, Error: "cancelled"}:
			default:
			}
			r.Metrics.RecordRun("cancelled", time.Since(start))
		default:
			r.Metrics.RecordRun("error", time.Since(start))
		}
	}()

	return out, nil
}

func (r *PlanRunner) warn(msg string, err error) {
	if r.Logger != nil {
		r.Logger.Warn(msg, zap.Error(err))
	}
}

// DryRunner validates and compiles plans without launching an engine. It
// emits one step event per step with no engine response.
type DryRunner struct{}

func (DryRunner) Run(reqCtx *http.Request, req rpc.RunPlanRequest) (<-chan rpc.RunPlanEvent, error) {
	out := make(chan rpc.RunPlanEvent, 16)
	ctx := reqCtx.Context()

	go func() {
		defer close(out)

		runID := req.RunID
		if runID == "" {
			runID = uuid.NewString()
		}

		emit := func(ev rpc.RunPlanEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case out <- ev:
				return true
			}
		}

		if issues := req.Plan.Validate(); len(issues) > 0 {
			msgs := make([]string, 0, len(issues))
			for _, issue := range issues {
				msgs = append(msgs, issue.String())
			}
			emit(rpc.RunPlanEvent{Type: "error", RunID: runID, Error: "invalid plan: " + strings.Join(msgs, "; ")})
			return
		}

		compiled, err := req.Plan.Compile()
		if err != nil {
			emit(rpc.RunPlanEvent{Type: "error", RunID: runID, Error: err.Error()})
			return
		}

		for i, step := range compiled.Steps {
			if !emit(rpc.RunPlanEvent{
				Type:     "step",
				RunID:    runID,
				Index:    i,
				Endpoint: string(step.Endpoint),
				Method:   step.Method,
			}) {
				return
			}
		}
		emit(rpc.RunPlanEvent{Type: "done", RunID: runID, Index: len(compiled.Steps), Done: true, Steps: len(compiled.Steps)})
	}()

	return out, nil
}
