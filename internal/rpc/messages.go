// Package rpc defines message types shared between the daemon and clients.
package rpc

import (
	"github.com/simharness/simharness/internal/planfile"
	"github.com/simharness/simharness/pkg/simulator"
)

// RunPlanRequest is the top-level request for running a plan.
type RunPlanRequest struct {
	RunID string `json:"run_id,omitempty"`
	// Transport names the surface the request arrived on. Servers fill it;
	// anything a client sends here is overwritten.
	Transport string            `json:"transport,omitempty"`
	Plan      planfile.Document `json:"plan"`
}

// RunPlanEvent streams back progress from the daemon.
type RunPlanEvent struct {
	Type     string                  `json:"type"` // step|error|done
	RunID    string                  `json:"run_id,omitempty"`
	Index    int                     `json:"index"`
	Endpoint string                  `json:"endpoint,omitempty"`
	Method   string                  `json:"method,omitempty"`
	Response *simulator.PlanResponse `json:"response,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Done     bool                    `json:"done,omitempty"`
	Steps    int                     `json:"steps,omitempty"`
}

// RunPlanStreamRequest is the bidirectional stream payload for Connect RPC.
// The first message must carry the plan; subsequent messages can carry
// control signals.
type RunPlanStreamRequest struct {
	Run    *RunPlanRequest `json:"run,omitempty"`
	Cancel bool            `json:"cancel,omitempty"`
	RunID  string          `json:"run_id,omitempty"`
}

// ValidatePlanRequest asks for document validation without execution.
type ValidatePlanRequest struct {
	Plan planfile.Document `json:"plan"`
}

// ValidatePlanResponse lists validation findings. Valid plans have none.
type ValidatePlanResponse struct {
	Valid  bool             `json:"valid"`
	Issues []planfile.Issue `json:"issues,omitempty"`
}
