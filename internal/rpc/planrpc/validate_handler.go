package planrpc

import (
	"encoding/json"
	"net/http"

	"github.com/simharness/simharness/internal/rpc"
)

// ValidateHandler checks a plan document against the engine's dispatch rules
// without running it.
type ValidateHandler struct{}

func (ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req rpc.ValidatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	issues := req.Plan.Validate()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpc.ValidatePlanResponse{Valid: len(issues) == 0, Issues: issues})
}
