package simulator

import "encoding/json"

// BaseResponse carries the engine's per-reply bookkeeping fields.
type BaseResponse struct {
	// ID is the engine's own reply counter. Replies are correlated to
	// requests by order on the stream, never by this field.
	ID uint64 `json:"id"`
	// Error is the engine-reported step failure, empty on success. A
	// populated Error is data, not a transport fault.
	Error string `json:"error,omitempty"`
}

// PlanResult holds the engine's result object for one step.
type PlanResult struct {
	// ID is the transaction id assigned by the engine, when the step
	// produced one.
	ID string `json:"id,omitempty"`
	// Msg is a human-readable note attached by the engine.
	Msg string `json:"msg,omitempty"`
	// Timestamp is the engine's execution timestamp.
	Timestamp uint64 `json:"timestamp"`
	// Response is the step's raw payload. The engine sends it base64
	// encoded; it is decoded to bytes during parsing.
	Response []byte `json:"response,omitempty"`
}

// PlanResponse is one fully parsed reply line.
type PlanResponse struct {
	BaseResponse
	Result PlanResult `json:"result"`
}

// ParseResponse decodes a single reply line. The input may carry trailing
// newline or whitespace. Malformed JSON and malformed payload base64 both
// surface as a *FormatError.
func ParseResponse(line []byte) (PlanResponse, error) {
	var resp PlanResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return PlanResponse{}, &FormatError{Op: "decode reply", Err: err}
	}
	return resp, nil
}
