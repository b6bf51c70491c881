package simulator

import (
	"github.com/near/borsh-go"

	"github.com/simharness/simharness/pkg/plan"
)

// PlanResultTyped is PlanResult with the payload decoded into T.
type PlanResultTyped[T any] struct {
	ID        string
	Msg       string
	Timestamp uint64
	Response  T
}

// PlanResponseTyped is a reply whose payload has been decoded into T.
type PlanResponseTyped[T any] struct {
	BaseResponse
	Result PlanResultTyped[T]
}

// Typed reinterprets a reply's payload as the binary encoding of T. The
// untyped reply stays valid regardless of the outcome; a failure here is a
// *TypedDecodeError and implies nothing about the transport.
func Typed[T any](resp PlanResponse) (PlanResponseTyped[T], error) {
	var value T
	if err := borsh.Deserialize(&value, resp.Result.Response); err != nil {
		return PlanResponseTyped[T]{}, &TypedDecodeError{Err: err}
	}
	return PlanResponseTyped[T]{
		BaseResponse: resp.BaseResponse,
		Result: PlanResultTyped[T]{
			ID:        resp.Result.ID,
			Msg:       resp.Result.Msg,
			Timestamp: resp.Result.Timestamp,
			Response:  value,
		},
	}, nil
}

// RunStepTyped runs one step and decodes its payload into T.
func RunStepTyped[T any](c *Client, callerKey string, step plan.Step) (PlanResponseTyped[T], error) {
	resp, err := c.RunStep(callerKey, step)
	if err != nil {
		return PlanResponseTyped[T]{}, err
	}
	return Typed[T](resp)
}
