package simulator

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simharness/simharness/pkg/plan"
)

func TestTypedScalar(t *testing.T) {
	resp := PlanResponse{
		BaseResponse: BaseResponse{ID: 1},
		Result: PlanResult{
			Msg:       "balance",
			Timestamp: 5,
			Response:  []byte{42, 0, 0, 0, 0, 0, 0, 0},
		},
	}

	typed, err := Typed[uint64](resp)
	require.NoError(t, err)
	require.Equal(t, uint64(42), typed.Result.Response)
	require.Equal(t, "balance", typed.Result.Msg)
	require.Equal(t, uint64(5), typed.Result.Timestamp)
}

func TestTypedStruct(t *testing.T) {
	type counter struct {
		Value uint64
		Owner uint32
	}
	resp := PlanResponse{
		Result: PlanResult{
			// 7 as u64 little-endian, then 9 as u32 little-endian.
			Response: []byte{7, 0, 0, 0, 0, 0, 0, 0, 9, 0, 0, 0},
		},
	}

	typed, err := Typed[counter](resp)
	require.NoError(t, err)
	require.Equal(t, counter{Value: 7, Owner: 9}, typed.Result.Response)
}

func TestTypedFailureIsolated(t *testing.T) {
	// Valid untyped reply whose payload is too short for a u64.
	resp := PlanResponse{Result: PlanResult{Response: []byte{1, 2, 3}}}

	_, err := Typed[uint64](resp)
	var tde *TypedDecodeError
	require.ErrorAs(t, err, &tde)

	// The untyped form is untouched and still usable.
	require.Equal(t, []byte{1, 2, 3}, resp.Result.Response)
}

func TestRunStepTyped(t *testing.T) {
	reply := `{"id":0,"result":{"timestamp":1,"response":"KgAAAAAAAAA="}}` + "\n"
	c, err := NewFromPipes(&bytes.Buffer{}, strings.NewReader(reply), Options{})
	require.NoError(t, err)

	typed, err := RunStepTyped[uint64](c, "alice_key", plan.ReadProgram(plan.ID{}, "value"))
	require.NoError(t, err)
	require.Equal(t, uint64(42), typed.Result.Response)
}

func TestRunStepTypedTransportErrorPassesThrough(t *testing.T) {
	c, err := NewFromPipes(&bytes.Buffer{}, strings.NewReader(""), Options{})
	require.NoError(t, err)

	_, err = RunStepTyped[uint64](c, "alice_key", plan.ReadProgram(plan.ID{}, "value"))
	require.ErrorIs(t, err, ErrEndOfStream)

	var tde *TypedDecodeError
	require.False(t, errors.As(err, &tde), "transport failures must not masquerade as typed decode failures")
}
