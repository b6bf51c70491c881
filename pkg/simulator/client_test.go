package simulator

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simharness/simharness/pkg/plan"
)

type closeRecorder struct {
	bytes.Buffer
	closes int
}

func (c *closeRecorder) Close() error {
	c.closes++
	return nil
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

type fakeMetrics struct {
	steps      []string
	transports []string
}

func (f *fakeMetrics) RecordStep(endpoint, status string, _ time.Duration) {
	f.steps = append(f.steps, endpoint+"/"+status)
}

func (f *fakeMetrics) RecordTransportError(reason string) {
	f.transports = append(f.transports, reason)
}

const okReply = `{"id":0,"error":null,"result":{"id":"","msg":"","timestamp":0,"response":""}}` + "\n"

func TestRunStepFrame(t *testing.T) {
	var out bytes.Buffer
	c, err := NewFromPipes(&out, strings.NewReader(okReply), Options{})
	require.NoError(t, err)

	_, err = c.RunStep("alice_key", plan.CreateKey(plan.Ed25519("alice_key")))
	require.NoError(t, err)

	want := `run --step '{"callerKey":"alice_key","endpoint":"key","method":"create_key","maxUnits":0,"params":[{"type":"ed25519","value":"YWxpY2Vfa2V5"}]}'` + "\n"
	require.Equal(t, want, out.String())
}

func TestRunPlanOrdering(t *testing.T) {
	replies := strings.Join([]string{
		`{"id":0,"result":{"msg":"first","timestamp":1}}`,
		`{"id":1,"result":{"msg":"second","timestamp":2}}`,
		`{"id":2,"result":{"msg":"third","timestamp":3}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	c, err := NewFromPipes(&out, strings.NewReader(replies), Options{})
	require.NoError(t, err)

	p := plan.New("alice_key")
	program := p.AddStep(plan.CreateProgram("counter.wasm"))
	p.AddStep(plan.CallProgram(program, "inc", 100, plan.U64(1)))
	p.AddStep(plan.ReadProgram(program, "value"))

	got, err := c.RunPlan(p)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "first", got[0].Result.Msg)
	require.Equal(t, "second", got[1].Result.Msg)
	require.Equal(t, "third", got[2].Result.Msg)

	// One frame per step, written in plan order.
	frames := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, frames, 3)
	require.Contains(t, frames[0], `"method":"program_create"`)
	require.Contains(t, frames[1], `"method":"inc"`)
	require.Contains(t, frames[2], `"method":"value"`)
}

func TestRunStepEndOfStream(t *testing.T) {
	c, err := NewFromPipes(&bytes.Buffer{}, strings.NewReader(""), Options{})
	require.NoError(t, err)

	_, err = c.RunStep("alice_key", plan.CreateProgram("counter.wasm"))
	require.ErrorIs(t, err, ErrEndOfStream)

	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "read reply", ce.Op)
}

func TestRunStepReadErrorDistinctFromEOF(t *testing.T) {
	boom := errors.New("pipe burst")
	c, err := NewFromPipes(&bytes.Buffer{}, errReader{err: boom}, Options{})
	require.NoError(t, err)

	_, err = c.RunStep("alice_key", plan.CreateProgram("counter.wasm"))
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrEndOfStream)

	var ce *ClientError
	require.ErrorAs(t, err, &ce)
}

func TestRunStepFinalLineWithoutNewline(t *testing.T) {
	reply := `{"id":0,"result":{"msg":"tail","timestamp":9}}`
	c, err := NewFromPipes(&bytes.Buffer{}, strings.NewReader(reply), Options{})
	require.NoError(t, err)

	resp, err := c.RunStep("alice_key", plan.CreateProgram("counter.wasm"))
	require.NoError(t, err)
	require.Equal(t, "tail", resp.Result.Msg)
}

func TestRunPlanFailFast(t *testing.T) {
	// First reply present, stream ends before the second.
	c, err := NewFromPipes(&bytes.Buffer{}, strings.NewReader(okReply), Options{})
	require.NoError(t, err)

	p := plan.New("alice_key")
	program := p.AddStep(plan.CreateProgram("counter.wasm"))
	p.AddStep(plan.ReadProgram(program, "value"))

	got, err := c.RunPlan(p)
	require.Nil(t, got)
	require.ErrorIs(t, err, ErrEndOfStream)
	require.Contains(t, err.Error(), "step 1")
}

func TestEngineErrorIsData(t *testing.T) {
	reply := `{"id":0,"error":"invalid step: first parameter must be a key","result":{"timestamp":0}}` + "\n"
	c, err := NewFromPipes(&bytes.Buffer{}, strings.NewReader(reply), Options{})
	require.NoError(t, err)

	resp, err := c.RunStep("alice_key", plan.CreateKey(plan.Ed25519("alice_key")))
	require.NoError(t, err)
	require.Equal(t, "invalid step: first parameter must be a key", resp.Error)
}

func TestRunStepEncodeFailure(t *testing.T) {
	var out bytes.Buffer
	c, err := NewFromPipes(&out, strings.NewReader(okReply), Options{})
	require.NoError(t, err)

	_, err = c.RunStep("alice_key", plan.Step{
		Endpoint: plan.EndpointExecute,
		Method:   "inc",
		Params:   []plan.Param{{}},
	})
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "encode request", fe.Op)
	require.Zero(t, out.Len(), "nothing may reach the engine on encode failure")
}

func TestNewFromPipesMissingPipe(t *testing.T) {
	_, err := NewFromPipes(nil, strings.NewReader(""), Options{})
	require.ErrorIs(t, err, ErrMissingPipe)

	_, err = NewFromPipes(&bytes.Buffer{}, nil, Options{})
	require.ErrorIs(t, err, ErrMissingPipe)
}

func TestCloseIdempotent(t *testing.T) {
	rec := &closeRecorder{}
	c, err := NewFromPipes(rec, strings.NewReader(""), Options{})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Equal(t, 1, rec.closes)

	_, err = c.RunStep("alice_key", plan.CreateProgram("counter.wasm"))
	require.ErrorIs(t, err, ErrClientClosed)
}

func TestMetricsRecorded(t *testing.T) {
	m := &fakeMetrics{}
	replies := okReply + `{"id":1,"error":"out of units","result":{"timestamp":0}}` + "\n"
	c, err := NewFromPipes(&bytes.Buffer{}, strings.NewReader(replies), Options{Metrics: m})
	require.NoError(t, err)

	_, err = c.RunStep("alice_key", plan.CreateProgram("counter.wasm"))
	require.NoError(t, err)
	_, err = c.RunStep("alice_key", plan.CallProgram(plan.ID{}, "inc", 10))
	require.NoError(t, err)
	_, err = c.RunStep("alice_key", plan.ReadProgram(plan.ID{}, "value"))
	require.Error(t, err)

	require.Equal(t, []string{"execute/ok", "execute/engine_error", "readonly/error"}, m.steps)
	require.Equal(t, []string{"eof"}, m.transports)
}

func TestLaunchRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake engine needs a POSIX shell")
	}

	script := filepath.Join(t.TempDir(), "engine.sh")
	fake := "#!/bin/sh\n" +
		"while read -r line; do\n" +
		"  echo '{\"id\":0,\"error\":null,\"result\":{\"id\":\"tx1\",\"msg\":\"ok\",\"timestamp\":1,\"response\":\"KgAAAAAAAAA=\"}}'\n" +
		"done\n"
	require.NoError(t, os.WriteFile(script, []byte(fake), 0o755))

	c, err := Launch(script, Options{})
	require.NoError(t, err)

	resp, err := c.RunStep("alice_key", plan.CreateProgram("counter.wasm"))
	require.NoError(t, err)
	require.Equal(t, "tx1", resp.Result.ID)
	require.Equal(t, []byte{42, 0, 0, 0, 0, 0, 0, 0}, resp.Result.Response)

	require.NoError(t, c.Close())
}
