// Package simulator drives a simulation engine child process over its
// stdio pipes. Requests are single lines on the engine's stdin; each
// request is answered by exactly one JSON line on its stdout, and replies
// are matched to requests purely by order. At most one request may be in
// flight per client.
package simulator

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simharness/simharness/pkg/plan"
)

// engineArgs puts the engine into its line-oriented interpreter mode with
// state cleanup on exit and quiet logging.
var engineArgs = []string{"interpreter", "--cleanup", "--log-level", "error"}

// Metrics receives client-side measurements. Implementations must be safe
// for concurrent use.
type Metrics interface {
	RecordStep(endpoint, status string, d time.Duration)
	RecordTransportError(reason string)
}

// Options tunes a client. The zero value is usable: no logging, no
// metrics, engine stderr inherited from the parent process.
type Options struct {
	// Logger receives step-level debug logs. Nil disables logging.
	Logger *zap.Logger
	// Metrics receives step and transport measurements. Nil disables.
	Metrics Metrics
	// Stderr receives the engine's stderr. Nil inherits the parent's.
	Stderr io.Writer
}

// Client holds one engine connection. The mutex serializes the request
// reply cycle: RunPlan holds it for the whole plan so no other step can
// interleave on the stream.
type Client struct {
	log     *zap.Logger
	metrics Metrics

	mu     sync.Mutex
	w      *bufio.Writer
	r      *bufio.Reader
	stdin  io.Closer
	cmd    *exec.Cmd
	closed bool
}

func newClient(w io.Writer, r io.Reader, opts Options) *Client {
	c := &Client{
		log:     opts.Logger,
		metrics: opts.Metrics,
		w:       bufio.NewWriter(w),
		r:       bufio.NewReader(r),
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.metrics == nil {
		c.metrics = nopMetrics{}
	}
	if wc, ok := w.(io.Closer); ok {
		c.stdin = wc
	}
	return c
}

// NewFromPipes builds a client over caller-supplied pipes. The writer must
// reach the engine's stdin, the reader its stdout. If the writer also
// implements io.Closer, Close closes it.
func NewFromPipes(w io.Writer, r io.Reader, opts Options) (*Client, error) {
	if w == nil {
		return nil, &ClientError{Op: "open stdin", Err: ErrMissingPipe}
	}
	if r == nil {
		return nil, &ClientError{Op: "open stdout", Err: ErrMissingPipe}
	}
	return newClient(w, r, opts), nil
}

// Launch starts the engine binary at path in interpreter mode and connects
// a client to its pipes. The caller owns the child process and must call
// Close to release it.
func Launch(path string, opts Options) (*Client, error) {
	cmd := exec.Command(path, engineArgs...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &ClientError{Op: "open stdin", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ClientError{Op: "open stdout", Err: err}
	}
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		return nil, &ClientError{Op: "start engine", Err: err}
	}

	c := newClient(stdin, stdout, opts)
	c.cmd = cmd
	c.log.Debug("engine started",
		zap.String("path", path),
		zap.Int("pid", cmd.Process.Pid),
	)
	return c, nil
}

// runRequest is the wire form of one step request: the caller key plus the
// step's own fields flattened into a single object.
type runRequest struct {
	CallerKey string `json:"callerKey"`
	plan.Step
}

// RunStep submits one step on behalf of callerKey and blocks until its
// reply line arrives. An error reported by the engine inside the reply is
// returned as data in the response, not as an error.
func (c *Client) RunStep(callerKey string, step plan.Step) (PlanResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runStepLocked(callerKey, step)
}

// RunPlan executes the plan's steps in order and collects their replies in
// the same order. The first transport or format failure aborts the run and
// no partial results are returned.
func (c *Client) RunPlan(p *plan.Plan) ([]PlanResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PlanResponse, 0, len(p.Steps))
	for i, step := range p.Steps {
		resp, err := c.runStepLocked(p.CallerKey, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		out = append(out, resp)
	}
	return out, nil
}

func (c *Client) runStepLocked(callerKey string, step plan.Step) (PlanResponse, error) {
	if c.closed {
		return PlanResponse{}, &ClientError{Op: "write request", Err: ErrClientClosed}
	}

	start := time.Now()
	resp, err := c.exchange(callerKey, step)
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case resp.Error != "":
		status = "engine_error"
	}
	c.metrics.RecordStep(string(step.Endpoint), status, time.Since(start))
	if err != nil {
		return PlanResponse{}, err
	}

	c.log.Debug("step executed",
		zap.String("endpoint", string(step.Endpoint)),
		zap.String("method", step.Method),
		zap.Uint64("reply_id", resp.ID),
		zap.String("engine_error", resp.Error),
	)
	return resp, nil
}

// exchange performs one request-reply cycle on the stream.
func (c *Client) exchange(callerKey string, step plan.Step) (PlanResponse, error) {
	payload, err := json.Marshal(runRequest{CallerKey: callerKey, Step: step})
	if err != nil {
		return PlanResponse{}, &FormatError{Op: "encode request", Err: err}
	}

	// bufio errors are sticky; Flush reports the first write failure.
	_, _ = c.w.WriteString("run --step '")
	_, _ = c.w.Write(payload)
	_, _ = c.w.WriteString("'\n")
	if err := c.w.Flush(); err != nil {
		c.metrics.RecordTransportError("write")
		return PlanResponse{}, &ClientError{Op: "write request", Err: err}
	}

	line, err := c.r.ReadBytes('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			c.metrics.RecordTransportError("read")
			return PlanResponse{}, &ClientError{Op: "read reply", Err: err}
		}
		// A final unterminated line still counts as a reply.
		if len(bytes.TrimSpace(line)) == 0 {
			c.metrics.RecordTransportError("eof")
			return PlanResponse{}, &ClientError{Op: "read reply", Err: ErrEndOfStream}
		}
	}

	resp, err := ParseResponse(line)
	if err != nil {
		c.metrics.RecordTransportError("decode")
		return PlanResponse{}, err
	}
	return resp, nil
}

// Close shuts the engine down by closing its stdin, which ends the
// interpreter loop and triggers the engine's cleanup pass, then reaps the
// child. Close is idempotent; the client is unusable afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var first error
	if c.stdin != nil {
		if err := c.stdin.Close(); err != nil {
			first = &ClientError{Op: "close stdin", Err: err}
		}
	}
	if c.cmd != nil {
		if err := c.cmd.Wait(); err != nil && first == nil {
			first = &ClientError{Op: "wait engine", Err: err}
		}
	}
	return first
}

type nopMetrics struct{}

func (nopMetrics) RecordStep(string, string, time.Duration) {}
func (nopMetrics) RecordTransportError(string)              {}
