package cli

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/bufbuild/connect-go"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"

	"github.com/simharness/simharness/internal/config"
	"github.com/simharness/simharness/internal/history"
	"github.com/simharness/simharness/internal/planfile"
	"github.com/simharness/simharness/internal/rpc"
	"github.com/simharness/simharness/internal/rpc/connectjson"
	"github.com/simharness/simharness/internal/rpc/planrpc"
)

// NewRunCmd executes a plan document, either against a locally launched
// engine or by streaming through the daemon.
func NewRunCmd(opts *Options) *cobra.Command {
	var remote bool
	var asJSON bool
	var runID string
	var callerKey string

	cmd := &cobra.Command{
		Use:   "run <plan-file>",
		Short: "Run a plan document against the simulator engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			doc, err := planfile.Load(args[0])
			if err != nil {
				return err
			}
			if callerKey != "" {
				doc.CallerKey = callerKey
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			reqBody := rpc.RunPlanRequest{RunID: runID, Plan: *doc}

			if remote {
				baseURL := daemonURL(cfg.Server.Addr)
				switch strings.ToLower(strings.TrimSpace(cfg.Server.Transport)) {
				case "ndjson":
					return runNDJSON(ctx, cmd, baseURL+"/plan/run", reqBody, asJSON)
				default:
					return runConnect(ctx, cmd, baseURL+planrpc.ConnectRunPlanProcedure, reqBody, asJSON)
				}
			}
			return runLocal(ctx, cmd, cfg, reqBody, asJSON)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Send the plan to the daemon instead of launching an engine locally")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw NDJSON events instead of readable lines")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (default: generated)")
	cmd.Flags().StringVar(&callerKey, "caller", "", "Override the plan's caller key")
	return cmd
}

func daemonURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// runLocal launches an engine in-process and renders the event stream the
// same way the remote paths do.
func runLocal(ctx context.Context, cmd *cobra.Command, cfg *config.Config, reqBody rpc.RunPlanRequest, asJSON bool) error {
	var store *history.Store
	if cfg.History.Enabled {
		var err error
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()
	}

	runner := &planrpc.PlanRunner{Engine: cfg.Engine, History: store}
	httpReq := &http.Request{}
	httpReq = httpReq.WithContext(ctx)

	events, err := runner.Run(httpReq, reqBody)
	if err != nil {
		return err
	}
	for ev := range events {
		if err := renderEvent(cmd, ev, asJSON); err != nil {
			return err
		}
	}
	return nil
}

func runNDJSON(ctx context.Context, cmd *cobra.Command, url string, reqBody rpc.RunPlanRequest, asJSON bool) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var evt rpc.RunPlanEvent
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := renderEvent(cmd, evt, asJSON); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func runConnect(ctx context.Context, cmd *cobra.Command, url string, reqBody rpc.RunPlanRequest, asJSON bool) error {
	client := connect.NewClient[rpc.RunPlanStreamRequest, rpc.RunPlanEvent](buildH2CClient(), url, connect.WithCodec(connectjson.Codec{}))
	stream := client.CallBidiStream(ctx)

	if err := stream.Send(&rpc.RunPlanStreamRequest{Run: &reqBody}); err != nil {
		return err
	}

	// propagate cancellation to the daemon.
	go func() {
		<-ctx.Done()
		_ = stream.Send(&rpc.RunPlanStreamRequest{Cancel: true, RunID: reqBody.RunID})
		_ = stream.CloseRequest()
	}()

	for {
		evt, err := stream.Receive()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := renderEvent(cmd, *evt, asJSON); err != nil {
			return err
		}
	}
	_ = stream.CloseRequest()
	return stream.CloseResponse()
}

func renderEvent(cmd *cobra.Command, evt rpc.RunPlanEvent, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		_ = json.NewEncoder(out).Encode(evt)
		if evt.Type == "error" {
			return fmt.Errorf("run failed: %s", evt.Error)
		}
		return nil
	}

	switch evt.Type {
	case "step":
		line := fmt.Sprintf("[step %d] %s/%s", evt.Index, evt.Endpoint, evt.Method)
		if evt.Response != nil {
			if evt.Response.Error != "" {
				line += " engine error: " + evt.Response.Error
			} else if evt.Response.Result.ID != "" {
				line += " tx " + evt.Response.Result.ID
			}
			if n := len(evt.Response.Result.Response); n > 0 {
				line += fmt.Sprintf(" (%d response bytes)", n)
			}
		}
		fmt.Fprintln(out, line)
	case "done":
		fmt.Fprintf(out, "[done] %d steps\n", evt.Steps)
	case "error":
		return fmt.Errorf("run failed: %s", evt.Error)
	}
	return nil
}

func buildH2CClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}
