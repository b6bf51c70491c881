package planrpc

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bufbuild/connect-go"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/simharness/simharness/internal/rpc"
	"github.com/simharness/simharness/internal/rpc/connectjson"
)

func newConnectTestClient(t *testing.T, runner Runner) *connect.Client[rpc.RunPlanStreamRequest, rpc.RunPlanEvent] {
	t.Helper()
	path, handler := NewConnectHandler(runner, nil)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot open listener in sandbox: %v", err)
	}

	server := httptest.NewUnstartedServer(h2c.NewHandler(mux, &http2.Server{}))
	server.Listener = ln
	server.Start()
	t.Cleanup(server.Close)

	return connect.NewClient[rpc.RunPlanStreamRequest, rpc.RunPlanEvent](
		&http.Client{
			Transport: &http2.Transport{
				AllowHTTP: true,
				DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, network, addr)
				},
			},
		},
		server.URL+path,
		connect.WithCodec(connectjson.Codec{}),
	)
}

func TestConnectHandlerStreamsEvents(t *testing.T) {
	client := newConnectTestClient(t, DryRunner{})

	stream := client.CallBidiStream(context.Background())
	require.NoError(t, stream.Send(&rpc.RunPlanStreamRequest{
		Run: &rpc.RunPlanRequest{RunID: "conn-1", Plan: counterDocument()},
	}))
	require.NoError(t, stream.CloseRequest())

	var stepEvents int
	var doneSeen bool
	for {
		evt, err := stream.Receive()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		switch evt.Type {
		case "step":
			stepEvents++
			require.Equal(t, "conn-1", evt.RunID)
		case "done":
			doneSeen = true
		}
	}
	require.NoError(t, stream.CloseResponse())
	require.Equal(t, 3, stepEvents)
	require.True(t, doneSeen)
}

func TestConnectHandlerRequiresRunPayload(t *testing.T) {
	client := newConnectTestClient(t, DryRunner{})

	stream := client.CallBidiStream(context.Background())
	require.NoError(t, stream.Send(&rpc.RunPlanStreamRequest{Cancel: true}))
	require.NoError(t, stream.CloseRequest())

	_, err := stream.Receive()
	require.Error(t, err)
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
