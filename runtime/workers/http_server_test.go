package workers

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPServerWorker_ServesUntilCanceled(t *testing.T) {
	req := require.New(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	worker := NewHTTPServerWorker(slog.Default(), "127.0.0.1:0", handler, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	var addr net.Addr
	select {
	case addr = <-worker.Ready():
	case <-time.After(time.Second):
		req.FailNow("server did not start")
	}

	resp, err := http.Get("http://" + addr.String() + "/ping")
	req.NoError(err)
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	_ = resp.Body.Close()
	req.Equal("pong", string(body))

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("server did not shut down")
	}
}

func TestHTTPServerWorker_ListenFailure(t *testing.T) {
	req := require.New(t)
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer taken.Close()

	worker := NewHTTPServerWorker(slog.Default(), taken.Addr().String(), http.NotFoundHandler(), time.Second)
	req.ErrorContains(worker.Run(context.Background()), "failed to listen")
}
