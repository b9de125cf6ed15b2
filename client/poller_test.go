package client

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestPoller(server *fakeAPI, renderer Renderer, name string) *Poller {
	session := NewSession(server)
	if name != "" {
		_ = session.SetName(name)
	}
	return NewPoller(slog.Default(), server, session, NewCursorDetector(server), renderer, PollerOptions{})
}

func TestPoller_Defaults(t *testing.T) {
	req := require.New(t)
	p := newTestPoller(&fakeAPI{}, &RecordingRenderer{}, "alice")
	req.Equal(time.Second, p.interval)
	req.Equal(10, p.limit)
}

func TestPoller_RendersOnlyOnChange(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := &fakeAPI{}
	renderer := &RecordingRenderer{}
	p := newTestPoller(server, renderer, "alice")

	req.False(p.Poll(ctx))
	req.Empty(renderer.Frames())

	server.Append("bob", "hi alice")
	req.True(p.Poll(ctx))
	req.False(p.Poll(ctx))
	req.Len(renderer.Frames(), 1)
	req.Equal([]Line{{NickName: "bob", Text: "hi alice"}}, renderer.Last())

	server.Append("alice", "hi bob")
	req.True(p.Poll(ctx))
	req.Equal([]Line{
		{NickName: "bob", Text: "hi alice"},
		{NickName: "alice", Text: "hi bob", Own: true},
	}, renderer.Last())
}

func TestPoller_WaitsForNickname(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := &fakeAPI{}
	server.Append("bob", "anyone?")
	renderer := &RecordingRenderer{}
	p := newTestPoller(server, renderer, "")

	req.False(p.Poll(ctx))
	req.Zero(server.Lists())

	req.NoError(p.session.SetName("alice"))
	req.True(p.Poll(ctx))
	req.Len(renderer.Last(), 1)
}

func TestPoller_SendDoesNotRender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := &fakeAPI{}
	renderer := &RecordingRenderer{}
	p := newTestPoller(server, renderer, "alice")

	req.NoError(p.session.Send(ctx, "hello"))
	req.Empty(renderer.Frames())

	req.True(p.Poll(ctx))
	req.Equal([]Line{{NickName: "alice", Text: "hello", Own: true}}, renderer.Last())
}

func TestPoller_ToleratesFailures(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := &fakeAPI{}
	renderer := &RecordingRenderer{}
	p := newTestPoller(server, renderer, "alice")

	server.Append("bob", "one")
	server.Fail(fmt.Errorf("connection refused"))
	req.False(p.Poll(ctx))
	req.False(p.Poll(ctx))
	req.Empty(renderer.Frames())

	server.Fail(nil)
	req.True(p.Poll(ctx))
	req.Len(renderer.Last(), 1)
}

func TestPoller_RetriesAfterListFailure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := &fakeAPI{}
	renderer := &RecordingRenderer{}
	p := newTestPoller(server, renderer, "alice")

	server.Append("bob", "hello")
	server.FailLists(fmt.Errorf("read timeout"))
	req.False(p.Poll(ctx))
	req.Empty(renderer.Frames())

	req.True(p.Poll(ctx))
	req.Equal([]Line{{NickName: "bob", Text: "hello"}}, renderer.Last())
	req.False(p.Poll(ctx))
}

type flakyRenderer struct {
	RecordingRenderer
	failures int
}

func (f *flakyRenderer) Render(lines []Line) error {
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("broken pipe")
	}
	return f.RecordingRenderer.Render(lines)
}

func TestPoller_RetriesAfterRenderFailure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	for _, kind := range []DetectorKind{DetectCursor, DetectCount} {
		server := &fakeAPI{}
		renderer := &flakyRenderer{failures: 1}
		session := NewSession(server)
		req.NoError(session.SetName("alice"))
		detector, err := NewDetector(kind, server)
		req.NoError(err)
		p := NewPoller(slog.Default(), server, session, detector, renderer, PollerOptions{})

		server.Append("bob", "hello")
		req.False(p.Poll(ctx), kind)
		req.True(p.Poll(ctx), kind)
		req.Len(renderer.Frames(), 1, kind)
		req.False(p.Poll(ctx), kind)
	}
}

func TestPoller_CountModeListsOncePerChange(t *testing.T) {
	req := require.New(t)
	server := &fakeAPI{}
	renderer := &RecordingRenderer{}
	session := NewSession(server)
	req.NoError(session.SetName("alice"))
	p := NewPoller(slog.Default(), server, session, NewCountDetector(server), renderer, PollerOptions{})

	server.Append("bob", "hello")
	req.True(p.Poll(context.Background()))
	req.Equal(1, server.Lists())
	req.Equal([]Line{{NickName: "bob", Text: "hello"}}, renderer.Last())
}

func TestPoller_RenderLimit(t *testing.T) {
	req := require.New(t)
	server := &fakeAPI{}
	for i := 1; i <= 15; i++ {
		server.Append("bob", fmt.Sprintf("m%d", i))
	}
	renderer := &RecordingRenderer{}
	p := newTestPoller(server, renderer, "alice")

	req.True(p.Poll(context.Background()))
	frame := renderer.Last()
	req.Len(frame, 10)
	req.Equal("m6", frame[0].Text)
	req.Equal("m15", frame[9].Text)
}

func TestPoller_RunStopsWithContext(t *testing.T) {
	req := require.New(t)
	server := &fakeAPI{}
	server.Append("bob", "tick")
	renderer := &RecordingRenderer{}
	session := NewSession(server)
	req.NoError(session.SetName("alice"))
	p := NewPoller(slog.Default(), server, session, NewCursorDetector(server), renderer, PollerOptions{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	req.Eventually(func() bool { return len(renderer.Frames()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("poller did not stop")
	}
}
