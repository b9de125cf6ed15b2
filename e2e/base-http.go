package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"poll-chat/api"
	"poll-chat/client"
	"poll-chat/repositories"
	"poll-chat/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config     Config
	server     *httptest.Server
	repository *repositories.MessageRepository
}

// SetupSuite loads the environment configuration and, unless a server URL
// is given, starts a badger-backed server in-process.
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL != "" {
		return
	}

	log := logs.GetLoggerFromLevel(slog.LevelWarn)
	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.repository, err = repositories.NewMessageRepository(db, log)
	s.Require().NoError(err)
	s.server = httptest.NewServer(api.NewRouter(log, services.NewChatService(log, s.repository), api.Options{}))
	s.Config.ServerURL = s.server.URL
	s.T().Cleanup(func() { _ = db.Close() })
}

func (s *BaseHTTPSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.repository != nil {
		_ = s.repository.Close()
	}
}

// Participant is one chat user: a named session and its poller.
type Participant struct {
	Session  *client.Session
	Poller   *client.Poller
	Renderer *client.RecordingRenderer
}

// Join builds a client for name, with logging, colors and JSON debugging.
func (s *BaseHTTPSuite) Join(name string) *Participant {
	header := fmt.Sprintf("  ====== %s joins ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t := s.T()
	t.Log(header)

	httpClient := &http.Client{Timeout: 5 * time.Second, Transport: &loggingTransport{t: t, debugJSON: s.Config.DebugJSON, name: name}}
	c := client.NewClient(s.Config.ServerURL, httpClient, slog.Default())
	session := client.NewSession(c)
	s.Require().NoError(session.SetName(name))

	renderer := &client.RecordingRenderer{}
	poller := client.NewPoller(slog.Default(), c, session, client.NewCursorDetector(c), renderer, client.PollerOptions{
		Interval: time.Duration(s.Config.PollInterval) * time.Millisecond,
	})
	return &Participant{Session: session, Poller: poller, Renderer: renderer}
}

// Listen runs the participant's poller until the test ends.
// Call it from the test itself, not from a step: steps end earlier.
func (s *BaseHTTPSuite) Listen(p *Participant) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Poller.Run(ctx)
	}()
	s.T().Cleanup(func() {
		cancel()
		<-done
	})
}

// loggingTransport logs every call, and full bodies if E2E_DEBUG_JSON is enabled.
type loggingTransport struct {
	t         *testing.T
	debugJSON bool
	name      string
}

func (l *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var reqBody []byte
	if l.debugJSON && req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	start := time.Now()
	resp, err := http.DefaultTransport.RoundTrip(req)

	logBuilder := strings.Builder{}
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	fmt.Fprintf(&logBuilder, "[%s] %s %s [%d] in %v", l.name, req.Method, req.URL.Path, status, time.Since(start))

	if l.debugJSON {
		if len(reqBody) > 0 {
			fmt.Fprintln(&logBuilder, "\nREQUEST:")
			fmt.Fprintln(&logBuilder, string(reqBody))
		}
		if err != nil {
			fmt.Fprintln(&logBuilder, "ERROR:", err)
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			resp.Body = io.NopCloser(bytes.NewReader(respBody))
			if readErr == nil {
				fmt.Fprintln(&logBuilder, "\nRESPONSE:")
				fmt.Fprintln(&logBuilder, string(respBody))
			}
		}
	}
	l.t.Log(logBuilder.String())
	return resp, err
}
