package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"poll-chat/api"
	"poll-chat/domain"
	apperrors "poll-chat/errors"
	"poll-chat/mocks"
	"poll-chat/repositories"
	"poll-chat/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newChatServer(t *testing.T) *httptest.Server {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	repository, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	server := httptest.NewServer(api.NewRouter(log, services.NewChatService(log, repository), api.Options{}))
	t.Cleanup(func() {
		server.Close()
		_ = repository.Close()
		_ = db.Close()
	})
	return server
}

// fakeAPI serves a log held in memory. Replace swaps the whole log,
// which a real server never does but the detectors must cope with.
type fakeAPI struct {
	mu       sync.Mutex
	messages []domain.Message
	cursor   domain.Cursor
	err      error
	listErrs []error
	lists    int
}

func (f *fakeAPI) Append(nickName, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor++
	f.messages = append(f.messages, domain.Message{Seq: f.cursor, NickName: nickName, Text: text})
}

func (f *fakeAPI) Replace(messages ...domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor++
	f.messages = messages
}

func (f *fakeAPI) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// FailLists makes the next List calls fail with errs, one each.
func (f *fakeAPI) FailLists(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErrs = append(f.listErrs, errs...)
}

func (f *fakeAPI) Lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeAPI) List(_ context.Context) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		return nil, err
	}
	return append([]domain.Message(nil), f.messages...), nil
}

func (f *fakeAPI) Head(_ context.Context) (domain.Head, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Head{}, f.err
	}
	return domain.Head{Cursor: f.cursor, Count: len(f.messages)}, nil
}

func (f *fakeAPI) Post(_ context.Context, cmd domain.PostMessageCommand) ([]domain.Message, error) {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.Append(cmd.NickName, cmd.Text)
	return f.List(context.Background())
}

func TestClient_RoundTrip(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := newChatServer(t)
	c := NewClient(server.URL+"/", nil, slog.Default())

	messages, err := c.List(ctx)
	req.NoError(err)
	req.Empty(messages)

	head, err := c.Head(ctx)
	req.NoError(err)
	req.Equal(domain.Head{}, head)

	messages, err = c.Post(ctx, domain.PostMessageCommand{NickName: "alice", Text: "hi"})
	req.NoError(err)
	req.Equal([]domain.Message{{NickName: "alice", Text: "hi"}}, messages)

	_, err = c.Post(ctx, domain.PostMessageCommand{NickName: "bob", Text: "yo"})
	req.NoError(err)

	head, err = c.Head(ctx)
	req.NoError(err)
	req.Equal(2, head.Count)

	page, err := c.Since(ctx, 0)
	req.NoError(err)
	req.Len(page.Messages, 2)
	req.Equal(head.Cursor, page.Cursor)

	page, err = c.Since(ctx, page.Messages[0].Seq)
	req.NoError(err)
	req.Len(page.Messages, 1)
	req.Equal("bob", page.Messages[0].NickName)
	req.Equal("yo", page.Messages[0].Text)
	req.NotEmpty(page.Messages[0].ID)
}

func TestClient_DecodesErrorEnvelope(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	repository.EXPECT().ListAll(gomock.Any()).Return(nil, apperrors.Persistence("find", fmt.Errorf("timeout")))

	log := slog.Default()
	server := httptest.NewServer(api.NewRouter(log, services.NewChatService(log, repository), api.Options{}))
	defer server.Close()

	_, err := NewClient(server.URL, nil, log).List(context.Background())
	var apiErr *APIError
	req.ErrorAs(err, &apiErr)
	req.Equal(http.StatusInternalServerError, apiErr.Status)
	req.Equal(apperrors.KindPersistence, apiErr.Kind)
	req.Equal("message store unavailable", apiErr.Message)
}

func TestClient_NonEnvelopeError(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewClient(server.URL, nil, slog.Default()).Head(context.Background())
	var apiErr *APIError
	req.ErrorAs(err, &apiErr)
	req.Equal(http.StatusNotFound, apiErr.Status)
	req.Equal(apperrors.KindInternal, apiErr.Kind)
	req.Equal("Not Found", apiErr.Message)
}

func TestClient_Unreachable(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, nil, slog.Default()).List(context.Background())
	req.Error(err)
	var apiErr *APIError
	req.NotErrorAs(err, &apiErr)
}
