package client

import (
	"context"
	"fmt"
	"testing"

	"poll-chat/domain"
	"poll-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestSession_StartsUnnamed(t *testing.T) {
	req := require.New(t)
	session := NewSession(&fakeAPI{})

	req.Equal(Unnamed, session.State())
	req.Empty(session.Name())
	req.ErrorIs(session.Send(context.Background(), "hello"), errors.ErrUnnamed)
}

func TestSession_BlankNameKeepsUnnamed(t *testing.T) {
	req := require.New(t)
	session := NewSession(&fakeAPI{})

	for _, name := range []string{"", "   ", "\t\n"} {
		req.ErrorIs(session.SetName(name), errors.ErrEmptyName)
		req.Equal(Unnamed, session.State())
	}
}

func TestSession_SendPostsUnderNickname(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := &fakeAPI{}
	session := NewSession(server)

	req.NoError(session.SetName("  alice "))
	req.Equal(Named, session.State())
	req.Equal("alice", session.Name())

	req.NoError(session.Send(ctx, "hi bob"))
	req.ErrorIs(session.Send(ctx, "   "), errors.ErrEmptyMessage)

	messages, err := server.List(ctx)
	req.NoError(err)
	req.Equal([]domain.Message{{Seq: 1, NickName: "alice", Text: "hi bob"}}, messages)
}

func TestSession_DuplicateNicknamesAreAllowed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := &fakeAPI{}
	first, second := NewSession(server), NewSession(server)

	req.NoError(first.SetName("alice"))
	req.NoError(second.SetName("alice"))
	req.NoError(first.Send(ctx, "one"))
	req.NoError(second.Send(ctx, "two"))

	messages, err := server.List(ctx)
	req.NoError(err)
	req.Len(messages, 2)
}

func TestSession_SendReturnsServerError(t *testing.T) {
	req := require.New(t)
	server := &fakeAPI{}
	server.Fail(fmt.Errorf("connection refused"))
	session := NewSession(server)
	req.NoError(session.SetName("alice"))

	req.ErrorContains(session.Send(context.Background(), "hi"), "connection refused")
}
