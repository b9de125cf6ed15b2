package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"poll-chat/domain"
	apperrors "poll-chat/errors"
	"poll-chat/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChatService_Append_ReadsBackAfterWrite(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRepository := mocks.NewMockIMessageRepository(ctrl)

	cmd := domain.PostMessageCommand{NickName: "bob", Text: "yo"}
	stored := []domain.Message{
		{Seq: 1, NickName: "alice", Text: "hi"},
		{Seq: 2, NickName: "bob", Text: "yo"},
	}
	gomock.InOrder(
		mockRepository.EXPECT().Append(gomock.Any(), cmd).Return(stored[1], nil),
		mockRepository.EXPECT().ListAll(gomock.Any()).Return(stored, nil),
	)

	service := NewChatService(log, mockRepository)
	messages, err := service.Append(ctx, cmd)
	req.NoError(err)
	req.Equal(stored, messages)
}

func TestChatService_Append_PersistenceFailureSkipsReadBack(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepository := mocks.NewMockIMessageRepository(ctrl)

	mockRepository.EXPECT().Append(gomock.Any(), gomock.Any()).
		Return(domain.Message{}, apperrors.Persistence("insert", fmt.Errorf("store unreachable")))
	mockRepository.EXPECT().ListAll(gomock.Any()).Times(0)

	service := NewChatService(slog.Default(), mockRepository)
	messages, err := service.Append(context.Background(), domain.PostMessageCommand{NickName: "alice", Text: "hi"})
	req.ErrorIs(err, apperrors.ErrPersistence)
	req.Nil(messages)
}

func TestChatService_Append_AcceptsEmptyFields(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepository := mocks.NewMockIMessageRepository(ctrl)

	empty := domain.PostMessageCommand{}
	mockRepository.EXPECT().Append(gomock.Any(), empty).Return(domain.Message{Seq: 1}, nil)
	mockRepository.EXPECT().ListAll(gomock.Any()).Return([]domain.Message{{Seq: 1}}, nil)

	service := NewChatService(slog.Default(), mockRepository)
	messages, err := service.Append(context.Background(), empty)
	req.NoError(err)
	req.Len(messages, 1)
}

func TestChatService_List_PropagatesPersistenceError(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepository := mocks.NewMockIMessageRepository(ctrl)

	mockRepository.EXPECT().ListAll(gomock.Any()).
		Return(nil, apperrors.Persistence("find", fmt.Errorf("timeout")))

	service := NewChatService(slog.Default(), mockRepository)
	_, err := service.List(context.Background())
	req.ErrorIs(err, apperrors.ErrPersistence)
}

func TestChatService_Since(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepository := mocks.NewMockIMessageRepository(ctrl)

	mockRepository.EXPECT().ListAfter(gomock.Any(), domain.Cursor(2)).
		Return([]domain.Message{{Seq: 3}, {Seq: 5}}, nil)
	mockRepository.EXPECT().ListAfter(gomock.Any(), domain.Cursor(5)).
		Return([]domain.Message{}, nil)

	service := NewChatService(slog.Default(), mockRepository)

	page, err := service.Since(context.Background(), 2)
	req.NoError(err)
	req.Len(page.Messages, 2)
	req.Equal(domain.Cursor(5), page.Cursor)

	page, err = service.Since(context.Background(), 5)
	req.NoError(err)
	req.Empty(page.Messages)
	req.Equal(domain.Cursor(5), page.Cursor)
}
