package services

import (
	"context"
	"log/slog"

	"poll-chat/domain"
	"poll-chat/observability"
	"poll-chat/repositories"
)

type IChatService interface {
	List(ctx context.Context) ([]domain.Message, error)
	Append(ctx context.Context, cmd domain.PostMessageCommand) ([]domain.Message, error)
	Since(ctx context.Context, cursor domain.Cursor) (domain.Page, error)
	Head(ctx context.Context) (domain.Head, error)
}

// ChatService exposes the message log. It performs no input validation:
// every command is appended as received.
type ChatService struct {
	log        *slog.Logger
	repository repositories.IMessageRepository
}

func NewChatService(log *slog.Logger, repository repositories.IMessageRepository) *ChatService {
	return &ChatService{log: log, repository: repository}
}

func (s *ChatService) List(ctx context.Context) ([]domain.Message, error) {
	messages, err := s.repository.ListAll(ctx)
	if err != nil {
		observability.StoreErrors.WithLabelValues("list").Inc()
		return nil, err
	}
	return messages, nil
}

// Append stores the message, then reads the whole log back.
// The read-back only starts once the append has returned, so the result always
// contains the new message; it may also contain writes from other sessions.
func (s *ChatService) Append(ctx context.Context, cmd domain.PostMessageCommand) ([]domain.Message, error) {
	message, err := s.repository.Append(ctx, cmd)
	if err != nil {
		observability.StoreErrors.WithLabelValues("append").Inc()
		s.log.Error("Append failed", "nickName", cmd.NickName, "error", err)
		return nil, err
	}
	observability.MessagesAppended.Inc()
	s.log.Debug("Message appended", "seq", message.Seq, "nickName", message.NickName)
	return s.List(ctx)
}

// Since returns the messages following cursor and the cursor to use next time.
// When nothing is new the returned cursor equals the one given.
func (s *ChatService) Since(ctx context.Context, cursor domain.Cursor) (domain.Page, error) {
	messages, err := s.repository.ListAfter(ctx, cursor)
	if err != nil {
		observability.StoreErrors.WithLabelValues("since").Inc()
		return domain.Page{}, err
	}
	return domain.Page{Messages: messages, Cursor: domain.Last(messages, cursor)}, nil
}

func (s *ChatService) Head(ctx context.Context) (domain.Head, error) {
	head, err := s.repository.Head(ctx)
	if err != nil {
		observability.StoreErrors.WithLabelValues("head").Inc()
		return domain.Head{}, err
	}
	return head, nil
}
