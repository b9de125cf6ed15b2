package repositories

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"poll-chat/domain"
	apperrors "poll-chat/errors"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const redisMessagesKey = "chat:messages"

type redisMessage struct {
	ID       string `json:"id"`
	NickName string `json:"nickName"`
	Message  string `json:"message"`
	At       int64  `json:"at"`
}

// RedisMessageRepository keeps the log in a single Redis list.
// Entries are never removed, so a message's sequence is its list position plus one,
// and the length returned by RPUSH is the sequence of the pushed entry.
type RedisMessageRepository struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisMessageRepository(ctx context.Context, redisURL string, log *slog.Logger) (*RedisMessageRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, apperrors.Persistence("parse redis url", err)
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Persistence("ping redis", err)
	}
	return &RedisMessageRepository{client: client, log: log}, nil
}

func (s *RedisMessageRepository) Append(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	record := redisMessage{
		ID:       ulid.Make().String(),
		NickName: cmd.NickName,
		Message:  cmd.Text,
		At:       time.Now().UTC().UnixNano(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return domain.Message{}, apperrors.Persistence("encode message", err)
	}
	length, err := s.client.RPush(ctx, redisMessagesKey, data).Result()
	if err != nil {
		return domain.Message{}, apperrors.Persistence("push message", err)
	}
	message := fromRedisMessage(record, domain.Cursor(length))
	s.log.Debug("Message stored", "seq", message.Seq, "id", message.ID)
	return message, nil
}

func (s *RedisMessageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	return s.ListAfter(ctx, 0)
}

// ListAfter reads from list index cursor onwards: index i holds sequence i+1.
func (s *RedisMessageRepository) ListAfter(ctx context.Context, cursor domain.Cursor) ([]domain.Message, error) {
	results, err := s.client.LRange(ctx, redisMessagesKey, int64(cursor), -1).Result()
	if err != nil {
		return nil, apperrors.Persistence("range messages", err)
	}
	messages := make([]domain.Message, 0, len(results))
	for i, data := range results {
		var record redisMessage
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, apperrors.Persistence("decode message", err)
		}
		messages = append(messages, fromRedisMessage(record, cursor+domain.Cursor(i)+1))
	}
	return messages, nil
}

func (s *RedisMessageRepository) Head(ctx context.Context) (domain.Head, error) {
	length, err := s.client.LLen(ctx, redisMessagesKey).Result()
	if err != nil {
		return domain.Head{}, apperrors.Persistence("read head", err)
	}
	return domain.Head{Cursor: domain.Cursor(length), Count: int(length)}, nil
}

func (s *RedisMessageRepository) Close() error {
	return s.client.Close()
}

func fromRedisMessage(record redisMessage, seq domain.Cursor) domain.Message {
	return domain.Message{
		ID:       record.ID,
		Seq:      seq,
		NickName: record.NickName,
		Text:     record.Message,
		At:       time.Unix(0, record.At).UTC(),
	}
}
