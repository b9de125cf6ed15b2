//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"poll-chat/domain"
	apperrors "poll-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// IMessageRepository is the append-only message log.
// Implementations assign ID, Seq and At on Append and return messages in insertion order.
type IMessageRepository interface {
	Append(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	ListAll(ctx context.Context) ([]domain.Message, error)
	ListAfter(ctx context.Context, cursor domain.Cursor) ([]domain.Message, error)
	Head(ctx context.Context) (domain.Head, error)
	Close() error
}

const (
	// MessagePrefix starts every message key in BadgerDB.
	MessagePrefix     = "msg:"
	sequenceKey       = "seq:messages"
	sequenceBandwidth = 100
)

type MessageRepository struct {
	db     *badger.DB
	seq    *badger.Sequence
	log    *slog.Logger
	ownsDB bool
	// serializes sequence allocation with the write so readers never see seq N+1 before N
	mu sync.Mutex
}

type diskMessage struct {
	ID       string `json:"id"`
	Seq      uint64 `json:"seq"`
	NickName string `json:"nickName"`
	Message  string `json:"message"`
	At       int64  `json:"at"`
}

// NewMessageRepository builds a repository on an already opened BadgerDB.
// The caller keeps ownership of db.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, apperrors.Persistence("open sequence", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

// OpenMessageRepository opens BadgerDB at path and returns a repository owning it.
func OpenMessageRepository(path string, log *slog.Logger) (*MessageRepository, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, apperrors.Persistence("open badger", err)
	}
	repository, err := NewMessageRepository(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	repository.ownsDB = true
	return repository, nil
}

// messageKey is formatted as "msg:{seq_padded}" so that a forward prefix scan
// walks the log in insertion order (19-digit zero padding keeps lexicographical
// order equal to numeric order).
func messageKey(seq domain.Cursor) []byte {
	return []byte(fmt.Sprintf("%s%019d", MessagePrefix, uint64(seq)))
}

// Append persists a message under the next sequence number.
func (m *MessageRepository) Append(_ context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, apperrors.Persistence("next sequence", err)
	}
	message := domain.Message{
		ID:       uuid.NewString(),
		Seq:      domain.Cursor(next + 1),
		NickName: cmd.NickName,
		Text:     cmd.Text,
		At:       time.Now().UTC(),
	}
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, apperrors.Persistence("encode message", err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.Seq), bytes)
	})
	if err != nil {
		return domain.Message{}, apperrors.Persistence("store message", err)
	}
	m.log.Debug("Message stored", "seq", message.Seq, "id", message.ID)
	return message, nil
}

func (m *MessageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	return m.ListAfter(ctx, 0)
}

// ListAfter scans the log forward from the key following cursor.
func (m *MessageRepository) ListAfter(_ context.Context, cursor domain.Cursor) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(MessagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(messageKey(cursor + 1)); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				message, err := DecodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Persistence("list messages", err)
	}
	return messages, nil
}

// Head counts keys without fetching values; the newest key is the last one visited.
func (m *MessageRepository) Head(_ context.Context) (domain.Head, error) {
	var head domain.Head
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(MessagePrefix)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		var last []byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			head.Count++
			last = it.Item().KeyCopy(last)
		}
		if last == nil {
			return nil
		}
		var seq uint64
		if _, err := fmt.Sscanf(string(last[len(prefix):]), "%d", &seq); err != nil {
			return err
		}
		head.Cursor = domain.Cursor(seq)
		return nil
	})
	if err != nil {
		return domain.Head{}, apperrors.Persistence("read head", err)
	}
	return head, nil
}

// Close releases the leased sequence range, then the database when the repository owns it.
func (m *MessageRepository) Close() error {
	err := m.seq.Release()
	if m.ownsDB {
		if closeErr := m.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:       message.ID,
		Seq:      uint64(message.Seq),
		NickName: message.NickName,
		Message:  message.Text,
		At:       message.At.UnixNano(),
	}
}

// DecodeMessage reads a message value as stored in BadgerDB.
func DecodeMessage(value []byte) (domain.Message, error) {
	var dm diskMessage
	if err := json.Unmarshal(value, &dm); err != nil {
		return domain.Message{}, err
	}
	return toMessage(dm), nil
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:       dm.ID,
		Seq:      domain.Cursor(dm.Seq),
		NickName: dm.NickName,
		Text:     dm.Message,
		At:       time.Unix(0, dm.At).UTC(),
	}
}
