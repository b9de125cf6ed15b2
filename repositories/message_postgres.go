package repositories

import (
	"context"
	"log/slog"
	"time"

	"poll-chat/domain"
	apperrors "poll-chat/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createMessagesTable = `
	CREATE TABLE IF NOT EXISTS messages (
		seq       BIGSERIAL PRIMARY KEY,
		id        UUID NOT NULL,
		nick_name TEXT NOT NULL,
		message   TEXT NOT NULL,
		at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// appendLockID is the advisory lock key taken by every insert. Holding it until
// commit keeps BIGSERIAL values visible in allocation order.
const appendLockID = 0x706f6c6c

type PostgresMessageRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresMessageRepository connects a pool and creates the messages table if needed.
func NewPostgresMessageRepository(ctx context.Context, databaseURL string, log *slog.Logger) (*PostgresMessageRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, apperrors.Persistence("connect postgres", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.Persistence("ping postgres", err)
	}
	if _, err = pool.Exec(ctx, createMessagesTable); err != nil {
		pool.Close()
		return nil, apperrors.Persistence("create messages table", err)
	}
	return &PostgresMessageRepository{pool: pool, log: log}, nil
}

func (p *PostgresMessageRepository) Append(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	id := uuid.New()
	message := domain.Message{
		ID:       id.String(),
		NickName: cmd.NickName,
		Text:     cmd.Text,
		At:       time.Now().UTC().Truncate(time.Microsecond),
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.Message{}, apperrors.Persistence("begin append", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockID); err != nil {
		return domain.Message{}, apperrors.Persistence("lock append", err)
	}
	var seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, nick_name, message, at)
		VALUES ($1, $2, $3, $4)
		RETURNING seq
	`, id, message.NickName, message.Text, message.At).Scan(&seq)
	if err != nil {
		return domain.Message{}, apperrors.Persistence("insert message", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return domain.Message{}, apperrors.Persistence("commit append", err)
	}
	message.Seq = domain.Cursor(seq)
	p.log.Debug("Message stored", "seq", message.Seq, "id", message.ID)
	return message, nil
}

func (p *PostgresMessageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	return p.ListAfter(ctx, 0)
}

func (p *PostgresMessageRepository) ListAfter(ctx context.Context, cursor domain.Cursor) ([]domain.Message, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT seq, id::text, nick_name, message, at
		FROM messages WHERE seq > $1
		ORDER BY seq
	`, int64(cursor))
	if err != nil {
		return nil, apperrors.Persistence("query messages", err)
	}
	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Message, error) {
		var (
			message domain.Message
			seq     int64
		)
		err := row.Scan(&seq, &message.ID, &message.NickName, &message.Text, &message.At)
		message.Seq = domain.Cursor(seq)
		message.At = message.At.UTC()
		return message, err
	})
	if err != nil {
		return nil, apperrors.Persistence("scan messages", err)
	}
	return messages, nil
}

func (p *PostgresMessageRepository) Head(ctx context.Context) (domain.Head, error) {
	var seq, count int64
	err := p.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0), COUNT(*) FROM messages`).Scan(&seq, &count)
	if err != nil {
		return domain.Head{}, apperrors.Persistence("read head", err)
	}
	return domain.Head{Cursor: domain.Cursor(seq), Count: int(count)}, nil
}

func (p *PostgresMessageRepository) Close() error {
	p.pool.Close()
	return nil
}
