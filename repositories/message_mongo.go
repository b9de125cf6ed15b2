package repositories

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"poll-chat/domain"
	apperrors "poll-chat/errors"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoMessages  = "messages"
	mongoCounters  = "counters"
	mongoCounterID = "messages"
)

// MongoURI composes a connection string from its parts.
// Credentials are left out when user is empty.
func MongoURI(user, password, host string, port int, database string) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + database,
	}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	return u.String()
}

type mongoMessage struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Seq      int64              `bson:"seq"`
	NickName string             `bson:"nickName"`
	Message  string             `bson:"message"`
	At       time.Time          `bson:"at"`
}

type mongoCounter struct {
	Value int64 `bson:"value"`
}

// MongoMessageRepository keeps the log in a flat "messages" collection.
// Sequence numbers come from an atomic $inc on the "counters" collection.
type MongoMessageRepository struct {
	client   *mongo.Client
	messages *mongo.Collection
	counters *mongo.Collection
	log      *slog.Logger
	// a single server process owns the write path; see DESIGN.md
	mu sync.Mutex
}

func NewMongoMessageRepository(ctx context.Context, uri, database string, log *slog.Logger) (*MongoMessageRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.Persistence("connect mongo", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.Persistence("ping mongo", err)
	}
	db := client.Database(database)
	repository := &MongoMessageRepository{
		client:   client,
		messages: db.Collection(mongoMessages),
		counters: db.Collection(mongoCounters),
		log:      log,
	}
	_, err = repository.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.Persistence("create seq index", err)
	}
	return repository, nil
}

func (m *MongoMessageRepository) nextSeq(ctx context.Context) (int64, error) {
	var counter mongoCounter
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": mongoCounterID},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Value, err
}

func (m *MongoMessageRepository) Append(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq, err := m.nextSeq(ctx)
	if err != nil {
		return domain.Message{}, apperrors.Persistence("next sequence", err)
	}
	doc := mongoMessage{
		Seq:      seq,
		NickName: cmd.NickName,
		Message:  cmd.Text,
		At:       time.Now().UTC().Truncate(time.Millisecond),
	}
	result, err := m.messages.InsertOne(ctx, doc)
	if err != nil {
		return domain.Message{}, apperrors.Persistence("insert message", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		doc.ID = id
	}
	m.log.Debug("Message stored", "seq", seq, "id", doc.ID.Hex())
	return fromMongoMessage(doc), nil
}

func (m *MongoMessageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoMessageRepository) ListAfter(ctx context.Context, cursor domain.Cursor) ([]domain.Message, error) {
	return m.find(ctx, bson.M{"seq": bson.M{"$gt": int64(cursor)}})
}

func (m *MongoMessageRepository) find(ctx context.Context, filter bson.M) ([]domain.Message, error) {
	cur, err := m.messages.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, apperrors.Persistence("find messages", err)
	}
	var docs []mongoMessage
	if err = cur.All(ctx, &docs); err != nil {
		return nil, apperrors.Persistence("decode messages", err)
	}
	return lo.Map(docs, func(doc mongoMessage, _ int) domain.Message {
		return fromMongoMessage(doc)
	}), nil
}

func (m *MongoMessageRepository) Head(ctx context.Context) (domain.Head, error) {
	count, err := m.messages.CountDocuments(ctx, bson.M{})
	if err != nil {
		return domain.Head{}, apperrors.Persistence("count messages", err)
	}
	var newest mongoMessage
	err = m.messages.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})).Decode(&newest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Head{}, nil
	}
	if err != nil {
		return domain.Head{}, apperrors.Persistence("read head", err)
	}
	return domain.Head{Cursor: domain.Cursor(newest.Seq), Count: int(count)}, nil
}

func (m *MongoMessageRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func fromMongoMessage(doc mongoMessage) domain.Message {
	return domain.Message{
		ID:       doc.ID.Hex(),
		Seq:      domain.Cursor(doc.Seq),
		NickName: doc.NickName,
		Text:     doc.Message,
		At:       doc.At.UTC(),
	}
}
