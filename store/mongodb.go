package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/loaa/reading-console/models"
)

// Mongo is the remote persistence adapter. Collections are keyed by the
// natural ids (username, book id, event uuid), so presence checks during
// migration are plain _id lookups. Change streams drive the snapshot
// subscriptions: on any change the whole collection is reloaded and handed
// to the callback (full replace, last writer wins).
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	log    zerolog.Logger
}

func NewMongo(ctx context.Context, uri, dbName string, log zerolog.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, storageErr("connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, storageErr("ping", err)
	}
	log.Info().Str("db", dbName).Msg("connected to mongodb")
	return &Mongo{
		client: client,
		db:     client.Database(dbName),
		log:    log,
	}, nil
}

func (m *Mongo) users() *mongo.Collection  { return m.db.Collection("users") }
func (m *Mongo) books() *mongo.Collection  { return m.db.Collection("books") }
func (m *Mongo) events() *mongo.Collection { return m.db.Collection("events") }

func (m *Mongo) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) LoadUsers(ctx context.Context) (map[string]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	cur, err := m.users().Find(ctx, bson.M{})
	if err != nil {
		return nil, storageErr("load users", err)
	}
	defer cur.Close(ctx)
	var list []models.User
	if err := cur.All(ctx, &list); err != nil {
		return nil, storageErr("load users", err)
	}
	users := make(map[string]models.User, len(list))
	for _, u := range list {
		users[u.Username] = u
	}
	return users, nil
}

func (m *Mongo) LoadBooks(ctx context.Context) ([]models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	cur, err := m.books().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, storageErr("load books", err)
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, storageErr("load books", err)
	}
	return books, nil
}

func (m *Mongo) LoadEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.M{"timestamp": -1}).SetLimit(int64(limit))
	cur, err := m.events().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storageErr("load events", err)
	}
	defer cur.Close(ctx)
	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, storageErr("load events", err)
	}
	return events, nil
}

func (m *Mongo) SaveUser(ctx context.Context, u models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := m.users().ReplaceOne(ctx, bson.M{"_id": u.Username}, u, options.Replace().SetUpsert(true))
	return storageErr("save user", err)
}

func (m *Mongo) DeleteUser(ctx context.Context, username string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := m.users().DeleteOne(ctx, bson.M{"_id": username})
	return storageErr("delete user", err)
}

func (m *Mongo) SaveBook(ctx context.Context, b models.Book) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := m.books().ReplaceOne(ctx, bson.M{"_id": b.ID}, b, options.Replace().SetUpsert(true))
	return storageErr("save book", err)
}

func (m *Mongo) DeleteBook(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := m.books().DeleteOne(ctx, bson.M{"_id": id})
	return storageErr("delete book", err)
}

func (m *Mongo) AppendEvent(ctx context.Context, e models.Event) (models.Event, error) {
	e = models.NormalizeEvent(e, time.Now())
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := m.events().InsertOne(ctx, e)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return models.Event{}, storageErr("append event", err)
	}
	return e, nil
}

// SubscribeBooks reloads and pushes the full catalog on every change.
func (m *Mongo) SubscribeBooks(ctx context.Context, fn func([]models.Book)) error {
	return m.watch(ctx, m.books(), "books", func(cbCtx context.Context) {
		books, err := m.LoadBooks(cbCtx)
		if err != nil {
			m.log.Warn().Err(err).Msg("books snapshot reload failed")
			return
		}
		fn(books)
	})
}

// SubscribeEvents reloads and pushes the recent-event window on every change.
func (m *Mongo) SubscribeEvents(ctx context.Context, fn func([]models.Event)) error {
	return m.watch(ctx, m.events(), "events", func(cbCtx context.Context) {
		events, err := m.LoadEvents(cbCtx, DefaultEventLimit)
		if err != nil {
			m.log.Warn().Err(err).Msg("events snapshot reload failed")
			return
		}
		fn(events)
	})
}

// SubscribeUsers reloads and pushes the full directory on every change.
func (m *Mongo) SubscribeUsers(ctx context.Context, fn func(map[string]models.User)) error {
	return m.watch(ctx, m.users(), "users", func(cbCtx context.Context) {
		users, err := m.LoadUsers(cbCtx)
		if err != nil {
			m.log.Warn().Err(err).Msg("users snapshot reload failed")
			return
		}
		fn(users)
	})
}

func (m *Mongo) watch(ctx context.Context, coll *mongo.Collection, name string, reload func(context.Context)) error {
	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return storageErr("watch "+name, err)
	}
	go func() {
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			reload(ctx)
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			m.log.Warn().Err(err).Str("collection", name).Msg("change stream closed")
		}
	}()
	return nil
}
