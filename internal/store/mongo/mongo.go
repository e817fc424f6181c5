// Package mongo stores events and users in MongoDB using the collections
// the Node backend created ("events", "users"), so an existing database
// can be served as-is.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	appLog "roomcal/internal/log"
	"roomcal/internal/model"
	"roomcal/internal/store"
)

const (
	eventsCollection = "events"
	usersCollection  = "users"
)

// Options configures Connect.
type Options struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	OpTimeout      time.Duration

	// Location is the zone event dates are stored and read in. Nil means
	// UTC.
	Location *time.Location
}

// Store is a store.Store backed by a MongoDB database.
type Store struct {
	client    *mongo.Client
	events    *mongo.Collection
	users     *mongo.Collection
	opTimeout time.Duration
	loc       *time.Location
	indexes   *indexGate
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB and ensures the unique user indexes exist. The
// returned Store is usable even when the initial ping fails: the driver
// keeps reconnecting in the background, the indexes are created by the
// first Ping or InsertUser that reaches the server, and the error is
// returned so the caller can decide whether to keep serving.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 10 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	db := client.Database(opts.Database)
	s := &Store{
		client:    client,
		events:    db.Collection(eventsCollection),
		users:     db.Collection(usersCollection),
		opTimeout: opts.OpTimeout,
		loc:       opts.Location,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	s.indexes = &indexGate{create: s.ensureIndexes}

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		return s, fmt.Errorf("mongo ping: %w", err)
	}

	appLog.Info("mongo connected", "database", opts.Database)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}
	_, err = s.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "date", Value: 1}},
	})
	return err
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Ping checks connectivity against the primary. Until index creation has
// succeeded once, a successful ping also retries it.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return err
	}
	return s.indexes.ensure(ctx)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) FindEvents(ctx context.Context, filter store.EventFilter) ([]model.Event, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	q := bson.M{}
	if filter.RoomID != nil {
		q["roomId"] = *filter.RoomID
	}
	cur, err := s.events.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	out := make([]model.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel(s.loc))
	}
	return out, nil
}

func (s *Store) FindEvent(ctx context.Context, id string) (model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc eventDoc
	if err := s.events.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return model.Event{}, notFound("event", id, err)
	}
	return doc.toModel(s.loc), nil
}

func (s *Store) InsertEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc := eventDocFrom(ev, s.loc)
	doc.ID = primitive.NewObjectID()
	if _, err := s.events.InsertOne(ctx, doc); err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return doc.toModel(s.loc), nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, in model.EventInput) (model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}

	set := updateDoc(in, s.loc)
	if len(set) == 0 {
		return s.FindEvent(ctx, id)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc eventDoc
	err = s.events.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return model.Event{}, notFound("event", id, err)
	}
	return doc.toModel(s.loc), nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.events.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return model.User{}, notFound("user", email, err)
	}
	return doc.toModel(), nil
}

func (s *Store) InsertUser(ctx context.Context, u model.User) (model.User, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	// The unique email index must exist before any user is inserted.
	if err := s.indexes.ensure(ctx); err != nil {
		return model.User{}, err
	}

	doc := userDocFrom(u)
	doc.ID = primitive.NewObjectID()
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, fmt.Errorf("user %s: %w", u.Email, store.ErrDuplicate)
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.toModel(), nil
}

// indexGate runs create until it succeeds once.
type indexGate struct {
	mu     sync.Mutex
	ready  bool
	create func(context.Context) error
}

func (g *indexGate) ensure(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ready {
		return nil
	}
	if err := g.create(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	g.ready = true
	appLog.Info("mongo indexes ready")
	return nil
}

// notFound maps mongo.ErrNoDocuments to store.ErrNotFound.
func notFound(kind, key string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", kind, key, store.ErrNotFound)
	}
	return fmt.Errorf("find %s %s: %w", kind, key, err)
}
