package mongo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/w-h-a/cervello/ticketer"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
)

type mongoTicketer struct {
	options    ticketer.Options
	collection *mongo.Collection
}

func (m *mongoTicketer) Create(ctx context.Context, ticket ticketer.Ticket) error {
	_, err := m.collection.InsertOne(ctx, ticket)
	return err
}

func (m *mongoTicketer) List(ctx context.Context) ([]ticketer.Ticket, error) {
	return m.find(ctx, bson.M{})
}

func (m *mongoTicketer) ListByUser(ctx context.Context, userId string) ([]ticketer.Ticket, error) {
	return m.find(ctx, bson.M{"userId": userId})
}

func (m *mongoTicketer) Get(ctx context.Context, ticketId string) (ticketer.Ticket, error) {
	var ticket ticketer.Ticket

	err := m.collection.FindOne(ctx, bson.M{"ticketId": ticketId}).Decode(&ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ticketer.Ticket{}, ticketer.ErrNotFound
	}

	if err != nil {
		return ticketer.Ticket{}, err
	}

	return ticket, nil
}

func (m *mongoTicketer) find(ctx context.Context, filter bson.M) ([]ticketer.Ticket, error) {
	opts := mongoopts.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tickets := []ticketer.Ticket{}

	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (m *mongoTicketer) configure(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ticketId", Value: 1}},
			Options: mongoopts.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	})
	return err
}

func NewTicketer(opts ...ticketer.Option) ticketer.Ticketer {
	options := ticketer.NewOptions(opts...)

	if len(options.Location) == 0 {
		panic("missing location for mongo ticketer")
	}

	ctx, cancel := context.WithTimeout(options.Context, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongoopts.Client().ApplyURI(options.Location))
	if err != nil {
		detail := "failed to connect with mongo ticketer"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	if err := client.Ping(ctx, nil); err != nil {
		detail := "failed to ping with mongo ticketer"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	m, err := newTicketer(ctx, client.Database(options.Database).Collection(options.Collection), options)
	if err != nil {
		detail := "failed to create mongo ticketer indexes"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return m
}

// newTicketer wraps a collection and ensures its indexes.
func newTicketer(ctx context.Context, collection *mongo.Collection, options ticketer.Options) (*mongoTicketer, error) {
	m := &mongoTicketer{
		options:    options,
		collection: collection,
	}

	if err := m.configure(ctx); err != nil {
		return nil, err
	}

	return m, nil
}
