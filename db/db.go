package db

import (
	"context"
	"time"

	"merx/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo bundles the client and the three collections the storefront uses.
// The database is the single source of truth: nothing is cached in memory
// across requests.
type Mongo struct {
	Client   *mongo.Client
	Users    *mongo.Collection
	Products *mongo.Collection
	Orders   *mongo.Collection
}

func Connect(ctx context.Context, cfg *config.Config) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	database := client.Database(cfg.DBName)
	return &Mongo{
		Client:   client,
		Users:    database.Collection("users"),
		Products: database.Collection("products"),
		Orders:   database.Collection("orders"),
	}, nil
}

// EnsureIndexes creates the uniqueness constraints the data model relies on:
// one account per email, and a sparse unique index so a Google identity links
// to at most one account.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.Users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "userid", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = m.Products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "productid", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = m.Orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderid", Value: 1}}},
		{Keys: bson.D{{Key: "userid", Value: 1}}},
	})
	return err
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
