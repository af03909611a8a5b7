// Package database owns the MongoDB client and the collection handles used by
// the repositories.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/usgears/storefront/config"
)

// Collection names.
const (
	Products      = "products"
	Orders        = "orders"
	Contacts      = "contacts"
	Uploads       = "uploads"
	PaymentProofs = "paymentProofs"
	Users         = "users"
	FailedJobs    = "failed_jobs"
	AppLogs       = "app_logs"
)

var (
	Client *mongo.Client
	DB     *mongo.Database
)

// ErrNotConnected is returned by helpers called before Connect.
var ErrNotConnected = errors.New("database: not connected")

// Connect dials MONGODB_URI, pings the primary and selects MONGODB_DB.
func Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(config.MongoURI()).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50).
		SetMaxConnIdleTime(2 * time.Minute)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("database: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("database: ping: %w", err)
	}

	Client = client
	DB = client.Database(config.MongoDB())
	return nil
}

// Ping reports whether the server is reachable.
func Ping(ctx context.Context) error {
	if Client == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return Client.Ping(ctx, readpref.Primary())
}

// Collection returns a handle on the selected database. It panics before
// Connect, which is a wiring bug rather than a runtime condition.
func Collection(name string) *mongo.Collection {
	if DB == nil {
		panic(ErrNotConnected)
	}
	return DB.Collection(name)
}

func Disconnect(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := Client.Disconnect(ctx)
	Client, DB = nil, nil
	return err
}
