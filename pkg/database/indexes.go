package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexSet is one named group of indexes, applied in registration order.
type indexSet struct {
	name       string
	collection string
	models     []mongo.IndexModel
}

var indexSets = []indexSet{
	{
		name:       "products_category_created",
		collection: Products,
		models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}}},
		},
	},
	{
		name:       "orders_status_created",
		collection: Orders,
		models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "billing.email", Value: 1}}},
		},
	},
	{
		name:       "contacts_created",
		collection: Contacts,
		models:     []mongo.IndexModel{{Keys: bson.D{{Key: "createdAt", Value: -1}}}},
	},
	{
		name:       "payment_proofs_lookup",
		collection: PaymentProofs,
		models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "filename", Value: 1}}},
			{Keys: bson.D{{Key: "path", Value: 1}}},
		},
	},
	{
		name:       "users_email_unique",
		collection: Users,
		models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	},
	{
		name:       "failed_jobs_failed_at",
		collection: FailedJobs,
		models:     []mongo.IndexModel{{Keys: bson.D{{Key: "failed_at", Value: -1}}}},
	},
}

// EnsureIndexes creates every registered index. CreateMany is idempotent, so
// this runs on every boot.
func EnsureIndexes(ctx context.Context) error {
	if DB == nil {
		return ErrNotConnected
	}
	for _, set := range indexSets {
		if _, err := DB.Collection(set.collection).Indexes().CreateMany(ctx, set.models); err != nil {
			return fmt.Errorf("database: index %s: %w", set.name, err)
		}
	}
	return nil
}

// IndexNames lists the registered index groups, for `usgears db:indexes`.
func IndexNames() []string {
	out := make([]string, len(indexSets))
	for i, s := range indexSets {
		out[i] = s.collection + "." + s.name
	}
	return out
}
