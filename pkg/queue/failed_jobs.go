package queue

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoFailedStore writes failed jobs to the failed_jobs collection.
type MongoFailedStore struct {
	col *mongo.Collection
}

func NewMongoFailedStore(col *mongo.Collection) *MongoFailedStore {
	return &MongoFailedStore{col: col}
}

func (s *MongoFailedStore) Save(ctx context.Context, f FailedJob) error {
	if _, err := s.col.InsertOne(ctx, f); err != nil {
		return fmt.Errorf("queue: save failed job: %w", err)
	}
	return nil
}

// Prune deletes failures older than maxAge and returns how many were removed.
func (s *MongoFailedStore) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.col.DeleteMany(ctx, bson.M{"failed_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("queue: prune failed jobs: %w", err)
	}
	return res.DeletedCount, nil
}
