package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/database"
)

type ContactRepository struct {
	col *mongo.Collection
}

func NewContactRepository(db *mongo.Database) *ContactRepository {
	return &ContactRepository{col: db.Collection(database.Contacts)}
}

func (r *ContactRepository) Create(ctx context.Context, c *models.Contact) error {
	defer observe(r.col, "insert")()

	res, err := r.col.InsertOne(ctx, c)
	if err != nil {
		return mapErr(err, "insert contact")
	}
	c.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ContactRepository) List(ctx context.Context) ([]models.Contact, error) {
	defer observe(r.col, "find")()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, mapErr(err, "list contacts")
	}
	var out []models.Contact
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err, "list contacts")
	}
	return out, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer observe(r.col, "delete")()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "delete contact")
	}
	if res.DeletedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}
