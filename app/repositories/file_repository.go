package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/pkg/database"
)

// FileRepository stores admin uploads and customer payment proofs, which
// live in separate collections.
type FileRepository struct {
	uploads *mongo.Collection
	proofs  *mongo.Collection
}

func NewFileRepository(db *mongo.Database) *FileRepository {
	return &FileRepository{
		uploads: db.Collection(database.Uploads),
		proofs:  db.Collection(database.PaymentProofs),
	}
}

func (r *FileRepository) CreateUpload(ctx context.Context, u *models.Upload) error {
	defer observe(r.uploads, "insert")()

	res, err := r.uploads.InsertOne(ctx, u)
	if err != nil {
		return mapErr(err, "insert upload")
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *FileRepository) FindUpload(ctx context.Context, id primitive.ObjectID) (*models.Upload, error) {
	defer observe(r.uploads, "find_one")()

	var u models.Upload
	if err := r.uploads.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapErr(err, "find upload")
	}
	return &u, nil
}

func (r *FileRepository) DeleteUpload(ctx context.Context, id primitive.ObjectID) error {
	defer observe(r.uploads, "delete")()

	_, err := r.uploads.DeleteOne(ctx, bson.M{"_id": id})
	return mapErr(err, "delete upload")
}

func (r *FileRepository) CreateProof(ctx context.Context, p *models.PaymentProof) error {
	defer observe(r.proofs, "insert")()

	res, err := r.proofs.InsertOne(ctx, p)
	if err != nil {
		return mapErr(err, "insert payment proof")
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *FileRepository) DeleteProof(ctx context.Context, id primitive.ObjectID) error {
	defer observe(r.proofs, "delete")()

	_, err := r.proofs.DeleteOne(ctx, bson.M{"_id": id})
	return mapErr(err, "delete payment proof")
}

// FindProof matches ref against the id, the stored filename or the path.
// Paths are matched with and without the leading slash.
func (r *FileRepository) FindProof(ctx context.Context, ref string) (*models.PaymentProof, error) {
	defer observe(r.proofs, "find_one")()

	or := bson.A{
		bson.M{"filename": ref},
		bson.M{"path": ref},
		bson.M{"path": "/" + ref},
	}
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		or = append(or, bson.M{"_id": id})
	}
	var p models.PaymentProof
	if err := r.proofs.FindOne(ctx, bson.M{"$or": or}).Decode(&p); err != nil {
		return nil, mapErr(err, "find payment proof")
	}
	return &p, nil
}
