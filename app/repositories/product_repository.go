package repositories

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/database"
)

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(database.Products)}
}

func productFilter(f services.ProductFilter) bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Query != "" {
		q["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
	}
	if f.InStock != nil {
		q["inStock"] = *f.InStock
	}
	return q
}

func (r *ProductRepository) List(ctx context.Context, f services.ProductFilter, page *database.Page) ([]models.Product, int64, error) {
	defer observe(r.col, "find")()

	q := productFilter(f)
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if page != nil {
		page.Apply(opts)
	}
	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, mapErr(err, "list products")
	}
	var out []models.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, mapErr(err, "list products")
	}

	total := int64(len(out))
	if page != nil {
		if total, err = r.col.CountDocuments(ctx, q); err != nil {
			return nil, 0, mapErr(err, "count products")
		}
	}
	return out, total, nil
}

func (r *ProductRepository) Find(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	defer observe(r.col, "find_one")()

	var p models.Product
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapErr(err, "find product")
	}
	return &p, nil
}

func (r *ProductRepository) FindMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	out := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	defer observe(r.col, "find")()

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, mapErr(err, "find products")
	}
	var list []models.Product
	if err := cur.All(ctx, &list); err != nil {
		return nil, mapErr(err, "find products")
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	defer observe(r.col, "insert")()

	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return mapErr(err, "insert product")
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// Update sets only the supplied fields and returns the stored document.
func (r *ProductRepository) Update(ctx context.Context, id primitive.ObjectID, u services.ProductUpdate) (*models.Product, error) {
	defer observe(r.col, "update")()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Stock != nil {
		set["stock"] = *u.Stock
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Specifications != nil {
		set["specifications"] = *u.Specifications
	}
	if u.InStock != nil {
		set["inStock"] = *u.InStock
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	if u.AdditionalImages != nil {
		set["additionalImages"] = *u.AdditionalImages
	}

	var p models.Product
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		return nil, mapErr(err, "update product")
	}
	return &p, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer observe(r.col, "delete")()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "delete product")
	}
	if res.DeletedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

// DecrementStock is a single guarded pipeline update, so concurrent
// verifications cannot take the same units twice.
func (r *ProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error) {
	defer observe(r.col, "update")()

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stock":     bson.M{"$subtract": bson.A{"$stock", qty}},
			"updatedAt": "$$NOW",
		}}},
		{{Key: "$set", Value: bson.M{"inStock": bson.M{"$gt": bson.A{"$stock", 0}}}}},
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "stock": bson.M{"$gte": qty}}, pipeline)
	if err != nil {
		return false, mapErr(err, "decrement stock")
	}
	return res.ModifiedCount == 1, nil
}

// IncrementStock returns units. A product that ran out comes back in stock;
// one marked out of stock by hand stays that way.
func (r *ProductRepository) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	defer observe(r.col, "update")()

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"inStock": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$stock", 0}}, true, "$inStock"}},
		}}},
		{{Key: "$set", Value: bson.M{
			"stock":     bson.M{"$add": bson.A{"$stock", qty}},
			"updatedAt": "$$NOW",
		}}},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, pipeline)
	return mapErr(err, "increment stock")
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	defer observe(r.col, "count")()

	n, err := r.col.EstimatedDocumentCount(ctx)
	return n, mapErr(err, "count products")
}
