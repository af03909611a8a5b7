package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/database"
)

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(database.Orders)}
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	defer observe(r.col, "insert")()

	res, err := r.col.InsertOne(ctx, o)
	if err != nil {
		return mapErr(err, "insert order")
	}
	o.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *OrderRepository) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	defer observe(r.col, "find")()

	q := bson.M{}
	if status != "" {
		q["status"] = status
	}
	cur, err := r.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, mapErr(err, "list orders")
	}
	var out []models.Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err, "list orders")
	}
	return out, nil
}

func (r *OrderRepository) Find(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	defer observe(r.col, "find_one")()

	var o models.Order
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, mapErr(err, "find order")
	}
	return &o, nil
}

func (r *OrderRepository) Update(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, u services.OrderUpdate) (bool, error) {
	defer observe(r.col, "update")()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.TrackingID != nil {
		set["trackingId"] = *u.TrackingID
	}
	if u.VerifiedAt != nil {
		set["verifiedAt"] = *u.VerifiedAt
	}
	if u.ConfirmedAt != nil {
		set["confirmedAt"] = *u.ConfirmedAt
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return false, mapErr(err, "update order")
	}
	return res.MatchedCount == 1, nil
}

func (r *OrderRepository) DeleteIfStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (bool, error) {
	defer observe(r.col, "delete")()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "status": status})
	if err != nil {
		return false, mapErr(err, "delete order")
	}
	return res.DeletedCount == 1, nil
}

// OrderTotals counts orders per status and sums confirmed totals in one
// aggregation.
func (r *OrderRepository) OrderTotals(ctx context.Context) (map[models.OrderStatus]int64, float64, error) {
	defer observe(r.col, "aggregate")()

	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
			"sales": bson.M{"$sum": "$total"},
		}}},
	})
	if err != nil {
		return nil, 0, mapErr(err, "order totals")
	}
	var rows []struct {
		Status models.OrderStatus `bson:"_id"`
		Count  int64              `bson:"count"`
		Sales  float64            `bson:"sales"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, 0, mapErr(err, "order totals")
	}

	byStatus := make(map[models.OrderStatus]int64, len(rows))
	var sales float64
	for _, row := range rows {
		byStatus[row.Status] = row.Count
		if row.Status == models.StatusConfirmed {
			sales = row.Sales
		}
	}
	return byStatus, sales, nil
}

// MonthlySales sums confirmed orders by creation month since the given time.
func (r *OrderRepository) MonthlySales(ctx context.Context, since time.Time) ([]models.MonthlySales, error) {
	defer observe(r.col, "aggregate")()

	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status":    models.StatusConfirmed,
			"createdAt": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": "$createdAt"}},
			"sales":  bson.M{"$sum": "$total"},
			"orders": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return nil, mapErr(err, "monthly sales")
	}
	var out []models.MonthlySales
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err, "monthly sales")
	}
	return out, nil
}

// Customers groups orders by billing email. Name, phone and city come from
// the most recent order.
func (r *OrderRepository) Customers(ctx context.Context) ([]models.Customer, error) {
	defer observe(r.col, "aggregate")()

	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"billing.email": bson.M{"$nin": bson.A{nil, ""}}}}},
		{{Key: "$sort", Value: bson.M{"createdAt": -1}}},
		{{Key: "$group", Value: bson.M{
			"_id":         bson.M{"$toLower": "$billing.email"},
			"firstName":   bson.M{"$first": "$billing.firstName"},
			"lastName":    bson.M{"$first": "$billing.lastName"},
			"phone":       bson.M{"$first": "$billing.phone"},
			"city":        bson.M{"$first": "$billing.city"},
			"orderCount":  bson.M{"$sum": 1},
			"totalSpent":  bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", models.StatusConfirmed}}, "$total", 0}}},
			"lastOrderAt": bson.M{"$first": "$createdAt"},
		}}},
		{{Key: "$set", Value: bson.M{"name": bson.M{"$trim": bson.M{"input": bson.M{"$concat": bson.A{
			bson.M{"$ifNull": bson.A{"$firstName", ""}}, " ", bson.M{"$ifNull": bson.A{"$lastName", ""}},
		}}}}}}},
		{{Key: "$sort", Value: bson.M{"lastOrderAt": -1}}},
	})
	if err != nil {
		return nil, mapErr(err, "customers")
	}
	var out []models.Customer
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err, "customers")
	}
	return out, nil
}
