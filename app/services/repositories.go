package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/pkg/database"
)

// Repositories return ErrNotFound for missing documents.

type ProductFilter struct {
	Category string
	Query    string // case-insensitive name match
	InStock  *bool
}

// ProductUpdate carries the fields a PUT supplied; nil means unchanged.
type ProductUpdate struct {
	Name             *string
	Category         *string
	Price            *float64
	Stock            *int
	Description      *string
	Specifications   *[]string
	InStock          *bool
	Image            *string
	AdditionalImages *[]string
}

type ProductRepository interface {
	List(ctx context.Context, f ProductFilter, page *database.Page) ([]models.Product, int64, error)
	Find(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DecrementStock takes qty only when at least qty is available. It
	// reports false when the guard failed.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error)
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	Count(ctx context.Context) (int64, error)
}

type OrderUpdate struct {
	Status      *models.OrderStatus
	TrackingID  *string
	VerifiedAt  *time.Time
	ConfirmedAt *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	List(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	Find(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	// Update applies u only while the order is still in status from. It
	// reports false when the order moved on concurrently.
	Update(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, u OrderUpdate) (bool, error)
	// DeleteIfStatus removes the order only while it has status.
	DeleteIfStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (bool, error)
}

type ContactRepository interface {
	Create(ctx context.Context, c *models.Contact) error
	List(ctx context.Context) ([]models.Contact, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type FileRepository interface {
	CreateUpload(ctx context.Context, u *models.Upload) error
	FindUpload(ctx context.Context, id primitive.ObjectID) (*models.Upload, error)
	DeleteUpload(ctx context.Context, id primitive.ObjectID) error
	CreateProof(ctx context.Context, p *models.PaymentProof) error
	DeleteProof(ctx context.Context, id primitive.ObjectID) error
	// FindProof matches ref against the id, filename or path.
	FindProof(ctx context.Context, ref string) (*models.PaymentProof, error)
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash, role string) error
}

type DashboardRepository interface {
	OrderTotals(ctx context.Context) (byStatus map[models.OrderStatus]int64, confirmedSales float64, err error)
	MonthlySales(ctx context.Context, since time.Time) ([]models.MonthlySales, error)
	Customers(ctx context.Context) ([]models.Customer, error)
}
