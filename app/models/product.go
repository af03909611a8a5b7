package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalog item. Image and AdditionalImages hold upload ids (or
// legacy paths carrying a fileId= parameter).
type Product struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"    json:"_id"`
	Name             string             `bson:"name"             json:"name"`
	Category         string             `bson:"category"         json:"category"`
	Price            float64            `bson:"price"            json:"price"`
	Stock            int                `bson:"stock"            json:"stock"`
	Description      string             `bson:"description"      json:"description"`
	Specifications   []string           `bson:"specifications"   json:"specifications"`
	InStock          bool               `bson:"inStock"          json:"inStock"`
	Image            string             `bson:"image,omitempty"  json:"image,omitempty"`
	AdditionalImages []string           `bson:"additionalImages" json:"additionalImages"`
	CreatedAt        time.Time          `bson:"createdAt"        json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"        json:"updatedAt"`
}
