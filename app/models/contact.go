package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Contact struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name"          json:"name"`
	Email     string             `bson:"email"         json:"email"`
	Phone     string             `bson:"phone"         json:"phone"`
	Message   string             `bson:"message"       json:"message"`
	CreatedAt time.Time          `bson:"createdAt"     json:"createdAt"`
}
