package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a back-office account. Password holds the bcrypt hash and is
// never serialised.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email     string             `bson:"email"         json:"email"`
	Name      string             `bson:"name"          json:"name"`
	Password  string             `bson:"password"      json:"-"`
	Role      string             `bson:"role"          json:"role"`
	CreatedAt time.Time          `bson:"createdAt"     json:"createdAt"`
}
