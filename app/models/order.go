package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusUnverified OrderStatus = "unverified"
	StatusVerified   OrderStatus = "verified"
	StatusConfirmed  OrderStatus = "confirmed"
)

var statusRank = map[OrderStatus]int{
	StatusUnverified: 0,
	StatusVerified:   1,
	StatusConfirmed:  2,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Next reports whether s may move directly to to. Orders only move one step
// forward at a time.
func (s OrderStatus) Next(to OrderStatus) bool {
	from, ok1 := statusRank[s]
	dest, ok2 := statusRank[to]
	return ok1 && ok2 && dest == from+1
}

type Billing struct {
	FirstName string `bson:"firstName" json:"firstName" validate:"required,max=100"`
	LastName  string `bson:"lastName"  json:"lastName"  validate:"required,max=100"`
	Email     string `bson:"email"     json:"email"     validate:"required,email"`
	Phone     string `bson:"phone"     json:"phone"     validate:"required,max=30"`
	Address   string `bson:"address"   json:"address"`
	City      string `bson:"city"      json:"city"`
	Note      string `bson:"note"      json:"note"      validate:"nullable,max=1000"`
}

func (b Billing) FullName() string {
	switch {
	case b.FirstName == "":
		return b.LastName
	case b.LastName == "":
		return b.FirstName
	}
	return b.FirstName + " " + b.LastName
}

// CartItem is a snapshot of a product at checkout. ID is the product id and
// may not resolve if the product was later removed.
type CartItem struct {
	ID       string  `bson:"id"       json:"id"`
	Name     string  `bson:"name"     json:"name"     validate:"required"`
	Category string  `bson:"category" json:"category"`
	Price    float64 `bson:"price"    json:"price"    validate:"gte=0"`
	Quantity int     `bson:"quantity" json:"quantity" validate:"gte=1"`
	Image    string  `bson:"image"    json:"image"`
}

type Payment struct {
	Method       string   `bson:"method"       json:"method"`
	Proofs       []string `bson:"proofs"       json:"proofs"`
	ProofFileIDs []string `bson:"proofFileIds" json:"proofFileIds"`
}

type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"         json:"_id"`
	Billing        Billing            `bson:"billing"               json:"billing"`
	CartItems      []CartItem         `bson:"cartItems"             json:"cartItems"`
	Payment        Payment            `bson:"payment"               json:"payment"`
	Subtotal       float64            `bson:"subtotal"              json:"subtotal"`
	ShippingCost   float64            `bson:"shippingCost"          json:"shippingCost"`
	Total          float64            `bson:"total"                 json:"total"`
	ShippingMethod string             `bson:"shippingMethod"        json:"shippingMethod"`
	DeliveryMethod string             `bson:"deliveryMethod"        json:"deliveryMethod"`
	Status         OrderStatus        `bson:"status"                json:"status"`
	TrackingID     string             `bson:"trackingId,omitempty"  json:"trackingId,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"             json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"             json:"updatedAt"`
	VerifiedAt     *time.Time         `bson:"verifiedAt,omitempty"  json:"verifiedAt,omitempty"`
	ConfirmedAt    *time.Time         `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
}

// OrderInfo is the public view served to the checkout success page.
type OrderInfo struct {
	Billing        Billing     `json:"billing"`
	CartItems      []CartItem  `json:"cartItems"`
	ShippingMethod string      `json:"shippingMethod"`
	Status         OrderStatus `json:"status"`
	TrackingID     string      `json:"trackingId"`
}

func (o *Order) Info() OrderInfo {
	method := o.ShippingMethod
	if method == "" {
		method = o.DeliveryMethod
	}
	return OrderInfo{
		Billing:        o.Billing,
		CartItems:      o.CartItems,
		ShippingMethod: method,
		Status:         o.Status,
		TrackingID:     o.TrackingID,
	}
}
