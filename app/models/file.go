package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileMeta describes a stored file. Path is the storage key with a leading
// slash, e.g. /media/photo/general/<uuid>.jpg.
type FileMeta struct {
	OriginalFilename string    `bson:"originalFilename"   json:"originalFilename"`
	Filename         string    `bson:"filename"           json:"filename"`
	Path             string    `bson:"path"               json:"path"`
	Category         string    `bson:"category"           json:"category"`
	MimeType         string    `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	Size             int64     `bson:"size,omitempty"     json:"size,omitempty"`
	UploadDate       time.Time `bson:"uploadDate"         json:"uploadDate"`
}

// Upload is an admin media file, typically a product image.
type Upload struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Uploader string             `bson:"uploader"      json:"uploader"`

	FileMeta `bson:",inline"`
}

// PaymentProof is a customer-submitted proof of payment.
type PaymentProof struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"       json:"_id"`
	OrderData string             `bson:"orderData,omitempty" json:"orderData,omitempty"`

	FileMeta `bson:",inline"`
}
