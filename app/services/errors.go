package services

import "errors"

// Controllers map these onto HTTP statuses with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidID          = errors.New("invalid id")
	ErrMissingFields      = errors.New("missing required fields")
	ErrForbiddenDelete    = errors.New("only unverified orders can be deleted")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrTrackingRequired   = errors.New("tracking id is required")
	ErrInvalidFileType    = errors.New("invalid file type")
	ErrNoValidFiles       = errors.New("no valid files uploaded")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicate          = errors.New("already exists")
)
