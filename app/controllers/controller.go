// Package controllers adapts the services to HTTP. Handlers take a
// *ctx.Context and translate service errors into the JSON error envelope.
package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/ctx"
	"github.com/usgears/storefront/pkg/logger"
)

// fail answers err for a handler working on resource ("Product", "Order").
// Errors that are not part of the service vocabulary are logged and become
// a 500.
func fail(c *ctx.Context, err error, resource string) {
	switch {
	case errors.Is(err, services.ErrInvalidID):
		c.BadRequest("Invalid " + strings.ToLower(resource) + " ID")
	case errors.Is(err, services.ErrNotFound):
		c.NotFound(resource + " not found")
	case errors.Is(err, services.ErrMissingFields):
		c.BadRequest("Missing required fields")
	case errors.Is(err, services.ErrInvalidPrice):
		c.BadRequest("Price must be a non-negative number")
	case errors.Is(err, services.ErrForbiddenDelete):
		c.Forbidden("Only unverified orders can be deleted")
	case errors.Is(err, services.ErrInvalidTransition):
		c.Error(http.StatusConflict, "Invalid status transition")
	case errors.Is(err, services.ErrInsufficientStock):
		c.Error(http.StatusConflict, "Insufficient stock")
	case errors.Is(err, services.ErrInvalidStatus):
		c.ValidationError(map[string]string{"status": "The selected status is invalid."})
	case errors.Is(err, services.ErrTrackingRequired):
		c.ValidationError(map[string]string{"trackingId": "The trackingId field is required."})
	case errors.Is(err, services.ErrInvalidFileType):
		c.BadRequest("Invalid file type. Only JPEG, PNG, GIF and WEBP images are allowed.")
	case errors.Is(err, services.ErrNoValidFiles):
		c.BadRequest("No valid files uploaded")
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized("Invalid credentials")
	case errors.Is(err, services.ErrDuplicate):
		c.Error(http.StatusConflict, resource+" already exists")
	default:
		logger.WithCtx(c.Context()).Error("request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
		c.ServerError()
	}
}

// success is the {success:true} body the storefront checks after writes.
var success = map[string]any{"success": true}
