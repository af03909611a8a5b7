package controllers

import (
	"errors"
	"net/http"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/ctx"
)

type ContactController struct {
	contacts *services.ContactService
}

func NewContactController(contacts *services.ContactService) *ContactController {
	return &ContactController{contacts: contacts}
}

func (cc *ContactController) Store(c *ctx.Context) {
	var in services.ContactInput
	if !c.DecodeJSON(&in) {
		return
	}
	if _, err := cc.contacts.Create(c.Context(), in); err != nil {
		if errors.Is(err, services.ErrMissingFields) {
			c.BadRequest("All fields are required")
			return
		}
		fail(c, err, "Contact")
		return
	}
	c.JSON(http.StatusOK, success)
}

func (cc *ContactController) Index(c *ctx.Context) {
	list, err := cc.contacts.List(c.Context())
	if err != nil {
		fail(c, err, "Contact")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (cc *ContactController) Destroy(c *ctx.Context) {
	id := c.ParamOrQuery("id")
	if id == "" {
		c.BadRequest("Contact ID is required")
		return
	}
	if err := cc.contacts.Delete(c.Context(), id); err != nil {
		fail(c, err, "Contact")
		return
	}
	c.JSON(http.StatusOK, success)
}
