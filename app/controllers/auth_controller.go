package controllers

import (
	"errors"
	"net/http"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/auth"
	"github.com/usgears/storefront/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(svc *services.AuthService) *AuthController {
	return &AuthController{auth: svc}
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (ac *AuthController) Login(c *ctx.Context) {
	var req loginRequest
	if !c.BindJSON(&req) {
		return
	}
	pair, err := ac.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (ac *AuthController) Refresh(c *ctx.Context) {
	var req refreshRequest
	if !c.BindJSON(&req) {
		return
	}
	pair, err := ac.auth.Refresh(c.Context(), req.RefreshToken)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.Unauthorized("Invalid refresh token")
		return
	}
	if err != nil {
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (ac *AuthController) Me(c *ctx.Context) {
	claims, ok := auth.FromContext(c.Context())
	if !ok {
		c.Unauthorized()
		return
	}
	u, err := ac.auth.Me(c.Context(), claims.UserID)
	if err != nil {
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, u)
}
