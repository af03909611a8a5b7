// Package auth issues and verifies admin JWTs and hashes passwords.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/usgears/storefront/config"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	tokenAccess  = "access"
	tokenRefresh = "refresh"

	refreshTTL = 7 * 24 * time.Hour
)

// ErrWrongTokenType is returned when a refresh token is used as an access
// token or the other way round.
var ErrWrongTokenType = errors.New("auth: wrong token type")

// Identity is who a token is issued to.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// Claims is the signed JWT payload.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool { return c != nil && c.Role == RoleAdmin }

func secret() []byte {
	return []byte(config.JWTSecret())
}

func sign(id Identity, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    "usgears",
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

// GenerateToken creates a signed access token valid for JWT_TTL.
func GenerateToken(id Identity) (string, error) {
	return sign(id, tokenAccess, config.JWTTTL())
}

// GenerateRefreshToken creates a week-long token accepted only by /auth/refresh.
func GenerateRefreshToken(id Identity) (string, error) {
	return sign(id, tokenRefresh, refreshTTL)
}

func parse(t, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ValidateToken verifies an access token.
func ValidateToken(t string) (*Claims, error) { return parse(t, tokenAccess) }

// ValidateRefreshToken verifies a refresh token.
func ValidateRefreshToken(t string) (*Claims, error) { return parse(t, tokenRefresh) }

func HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

type claimsKey struct{}

// WithClaims stores verified claims on ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the claims stored by the auth middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}
