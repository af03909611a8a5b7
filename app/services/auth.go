package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/pkg/auth"
)

type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	User         *models.User `json:"user"`
}

type AuthService struct {
	users UserRepository
}

func NewAuthService(users UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Login checks the password against the stored bcrypt hash. Unknown emails
// and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return issue(u)
}

// Refresh trades a refresh token for a new pair. The user is reloaded so a
// role change takes effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Me(ctx, claims.UserID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidID) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return issue(u)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	id, err := ParseID(userID)
	if err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}

// EnsureUser creates the account, or resets its password and role when the
// email is already registered. created reports which happened.
func (s *AuthService) EnsureUser(ctx context.Context, email, name, password, role string) (u *models.User, created bool, err error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, false, ErrMissingFields
	}
	if role == "" {
		role = auth.RoleUser
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.UpdatePassword(ctx, existing.ID, hash, role); err != nil {
			return nil, false, err
		}
		existing.Password, existing.Role = hash, role
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	u = &models.User{Email: email, Name: name, Password: hash, Role: role, CreatedAt: time.Now().UTC()}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func issue(u *models.User) (*TokenPair, error) {
	id := auth.Identity{UserID: u.ID.Hex(), Email: u.Email, Role: u.Role}
	access, err := auth.GenerateToken(id)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(id)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer", User: u}, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
