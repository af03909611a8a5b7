package services

import (
	"context"
	"strings"
	"time"

	"github.com/usgears/storefront/app/models"
)

type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type ContactService struct {
	contacts ContactRepository
}

func NewContactService(contacts ContactRepository) *ContactService {
	return &ContactService{contacts: contacts}
}

func (s *ContactService) Create(ctx context.Context, in ContactInput) (*models.Contact, error) {
	c := &models.Contact{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Message:   strings.TrimSpace(in.Message),
		CreatedAt: time.Now().UTC(),
	}
	if c.Name == "" || c.Email == "" || c.Phone == "" || c.Message == "" {
		return nil, ErrMissingFields
	}
	if err := s.contacts.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContactService) List(ctx context.Context) ([]models.Contact, error) {
	list, err := s.contacts.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Contact{}
	}
	return list, nil
}

func (s *ContactService) Delete(ctx context.Context, rawID string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	return s.contacts.Delete(ctx, id)
}
