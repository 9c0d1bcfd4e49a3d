package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
	"github.com/ignatzorin/servicehub-backend/internal/validation"
)

// ProfileStore доступ к пользователю и его дополнительным данным.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetDetail(ctx context.Context, userID uuid.UUID) (*models.UserDetail, error)
	UpsertDetail(ctx context.Context, detail *models.UserDetail) error
}

// Profile пользователь вместе с профилем.
type Profile struct {
	User   *models.User       `json:"user"`
	Detail *models.UserDetail `json:"detail"`
}

// ProfileInput изменяемые поля профиля. nil оставляет значение без изменений.
type ProfileInput struct {
	Firstname *string
	Lastname  *string
	Address   *string
	Location  *string
}

type ProfileService struct {
	store ProfileStore
}

func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

// Get возвращает профиль; если он ещё не заполнялся, Detail пустой.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.store.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: get user %w", err)
	}

	detail, err := s.store.GetDetail(ctx, userID)
	if errors.Is(err, repository.ErrUserDetailNotFound) {
		detail = &models.UserDetail{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("profile service: get detail %w", err)
	}

	return &Profile{User: user, Detail: detail}, nil
}

// Update частично обновляет профиль.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, in ProfileInput) (*Profile, error) {
	checks := []struct {
		field string
		value *string
		max   int
	}{
		{"firstname", in.Firstname, validation.MaxPersonNameLength},
		{"lastname", in.Lastname, validation.MaxPersonNameLength},
		{"address", in.Address, validation.MaxProfileAddressLength},
		{"location", in.Location, validation.MaxLocationLength},
	}
	for _, c := range checks {
		if err := validation.ValidateOptional(c.field, c.value, c.max); err != nil {
			return nil, apperror.Validation(err)
		}
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	detail := profile.Detail
	merge(&detail.Firstname, in.Firstname)
	merge(&detail.Lastname, in.Lastname)
	merge(&detail.Address, in.Address)
	merge(&detail.Location, in.Location)

	if err := s.store.UpsertDetail(ctx, detail); err != nil {
		return nil, fmt.Errorf("profile service: update %w", err)
	}
	return profile, nil
}

// merge пустая строка очищает поле.
func merge(dst **string, src *string) {
	if src == nil {
		return
	}
	*dst = models.StringPtr(strings.TrimSpace(*src))
}
