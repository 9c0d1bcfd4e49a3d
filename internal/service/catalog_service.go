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
	"github.com/ignatzorin/servicehub-backend/internal/repository/common"
	"github.com/ignatzorin/servicehub-backend/internal/validation"
)

// CatalogStore справочники каталога.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCities(ctx context.Context) ([]models.City, error)
	CreateCity(ctx context.Context, city *models.City) error
	ListAddresses(ctx context.Context, cityID *uuid.UUID) ([]models.Address, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	CreateAddress(ctx context.Context, address *models.Address) error
	UpdateAddress(ctx context.Context, address *models.Address) error
	DeleteAddress(ctx context.Context, id uuid.UUID) error
	ListWeekdays(ctx context.Context) ([]models.Weekday, error)
	ListExperts(ctx context.Context, categoryID *uuid.UUID) ([]models.Expert, error)
	GetExpert(ctx context.Context, id uuid.UUID) (*models.Expert, error)
	CreateExpert(ctx context.Context, expert *models.Expert) error
}

// CatalogService категории, города, адреса, дни недели и специализации.
type CatalogService struct {
	store CatalogStore
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// CategoryInput данные категории.
type CategoryInput struct {
	Name string
	Icon *string
}

// AddressInput данные адреса.
type AddressInput struct {
	District      string
	CityID        uuid.UUID
	Neighbourhood string
	FullAddress   string
}

// ExpertInput данные специализации.
type ExpertInput struct {
	Name       string
	CategoryID *uuid.UUID
	Icon       *string
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.store.GetCategory(ctx, id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return nil, apperror.ErrCategoryNotFound
	}
	return category, err
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	category := &models.Category{Name: strings.TrimSpace(in.Name), Icon: in.Icon}
	if err := validation.ValidateRequired("название категории", category.Name, validation.MaxNameLength); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, mapCategoryWrite(err)
	}
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	category := &models.Category{ID: id, Name: strings.TrimSpace(in.Name), Icon: in.Icon}
	if err := validation.ValidateRequired("название категории", category.Name, validation.MaxNameLength); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := s.store.UpdateCategory(ctx, category); err != nil {
		return nil, mapCategoryWrite(err)
	}
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.store.DeleteCategory(ctx, id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return apperror.ErrCategoryNotFound
	}
	return err
}

func mapCategoryWrite(err error) error {
	switch {
	case errors.Is(err, repository.ErrCategoryNotFound):
		return apperror.ErrCategoryNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return apperror.ErrCategoryExists
	}
	return fmt.Errorf("catalog service: %w", err)
}

func (s *CatalogService) ListCities(ctx context.Context) ([]models.City, error) {
	return s.store.ListCities(ctx)
}

func (s *CatalogService) CreateCity(ctx context.Context, name string) (*models.City, error) {
	city := &models.City{Name: strings.TrimSpace(name)}
	if err := validation.ValidateRequired("название города", city.Name, validation.MaxNameLength); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := s.store.CreateCity(ctx, city); err != nil {
		return nil, fmt.Errorf("catalog service: create city %w", err)
	}
	return city, nil
}

func (s *CatalogService) ListAddresses(ctx context.Context, cityID *uuid.UUID) ([]models.Address, error) {
	return s.store.ListAddresses(ctx, cityID)
}

func (s *CatalogService) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	address, err := s.store.GetAddress(ctx, id)
	if errors.Is(err, repository.ErrAddressNotFound) {
		return nil, apperror.ErrAddressNotFound
	}
	return address, err
}

func (s *CatalogService) CreateAddress(ctx context.Context, in AddressInput) (*models.Address, error) {
	address, err := buildAddress(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAddress(ctx, address); err != nil {
		return nil, mapAddressWrite(err)
	}
	return address, nil
}

func (s *CatalogService) UpdateAddress(ctx context.Context, id uuid.UUID, in AddressInput) (*models.Address, error) {
	address, err := buildAddress(in)
	if err != nil {
		return nil, err
	}
	address.ID = id
	if err := s.store.UpdateAddress(ctx, address); err != nil {
		return nil, mapAddressWrite(err)
	}
	return s.GetAddress(ctx, id)
}

func (s *CatalogService) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	err := s.store.DeleteAddress(ctx, id)
	if errors.Is(err, repository.ErrAddressNotFound) {
		return apperror.ErrAddressNotFound
	}
	return err
}

func buildAddress(in AddressInput) (*models.Address, error) {
	address := &models.Address{
		District:      strings.TrimSpace(in.District),
		CityID:        in.CityID,
		Neighbourhood: strings.TrimSpace(in.Neighbourhood),
		FullAddress:   strings.TrimSpace(in.FullAddress),
	}
	if address.CityID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "city_id обязателен")
	}
	if err := validation.ValidateRequired("район", address.District, validation.MaxNameLength); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := validation.ValidateRequired("микрорайон", address.Neighbourhood, validation.MaxNeighbourhoodLength); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := validation.ValidateNonEmpty("полный адрес", address.FullAddress); err != nil {
		return nil, apperror.Validation(err)
	}
	return address, nil
}

// mapAddressWrite несуществующий город приходит как нарушение внешнего ключа.
func mapAddressWrite(err error) error {
	switch {
	case errors.Is(err, repository.ErrAddressNotFound):
		return apperror.ErrAddressNotFound
	case errors.Is(err, common.ErrInvalidInput):
		return apperror.ErrCityNotFound
	}
	return fmt.Errorf("catalog service: %w", err)
}

func (s *CatalogService) ListWeekdays(ctx context.Context) ([]models.Weekday, error) {
	return s.store.ListWeekdays(ctx)
}

func (s *CatalogService) ListExperts(ctx context.Context, categoryID *uuid.UUID) ([]models.Expert, error) {
	return s.store.ListExperts(ctx, categoryID)
}

func (s *CatalogService) CreateExpert(ctx context.Context, in ExpertInput) (*models.Expert, error) {
	expert := &models.Expert{Name: strings.TrimSpace(in.Name), CategoryID: in.CategoryID, Icon: in.Icon}
	if err := validation.ValidateRequired("название специализации", expert.Name, validation.MaxNameLength); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := s.store.CreateExpert(ctx, expert); err != nil {
		if errors.Is(err, common.ErrInvalidInput) {
			return nil, apperror.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("catalog service: create expert %w", err)
	}
	return expert, nil
}
