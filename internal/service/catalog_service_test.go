package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
	"github.com/ignatzorin/servicehub-backend/internal/repository/common"
)

// memCatalog in-memory справочники. Непокрытые методы паникуют через nil интерфейс.
type memCatalog struct {
	CatalogStore
	categories map[uuid.UUID]models.Category
	cities     map[uuid.UUID]models.City
	addresses  map[uuid.UUID]models.Address
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		categories: map[uuid.UUID]models.Category{},
		cities:     map[uuid.UUID]models.City{},
		addresses:  map[uuid.UUID]models.Address{},
	}
}

func (m *memCatalog) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &c, nil
}

func (m *memCatalog) CreateCategory(ctx context.Context, category *models.Category) error {
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, category.Name) {
			return common.ErrAlreadyExists
		}
	}
	category.ID = uuid.New()
	m.categories[category.ID] = *category
	return nil
}

func (m *memCatalog) UpdateCategory(ctx context.Context, category *models.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	m.categories[category.ID] = *category
	return nil
}

func (m *memCatalog) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *memCatalog) CreateCity(ctx context.Context, city *models.City) error {
	city.ID = uuid.New()
	m.cities[city.ID] = *city
	return nil
}

func (m *memCatalog) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	a, ok := m.addresses[id]
	if !ok {
		return nil, repository.ErrAddressNotFound
	}
	a.CityName = m.cities[a.CityID].Name
	return &a, nil
}

func (m *memCatalog) CreateAddress(ctx context.Context, address *models.Address) error {
	if _, ok := m.cities[address.CityID]; !ok {
		return common.ErrInvalidInput
	}
	address.ID = uuid.New()
	m.addresses[address.ID] = *address
	return nil
}

func (m *memCatalog) UpdateAddress(ctx context.Context, address *models.Address) error {
	if _, ok := m.addresses[address.ID]; !ok {
		return repository.ErrAddressNotFound
	}
	if _, ok := m.cities[address.CityID]; !ok {
		return common.ErrInvalidInput
	}
	m.addresses[address.ID] = *address
	return nil
}

func TestCatalogService_CategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(newMemCatalog())

	created, err := svc.CreateCategory(ctx, CategoryInput{Name: "  Клининг "})
	require.NoError(t, err)
	assert.Equal(t, "Клининг", created.Name)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "клининг"})
	assert.ErrorIs(t, err, apperror.ErrCategoryExists)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "   "})
	assert.True(t, apperror.IsValidation(err))

	updated, err := svc.UpdateCategory(ctx, created.ID, CategoryInput{Name: "Уборка"})
	require.NoError(t, err)
	assert.Equal(t, "Уборка", updated.Name)

	require.NoError(t, svc.DeleteCategory(ctx, created.ID))
	_, err = svc.GetCategory(ctx, created.ID)
	assert.ErrorIs(t, err, apperror.ErrCategoryNotFound)
	assert.ErrorIs(t, svc.DeleteCategory(ctx, created.ID), apperror.ErrCategoryNotFound)
}

func TestCatalogService_CreateAddress(t *testing.T) {
	ctx := context.Background()
	store := newMemCatalog()
	svc := NewCatalogService(store)

	city, err := svc.CreateCity(ctx, "Ташкент")
	require.NoError(t, err)

	address, err := svc.CreateAddress(ctx, AddressInput{
		District:      "Центральный",
		CityID:        city.ID,
		Neighbourhood: "Махалля 1",
		FullAddress:   "ул. Навои, 1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, address.ID)

	updated, err := svc.UpdateAddress(ctx, address.ID, AddressInput{
		District:      "Северный",
		CityID:        city.ID,
		Neighbourhood: "Махалля 2",
		FullAddress:   "ул. Навои, 2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Северный", updated.District)
	assert.Equal(t, "Ташкент", updated.CityName)
}

func TestCatalogService_CreateAddress_Errors(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(newMemCatalog())

	tests := []struct {
		name  string
		input AddressInput
		check func(t *testing.T, err error)
	}{
		{
			name:  "без города",
			input: AddressInput{District: "a", Neighbourhood: "b", FullAddress: "c"},
			check: func(t *testing.T, err error) { assert.True(t, apperror.IsValidation(err)) },
		},
		{
			name:  "пустой район",
			input: AddressInput{CityID: uuid.New(), Neighbourhood: "b", FullAddress: "c"},
			check: func(t *testing.T, err error) { assert.True(t, apperror.IsValidation(err)) },
		},
		{
			name:  "несуществующий город",
			input: AddressInput{CityID: uuid.New(), District: "a", Neighbourhood: "b", FullAddress: "c"},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, apperror.ErrCityNotFound) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAddress(ctx, tt.input)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
