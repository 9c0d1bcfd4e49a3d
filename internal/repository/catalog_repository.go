package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/repository/common"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCityNotFound     = errors.New("city not found")
	ErrAddressNotFound  = errors.New("address not found")
	ErrWeekdayNotFound  = errors.New("weekday not found")
	ErrExpertNotFound   = errors.New("expert not found")
)

// CatalogRepository справочники: категории, города, адреса, дни недели, специализации.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCategories возвращает все категории по алфавиту.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := r.db.SelectContext(ctx, &categories, `
		SELECT id, name, icon, created_at FROM sp_categories ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: list categories %w", err)
	}
	return categories, nil
}

// GetCategory возвращает категорию по ID.
func (r *CatalogRepository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return common.GetByID[models.Category](ctx, r.db, "sp_categories", id, ErrCategoryNotFound)
}

// CreateCategory создаёт категорию с уникальным названием.
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO sp_categories (name, icon) VALUES ($1, $2) RETURNING id, created_at`,
		category.Name, category.Icon,
	).Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		return fmt.Errorf("catalog repository: create category %w", common.MapWriteError(err))
	}
	return nil
}

// UpdateCategory меняет название и иконку.
func (r *CatalogRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	err := r.db.QueryRowxContext(ctx,
		`UPDATE sp_categories SET name = $2, icon = $3 WHERE id = $1 RETURNING created_at`,
		category.ID, category.Name, category.Icon,
	).Scan(&category.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("catalog repository: update category %w", common.MapWriteError(err))
	}
	return nil
}

// DeleteCategory удаляет категорию; провайдеры остаются без категории.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return common.ExecAffected(ctx, r.db, ErrCategoryNotFound, `DELETE FROM sp_categories WHERE id = $1`, id)
}

func (r *CatalogRepository) ListCities(ctx context.Context) ([]models.City, error) {
	cities := []models.City{}
	if err := r.db.SelectContext(ctx, &cities, `SELECT id, name FROM cities ORDER BY name`); err != nil {
		return nil, fmt.Errorf("catalog repository: list cities %w", err)
	}
	return cities, nil
}

func (r *CatalogRepository) CreateCity(ctx context.Context, city *models.City) error {
	if err := r.db.QueryRowxContext(ctx, `INSERT INTO cities (name) VALUES ($1) RETURNING id`, city.Name).
		Scan(&city.ID); err != nil {
		return fmt.Errorf("catalog repository: create city %w", err)
	}
	return nil
}

const addressSelect = `
	SELECT a.id, a.district, a.city_id, c.name AS city_name, a.neighbourhood, a.full_address
	FROM addresses a
	JOIN cities c ON c.id = a.city_id
`

// ListAddresses возвращает адреса, опционально только для города.
func (r *CatalogRepository) ListAddresses(ctx context.Context, cityID *uuid.UUID) ([]models.Address, error) {
	addresses := []models.Address{}
	query := addressSelect + ` WHERE ($1::uuid IS NULL OR a.city_id = $1) ORDER BY c.name, a.full_address`
	if err := r.db.SelectContext(ctx, &addresses, query, cityID); err != nil {
		return nil, fmt.Errorf("catalog repository: list addresses %w", err)
	}
	return addresses, nil
}

func (r *CatalogRepository) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := r.db.GetContext(ctx, &address, addressSelect+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("catalog repository: get address %w", err)
	}
	return &address, nil
}

// CreateAddress сохраняет адрес; несуществующий город даёт common.ErrInvalidInput.
func (r *CatalogRepository) CreateAddress(ctx context.Context, address *models.Address) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO addresses (district, city_id, neighbourhood, full_address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, (SELECT name FROM cities WHERE id = $2)
	`, address.District, address.CityID, address.Neighbourhood, address.FullAddress,
	).Scan(&address.ID, &address.CityName)
	if err != nil {
		return fmt.Errorf("catalog repository: create address %w", common.MapWriteError(err))
	}
	return nil
}

func (r *CatalogRepository) UpdateAddress(ctx context.Context, address *models.Address) error {
	err := common.ExecAffected(ctx, r.db, ErrAddressNotFound, `
		UPDATE addresses SET district = $2, city_id = $3, neighbourhood = $4, full_address = $5
		WHERE id = $1
	`, address.ID, address.District, address.CityID, address.Neighbourhood, address.FullAddress)
	if err != nil && !errors.Is(err, ErrAddressNotFound) {
		return fmt.Errorf("catalog repository: update address %w", common.MapWriteError(err))
	}
	return err
}

func (r *CatalogRepository) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	return common.ExecAffected(ctx, r.db, ErrAddressNotFound, `DELETE FROM addresses WHERE id = $1`, id)
}

// ListWeekdays возвращает дни недели в порядке id (понедельник первый).
func (r *CatalogRepository) ListWeekdays(ctx context.Context) ([]models.Weekday, error) {
	days := []models.Weekday{}
	if err := r.db.SelectContext(ctx, &days, `SELECT id, name FROM weekdays ORDER BY id`); err != nil {
		return nil, fmt.Errorf("catalog repository: list weekdays %w", err)
	}
	return days, nil
}

// ListExperts возвращает специализации, опционально по категории.
func (r *CatalogRepository) ListExperts(ctx context.Context, categoryID *uuid.UUID) ([]models.Expert, error) {
	experts := []models.Expert{}
	err := r.db.SelectContext(ctx, &experts, `
		SELECT id, name, category_id, icon FROM experts
		WHERE ($1::uuid IS NULL OR category_id = $1)
		ORDER BY name
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: list experts %w", err)
	}
	return experts, nil
}

func (r *CatalogRepository) GetExpert(ctx context.Context, id uuid.UUID) (*models.Expert, error) {
	return common.GetByID[models.Expert](ctx, r.db, "experts", id, ErrExpertNotFound)
}

func (r *CatalogRepository) CreateExpert(ctx context.Context, expert *models.Expert) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO experts (name, category_id, icon) VALUES ($1, $2, $3) RETURNING id`,
		expert.Name, expert.CategoryID, expert.Icon,
	).Scan(&expert.ID)
	if err != nil {
		return fmt.Errorf("catalog repository: create expert %w", common.MapWriteError(err))
	}
	return nil
}

// EnsureTagKey возвращает ключ тега по имени, создавая его при необходимости.
func (r *CatalogRepository) EnsureTagKey(ctx context.Context, name string) (*models.TagKey, error) {
	var key models.TagKey
	err := r.db.GetContext(ctx, &key, `
		INSERT INTO tag_keys (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name
	`, name)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: ensure tag key %w", err)
	}
	return &key, nil
}
