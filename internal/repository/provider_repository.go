package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/repository/common"
)

var (
	ErrProviderNotFound = errors.New("service provider not found")
	ErrOwnerNotFound    = errors.New("owner not found")
	ErrWorkTimeNotFound = errors.New("work time not found")
	ErrTagNotFound      = errors.New("tag not found")
	ErrImageNotFound    = errors.New("image not found")
)

// ProviderRepository работает с service_providers и вложенными таблицами
// (владельцы, рабочее время, теги, изображения, специализации).
type ProviderRepository struct {
	db *sqlx.DB
}

func NewProviderRepository(db *sqlx.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// EnsureOwner возвращает запись владельца для пользователя, создавая её при первом обращении.
func (r *ProviderRepository) EnsureOwner(ctx context.Context, userID uuid.UUID) (*models.Owner, error) {
	var owner models.Owner
	err := r.db.GetContext(ctx, &owner, `
		INSERT INTO sp_owners (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("provider repository: ensure owner %w", common.MapWriteError(err))
	}
	return &owner, nil
}

// GetOwnerByUser возвращает владельца по пользователю.
func (r *ProviderRepository) GetOwnerByUser(ctx context.Context, userID uuid.UUID) (*models.Owner, error) {
	return common.GetByField[models.Owner](ctx, r.db, "sp_owners", "user_id", userID, ErrOwnerNotFound)
}

// Create сохраняет карточку провайдера.
func (r *ProviderRepository) Create(ctx context.Context, sp *models.ServiceProvider) error {
	query := `
		INSERT INTO service_providers (name, logo_image, main_image, owner_id, address_id, category_id, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		sp.Name, sp.LogoImage, sp.MainImage, sp.OwnerID, sp.AddressID, sp.CategoryID, sp.Location,
	).Scan(&sp.ID, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		return fmt.Errorf("provider repository: create %w", common.MapWriteError(err))
	}
	return nil
}

// GetByID возвращает провайдера вместе с user_id и username владельца.
func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error) {
	var sp models.ServiceProvider
	query := `
		SELECT sp.id, sp.name, sp.logo_image, sp.main_image, sp.owner_id,
		       o.user_id AS owner_user_id, u.username AS owner_username,
		       sp.address_id, sp.category_id, sp.location, sp.created_at, sp.updated_at
		FROM service_providers sp
		JOIN sp_owners o ON o.id = sp.owner_id
		JOIN users u ON u.id = o.user_id
		WHERE sp.id = $1
	`
	if err := r.db.GetContext(ctx, &sp, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("provider repository: get by id %w", err)
	}
	return &sp, nil
}

// Update обновляет редактируемые поля карточки.
func (r *ProviderRepository) Update(ctx context.Context, sp *models.ServiceProvider) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE service_providers
		SET name = $2, address_id = $3, category_id = $4, location = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, sp.ID, sp.Name, sp.AddressID, sp.CategoryID, sp.Location).Scan(&sp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProviderNotFound
	}
	if err != nil {
		return fmt.Errorf("provider repository: update %w", common.MapWriteError(err))
	}
	return nil
}

// SetImage проставляет logo_image или main_image.
func (r *ProviderRepository) SetImage(ctx context.Context, providerID uuid.UUID, kind string, path *string) error {
	var column string
	switch kind {
	case models.ImageKindLogo:
		column = "logo_image"
	case models.ImageKindMain:
		column = "main_image"
	default:
		return fmt.Errorf("provider repository: set image kind %q %w", kind, common.ErrInvalidInput)
	}
	query := fmt.Sprintf(`UPDATE service_providers SET %s = $2, updated_at = NOW() WHERE id = $1`, column)
	return common.ExecAffected(ctx, r.db, ErrProviderNotFound, query, providerID, path)
}

// Delete удаляет провайдера со всеми вложенными записями (ON DELETE CASCADE).
func (r *ProviderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return common.ExecAffected(ctx, r.db, ErrProviderNotFound, `DELETE FROM service_providers WHERE id = $1`, id)
}

const providerShortSelect = `
	SELECT sp.id, sp.name, sp.logo_image, sp.main_image, c.name AS category_name,
	       COALESCE(rt.cnt, 0) AS rate_count, rt.avg AS average_rating
	FROM service_providers sp
	LEFT JOIN sp_categories c ON c.id = sp.category_id
	LEFT JOIN (
		SELECT provider_id, COUNT(*) AS cnt, AVG(score)::float8 AS avg
		FROM sp_rates GROUP BY provider_id
	) rt ON rt.provider_id = sp.id
`

// List возвращает короткие карточки с агрегатами по оценкам; теги не заполняются.
func (r *ProviderRepository) List(ctx context.Context, filter models.ProviderFilter) ([]models.ProviderShort, error) {
	items := []models.ProviderShort{}
	query := providerShortSelect + `
		WHERE ($1::uuid IS NULL OR sp.category_id = $1)
		  AND ($2::text = '' OR sp.name ILIKE '%' || $2 || '%')
		ORDER BY sp.created_at DESC
		LIMIT $3 OFFSET $4
	`
	if err := r.db.SelectContext(ctx, &items, query, filter.CategoryID, filter.Query, filter.Limit, filter.Offset); err != nil {
		return nil, fmt.Errorf("provider repository: list %w", err)
	}
	return items, nil
}

// ListByOwner возвращает карточки провайдеров владельца.
func (r *ProviderRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ProviderShort, error) {
	items := []models.ProviderShort{}
	query := providerShortSelect + ` WHERE sp.owner_id = $1 ORDER BY sp.created_at DESC`
	if err := r.db.SelectContext(ctx, &items, query, ownerID); err != nil {
		return nil, fmt.Errorf("provider repository: list by owner %w", err)
	}
	return items, nil
}

// --- рабочее время ---

const workTimeSelect = `
	SELECT wt.id, wt.provider_id, wt.weekday_id, w.name AS weekday_name,
	       wt.time_start::text AS time_start, wt.time_end::text AS time_end,
	       wt.is_active, wt.created_at
	FROM sp_work_times wt
	JOIN weekdays w ON w.id = wt.weekday_id
`

func (r *ProviderRepository) ListWorkTimes(ctx context.Context, providerID uuid.UUID) ([]models.WorkTime, error) {
	items := []models.WorkTime{}
	query := workTimeSelect + ` WHERE wt.provider_id = $1 ORDER BY wt.weekday_id, wt.time_start`
	if err := r.db.SelectContext(ctx, &items, query, providerID); err != nil {
		return nil, fmt.Errorf("provider repository: list work times %w", err)
	}
	return items, nil
}

func (r *ProviderRepository) GetWorkTime(ctx context.Context, providerID, id uuid.UUID) (*models.WorkTime, error) {
	var wt models.WorkTime
	query := workTimeSelect + ` WHERE wt.provider_id = $1 AND wt.id = $2`
	if err := r.db.GetContext(ctx, &wt, query, providerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkTimeNotFound
		}
		return nil, fmt.Errorf("provider repository: get work time %w", err)
	}
	return &wt, nil
}

// CreateWorkTime добавляет интервал; неизвестный weekday_id даёт common.ErrInvalidInput.
func (r *ProviderRepository) CreateWorkTime(ctx context.Context, wt *models.WorkTime) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO sp_work_times (provider_id, weekday_id, time_start, time_end, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, (SELECT name FROM weekdays WHERE id = $2)
	`, wt.ProviderID, wt.WeekdayID, wt.TimeStart, wt.TimeEnd, wt.IsActive,
	).Scan(&wt.ID, &wt.CreatedAt, &wt.WeekdayName)
	if err != nil {
		return fmt.Errorf("provider repository: create work time %w", common.MapWriteError(err))
	}
	return nil
}

func (r *ProviderRepository) UpdateWorkTime(ctx context.Context, wt *models.WorkTime) error {
	err := common.ExecAffected(ctx, r.db, ErrWorkTimeNotFound, `
		UPDATE sp_work_times SET weekday_id = $3, time_start = $4, time_end = $5, is_active = $6
		WHERE provider_id = $1 AND id = $2
	`, wt.ProviderID, wt.ID, wt.WeekdayID, wt.TimeStart, wt.TimeEnd, wt.IsActive)
	if err != nil && !errors.Is(err, ErrWorkTimeNotFound) {
		return fmt.Errorf("provider repository: update work time %w", common.MapWriteError(err))
	}
	return err
}

func (r *ProviderRepository) DeleteWorkTime(ctx context.Context, providerID, id uuid.UUID) error {
	return common.ExecAffected(ctx, r.db, ErrWorkTimeNotFound,
		`DELETE FROM sp_work_times WHERE provider_id = $1 AND id = $2`, providerID, id)
}

// --- теги ---

const tagSelect = `
	SELECT t.id, t.provider_id, t.key_id, k.name AS key_name, t.value
	FROM sp_tags t
	JOIN tag_keys k ON k.id = t.key_id
`

func (r *ProviderRepository) ListTags(ctx context.Context, providerID uuid.UUID) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := r.db.SelectContext(ctx, &tags, tagSelect+` WHERE t.provider_id = $1 ORDER BY k.name, t.value`, providerID); err != nil {
		return nil, fmt.Errorf("provider repository: list tags %w", err)
	}
	return tags, nil
}

// ListTagsForProviders возвращает теги сразу для нескольких провайдеров одним запросом.
func (r *ProviderRepository) ListTagsForProviders(ctx context.Context, providerIDs []uuid.UUID) (map[uuid.UUID][]models.Tag, error) {
	result := make(map[uuid.UUID][]models.Tag, len(providerIDs))
	if len(providerIDs) == 0 {
		return result, nil
	}

	ids := make([]string, len(providerIDs))
	for i, id := range providerIDs {
		ids[i] = id.String()
	}

	var tags []models.Tag
	query := tagSelect + ` WHERE t.provider_id = ANY($1::uuid[]) ORDER BY k.name, t.value`
	if err := r.db.SelectContext(ctx, &tags, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("provider repository: list tags for providers %w", err)
	}
	for _, tag := range tags {
		result[tag.ProviderID] = append(result[tag.ProviderID], tag)
	}
	return result, nil
}

// CreateTag добавляет тег; повтор (provider, key, value) даёт common.ErrAlreadyExists.
func (r *ProviderRepository) CreateTag(ctx context.Context, tag *models.Tag) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO sp_tags (provider_id, key_id, value) VALUES ($1, $2, $3) RETURNING id
	`, tag.ProviderID, tag.KeyID, tag.Value).Scan(&tag.ID)
	if err != nil {
		return fmt.Errorf("provider repository: create tag %w", common.MapWriteError(err))
	}
	return nil
}

// BulkCreateTags вставляет теги пачкой, дубликаты пропускаются.
func (r *ProviderRepository) BulkCreateTags(ctx context.Context, tags []models.Tag) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		inserter := common.NewBatchInserter(tx,
			`INSERT INTO sp_tags (provider_id, key_id, value)`, `ON CONFLICT DO NOTHING`, 3, 200)
		for _, tag := range tags {
			if err := inserter.Add(ctx, tag.ProviderID, tag.KeyID, tag.Value); err != nil {
				return fmt.Errorf("provider repository: bulk tags %w", err)
			}
		}
		return inserter.Flush(ctx)
	})
}

func (r *ProviderRepository) DeleteTag(ctx context.Context, providerID, id uuid.UUID) error {
	return common.ExecAffected(ctx, r.db, ErrTagNotFound,
		`DELETE FROM sp_tags WHERE provider_id = $1 AND id = $2`, providerID, id)
}

// --- изображения ---

func (r *ProviderRepository) ListImages(ctx context.Context, providerID uuid.UUID) ([]models.Image, error) {
	images := []models.Image{}
	err := r.db.SelectContext(ctx, &images, `
		SELECT id, provider_id, file_path, kind, content_type, file_size, created_at
		FROM sp_images WHERE provider_id = $1 ORDER BY created_at
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("provider repository: list images %w", err)
	}
	return images, nil
}

func (r *ProviderRepository) GetImage(ctx context.Context, providerID, id uuid.UUID) (*models.Image, error) {
	var img models.Image
	err := r.db.GetContext(ctx, &img, `
		SELECT id, provider_id, file_path, kind, content_type, file_size, created_at
		FROM sp_images WHERE provider_id = $1 AND id = $2
	`, providerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("provider repository: get image %w", err)
	}
	return &img, nil
}

func (r *ProviderRepository) CreateImage(ctx context.Context, img *models.Image) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO sp_images (provider_id, file_path, kind, content_type, file_size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, img.ProviderID, img.FilePath, img.Kind, img.ContentType, img.FileSize).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return fmt.Errorf("provider repository: create image %w", common.MapWriteError(err))
	}
	return nil
}

func (r *ProviderRepository) DeleteImage(ctx context.Context, providerID, id uuid.UUID) error {
	return common.ExecAffected(ctx, r.db, ErrImageNotFound,
		`DELETE FROM sp_images WHERE provider_id = $1 AND id = $2`, providerID, id)
}

// --- специализации ---

func (r *ProviderRepository) ListExperts(ctx context.Context, providerID uuid.UUID) ([]models.ProviderExpert, error) {
	items := []models.ProviderExpert{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT pe.id, pe.provider_id, pe.expert_id, e.name AS expert_name, pe.is_active
		FROM sp_experts pe
		JOIN experts e ON e.id = pe.expert_id
		WHERE pe.provider_id = $1
		ORDER BY e.name
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("provider repository: list experts %w", err)
	}
	return items, nil
}

// AddExpert привязывает специализацию; повтор даёт common.ErrAlreadyExists.
func (r *ProviderRepository) AddExpert(ctx context.Context, pe *models.ProviderExpert) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO sp_experts (provider_id, expert_id, is_active) VALUES ($1, $2, $3)
		RETURNING id, (SELECT name FROM experts WHERE id = $2)
	`, pe.ProviderID, pe.ExpertID, pe.IsActive).Scan(&pe.ID, &pe.ExpertName)
	if err != nil {
		return fmt.Errorf("provider repository: add expert %w", common.MapWriteError(err))
	}
	return nil
}

func (r *ProviderRepository) RemoveExpert(ctx context.Context, providerID, expertID uuid.UUID) error {
	return common.ExecAffected(ctx, r.db, ErrExpertNotFound,
		`DELETE FROM sp_experts WHERE provider_id = $1 AND expert_id = $2`, providerID, expertID)
}
