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
	ErrReviewNotFound = errors.New("review not found")
	ErrRateNotFound   = errors.New("rate not found")
)

// ReviewRepository хранит отзывы и оценки провайдеров.
type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// has_rated: оставил ли автор отзыва ещё и оценку этому провайдеру.
const reviewSelect = `
	SELECT rv.id, rv.user_id, rv.provider_id, u.username, rv.title, rv.description,
	       rv.is_active, rv.created_at, rv.updated_at,
	       EXISTS(SELECT 1 FROM sp_rates rt WHERE rt.user_id = rv.user_id AND rt.provider_id = rv.provider_id) AS has_rated
	FROM sp_reviews rv
	JOIN users u ON u.id = rv.user_id
`

// CreateReview создаёт отзыв.
func (r *ReviewRepository) CreateReview(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO sp_reviews (user_id, provider_id, title, description, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		review.UserID, review.ProviderID, review.Title, review.Description, review.IsActive,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt); err != nil {
		return fmt.Errorf("review repository: create %w", common.MapWriteError(err))
	}
	return nil
}

// GetReview возвращает отзыв провайдера по ID.
func (r *ReviewRepository) GetReview(ctx context.Context, providerID, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.GetContext(ctx, &review, reviewSelect+` WHERE rv.provider_id = $1 AND rv.id = $2`, providerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("review repository: get %w", err)
	}
	return &review, nil
}

// ListReviews возвращает отзывы провайдера: сначала от тех, кто поставил оценку, затем новые.
func (r *ReviewRepository) ListReviews(ctx context.Context, providerID uuid.UUID, onlyActive bool) ([]models.Review, error) {
	reviews := []models.Review{}
	query := reviewSelect + `
		WHERE rv.provider_id = $1 AND (NOT $2 OR rv.is_active)
		ORDER BY has_rated DESC, rv.created_at DESC
	`
	if err := r.db.SelectContext(ctx, &reviews, query, providerID, onlyActive); err != nil {
		return nil, fmt.Errorf("review repository: list %w", err)
	}
	return reviews, nil
}

// UpdateReview обновляет заголовок, текст и активность.
func (r *ReviewRepository) UpdateReview(ctx context.Context, review *models.Review) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE sp_reviews SET title = $3, description = $4, is_active = $5, updated_at = NOW()
		WHERE provider_id = $1 AND id = $2
		RETURNING updated_at
	`, review.ProviderID, review.ID, review.Title, review.Description, review.IsActive).Scan(&review.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrReviewNotFound
	}
	if err != nil {
		return fmt.Errorf("review repository: update %w", err)
	}
	return nil
}

// DeleteReview удаляет отзыв.
func (r *ReviewRepository) DeleteReview(ctx context.Context, providerID, id uuid.UUID) error {
	return common.ExecAffected(ctx, r.db, ErrReviewNotFound,
		`DELETE FROM sp_reviews WHERE provider_id = $1 AND id = $2`, providerID, id)
}

// UpsertRate ставит или меняет оценку пользователя.
func (r *ReviewRepository) UpsertRate(ctx context.Context, rate *models.Rate) error {
	query := `
		INSERT INTO sp_rates (user_id, provider_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, provider_id) DO UPDATE
		SET score = EXCLUDED.score, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, rate.UserID, rate.ProviderID, rate.Score).
		Scan(&rate.ID, &rate.CreatedAt, &rate.UpdatedAt); err != nil {
		return fmt.Errorf("review repository: upsert rate %w", common.MapWriteError(err))
	}
	return nil
}

// GetUserRate возвращает оценку пользователя провайдеру.
func (r *ReviewRepository) GetUserRate(ctx context.Context, providerID, userID uuid.UUID) (*models.Rate, error) {
	var rate models.Rate
	err := r.db.GetContext(ctx, &rate, `
		SELECT id, user_id, provider_id, score, created_at, updated_at
		FROM sp_rates WHERE provider_id = $1 AND user_id = $2
	`, providerID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRateNotFound
		}
		return nil, fmt.Errorf("review repository: get user rate %w", err)
	}
	return &rate, nil
}

// ListRates возвращает все оценки провайдера.
func (r *ReviewRepository) ListRates(ctx context.Context, providerID uuid.UUID) ([]models.Rate, error) {
	rates := []models.Rate{}
	err := r.db.SelectContext(ctx, &rates, `
		SELECT id, user_id, provider_id, score, created_at, updated_at
		FROM sp_rates WHERE provider_id = $1 ORDER BY updated_at DESC
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("review repository: list rates %w", err)
	}
	return rates, nil
}

// DeleteRate удаляет оценку пользователя.
func (r *ReviewRepository) DeleteRate(ctx context.Context, providerID, userID uuid.UUID) error {
	return common.ExecAffected(ctx, r.db, ErrRateNotFound,
		`DELETE FROM sp_rates WHERE provider_id = $1 AND user_id = $2`, providerID, userID)
}

// GetRatingSummary возвращает среднюю оценку (NULL без оценок) и количество.
func (r *ReviewRepository) GetRatingSummary(ctx context.Context, providerID uuid.UUID) (*models.RatingSummary, error) {
	var summary models.RatingSummary
	err := r.db.GetContext(ctx, &summary, `
		SELECT AVG(score)::float8 AS average, COUNT(*) AS count FROM sp_rates WHERE provider_id = $1
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("review repository: rating summary %w", err)
	}
	return &summary, nil
}
