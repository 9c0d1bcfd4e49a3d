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

// События ленты провайдера.
const (
	EventReviewCreated = "review.created"
	EventReviewUpdated = "review.updated"
	EventReviewDeleted = "review.deleted"
	EventRateUpdated   = "rate.updated"
)

// ReviewStore отзывы и оценки.
type ReviewStore interface {
	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, providerID, id uuid.UUID) (*models.Review, error)
	ListReviews(ctx context.Context, providerID uuid.UUID, onlyActive bool) ([]models.Review, error)
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, providerID, id uuid.UUID) error
	UpsertRate(ctx context.Context, rate *models.Rate) error
	GetUserRate(ctx context.Context, providerID, userID uuid.UUID) (*models.Rate, error)
	ListRates(ctx context.Context, providerID uuid.UUID) ([]models.Rate, error)
	DeleteRate(ctx context.Context, providerID, userID uuid.UUID) error
	GetRatingSummary(ctx context.Context, providerID uuid.UUID) (*models.RatingSummary, error)
}

// ProviderReader проверка существования провайдера.
type ProviderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error)
}

// FeedPublisher рассылает события подписчикам ленты провайдера.
type FeedPublisher interface {
	Publish(providerID uuid.UUID, event string, data interface{})
}

// ReviewInput данные отзыва.
type ReviewInput struct {
	Title       string
	Description string
	IsActive    *bool
}

// RateResult оценка и пересчитанный агрегат.
type RateResult struct {
	Rate    *models.Rate          `json:"rate,omitempty"`
	Summary *models.RatingSummary `json:"summary"`
}

type ReviewService struct {
	reviews   ReviewStore
	providers ProviderReader
	feed      FeedPublisher
	cache     *CacheService
}

func NewReviewService(reviews ReviewStore, providers ProviderReader, feed FeedPublisher, cache *CacheService) *ReviewService {
	return &ReviewService{reviews: reviews, providers: providers, feed: feed, cache: cache}
}

// ListReviews активные отзывы: сначала от оценивших, затем новые.
func (s *ReviewService) ListReviews(ctx context.Context, providerID uuid.UUID) ([]models.Review, error) {
	if err := s.ensureProvider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.reviews.ListReviews(ctx, providerID, true)
}

// CreateReview добавляет отзыв и публикует его в ленту.
func (s *ReviewService) CreateReview(ctx context.Context, userID, providerID uuid.UUID, in ReviewInput) (*models.Review, error) {
	title, description, err := validateReview(in)
	if err != nil {
		return nil, err
	}
	if err := s.ensureProvider(ctx, providerID); err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:      userID,
		ProviderID:  providerID,
		Title:       title,
		Description: description,
		IsActive:    true,
	}
	if in.IsActive != nil {
		review.IsActive = *in.IsActive
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("review service: create %w", err)
	}

	// перечитываем, чтобы получить username и has_rated
	created, err := s.reviews.GetReview(ctx, providerID, review.ID)
	if err != nil {
		return nil, fmt.Errorf("review service: reload %w", err)
	}

	s.changed(providerID, EventReviewCreated, created)
	return created, nil
}

// UpdateReview меняет отзыв. Доступно только автору.
func (s *ReviewService) UpdateReview(ctx context.Context, userID, providerID, reviewID uuid.UUID, in ReviewInput) (*models.Review, error) {
	title, description, err := validateReview(in)
	if err != nil {
		return nil, err
	}

	review, err := s.getReview(ctx, providerID, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, apperror.ErrForbidden
	}

	review.Title = title
	review.Description = description
	if in.IsActive != nil {
		review.IsActive = *in.IsActive
	}
	if err := s.reviews.UpdateReview(ctx, review); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, fmt.Errorf("review service: update %w", err)
	}

	s.changed(providerID, EventReviewUpdated, review)
	return review, nil
}

// DeleteReview удаляет отзыв. Доступно автору и staff.
func (s *ReviewService) DeleteReview(ctx context.Context, actor Actor, providerID, reviewID uuid.UUID) error {
	review, err := s.getReview(ctx, providerID, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != actor.UserID && !actor.IsStaff {
		return apperror.ErrForbidden
	}
	if err := s.reviews.DeleteReview(ctx, providerID, reviewID); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return apperror.ErrReviewNotFound
		}
		return fmt.Errorf("review service: delete %w", err)
	}

	s.changed(providerID, EventReviewDeleted, map[string]uuid.UUID{"id": reviewID})
	return nil
}

// ListRates все оценки провайдера.
func (s *ReviewService) ListRates(ctx context.Context, providerID uuid.UUID) ([]models.Rate, error) {
	if err := s.ensureProvider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.reviews.ListRates(ctx, providerID)
}

// Rate ставит оценку 1..5; повторная оценка заменяет предыдущую.
func (s *ReviewService) Rate(ctx context.Context, userID, providerID uuid.UUID, score int) (*RateResult, error) {
	if err := validation.ValidateScore(score, models.MinRateScore, models.MaxRateScore); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := s.ensureProvider(ctx, providerID); err != nil {
		return nil, err
	}

	rate := &models.Rate{UserID: userID, ProviderID: providerID, Score: score}
	if err := s.reviews.UpsertRate(ctx, rate); err != nil {
		return nil, fmt.Errorf("review service: rate %w", err)
	}

	summary, err := s.reviews.GetRatingSummary(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("review service: summary %w", err)
	}

	result := &RateResult{Rate: rate, Summary: summary}
	s.changed(providerID, EventRateUpdated, result)
	return result, nil
}

// DeleteRate снимает оценку пользователя.
func (s *ReviewService) DeleteRate(ctx context.Context, userID, providerID uuid.UUID) (*RateResult, error) {
	if err := s.reviews.DeleteRate(ctx, providerID, userID); err != nil {
		if errors.Is(err, repository.ErrRateNotFound) {
			return nil, apperror.ErrRateNotFound
		}
		return nil, fmt.Errorf("review service: delete rate %w", err)
	}

	summary, err := s.reviews.GetRatingSummary(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("review service: summary %w", err)
	}

	result := &RateResult{Summary: summary}
	s.changed(providerID, EventRateUpdated, result)
	return result, nil
}

func (s *ReviewService) ensureProvider(ctx context.Context, providerID uuid.UUID) error {
	_, err := s.providers.GetByID(ctx, providerID)
	if errors.Is(err, repository.ErrProviderNotFound) {
		return apperror.ErrProviderNotFound
	}
	if err != nil {
		return fmt.Errorf("review service: provider %w", err)
	}
	return nil
}

func (s *ReviewService) getReview(ctx context.Context, providerID, reviewID uuid.UUID) (*models.Review, error) {
	review, err := s.reviews.GetReview(ctx, providerID, reviewID)
	if errors.Is(err, repository.ErrReviewNotFound) {
		return nil, apperror.ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("review service: get %w", err)
	}
	return review, nil
}

// changed сбрасывает кеш карточки и публикует событие.
func (s *ReviewService) changed(providerID uuid.UUID, event string, data interface{}) {
	if s.cache != nil {
		s.cache.InvalidateProvider(providerID)
	}
	if s.feed != nil {
		s.feed.Publish(providerID, event, data)
	}
}

func validateReview(in ReviewInput) (string, string, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if err := validation.ValidateRequired("заголовок", title, validation.MaxReviewTitleLength); err != nil {
		return "", "", apperror.Validation(err)
	}
	if err := validation.ValidateRequired("текст отзыва", description, validation.MaxReviewDescLength); err != nil {
		return "", "", apperror.Validation(err)
	}
	return title, description, nil
}
