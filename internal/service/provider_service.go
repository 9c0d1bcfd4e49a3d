package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
	"github.com/ignatzorin/servicehub-backend/internal/repository/common"
	"github.com/ignatzorin/servicehub-backend/internal/storage"
	"github.com/ignatzorin/servicehub-backend/internal/validation"
)

// ProviderStore карточки провайдеров и вложенные сущности.
type ProviderStore interface {
	EnsureOwner(ctx context.Context, userID uuid.UUID) (*models.Owner, error)
	GetOwnerByUser(ctx context.Context, userID uuid.UUID) (*models.Owner, error)
	Create(ctx context.Context, sp *models.ServiceProvider) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error)
	Update(ctx context.Context, sp *models.ServiceProvider) error
	SetImage(ctx context.Context, providerID uuid.UUID, kind string, path *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter models.ProviderFilter) ([]models.ProviderShort, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ProviderShort, error)

	ListWorkTimes(ctx context.Context, providerID uuid.UUID) ([]models.WorkTime, error)
	GetWorkTime(ctx context.Context, providerID, id uuid.UUID) (*models.WorkTime, error)
	CreateWorkTime(ctx context.Context, wt *models.WorkTime) error
	UpdateWorkTime(ctx context.Context, wt *models.WorkTime) error
	DeleteWorkTime(ctx context.Context, providerID, id uuid.UUID) error

	ListTags(ctx context.Context, providerID uuid.UUID) ([]models.Tag, error)
	ListTagsForProviders(ctx context.Context, providerIDs []uuid.UUID) (map[uuid.UUID][]models.Tag, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	DeleteTag(ctx context.Context, providerID, id uuid.UUID) error

	ListImages(ctx context.Context, providerID uuid.UUID) ([]models.Image, error)
	GetImage(ctx context.Context, providerID, id uuid.UUID) (*models.Image, error)
	CreateImage(ctx context.Context, img *models.Image) error
	DeleteImage(ctx context.Context, providerID, id uuid.UUID) error

	ListExperts(ctx context.Context, providerID uuid.UUID) ([]models.ProviderExpert, error)
	AddExpert(ctx context.Context, pe *models.ProviderExpert) error
	RemoveExpert(ctx context.Context, providerID, expertID uuid.UUID) error
}

// ProviderLookups справочники, нужные карточке провайдера.
type ProviderLookups interface {
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	GetExpert(ctx context.Context, id uuid.UUID) (*models.Expert, error)
	EnsureTagKey(ctx context.Context, name string) (*models.TagKey, error)
}

// RatingReader отзывы и оценки для детальной карточки.
type RatingReader interface {
	ListReviews(ctx context.Context, providerID uuid.UUID, onlyActive bool) ([]models.Review, error)
	ListRates(ctx context.Context, providerID uuid.UUID) ([]models.Rate, error)
	GetRatingSummary(ctx context.Context, providerID uuid.UUID) (*models.RatingSummary, error)
	GetUserRate(ctx context.Context, providerID, userID uuid.UUID) (*models.Rate, error)
}

// ImageStore файловое хранилище изображений.
type ImageStore interface {
	Save(ctx context.Context, providerID uuid.UUID, originalName string, r io.ReadSeeker) (*storage.StoredFile, error)
	Delete(ctx context.Context, relativePath string) error
}

// Actor пользователь, выполняющий изменение.
type Actor struct {
	UserID  uuid.UUID
	IsStaff bool
}

// ProviderInput редактируемые поля карточки.
type ProviderInput struct {
	Name       string
	AddressID  *uuid.UUID
	CategoryID *uuid.UUID
	Location   string
}

// OwnerOverview владелец и его провайдеры.
type OwnerOverview struct {
	Owner     *models.Owner          `json:"owner"`
	Providers []models.ProviderShort `json:"providers"`
}

const (
	defaultProviderPageSize = 20
	maxProviderPageSize     = 100
)

// ProviderService каталог сервис-провайдеров.
type ProviderService struct {
	providers ProviderStore
	lookups   ProviderLookups
	ratings   RatingReader
	images    ImageStore
	cache     *CacheService
	cacheTTL  time.Duration
}

func NewProviderService(
	providers ProviderStore,
	lookups ProviderLookups,
	ratings RatingReader,
	images ImageStore,
	cache *CacheService,
	cacheTTL time.Duration,
) *ProviderService {
	return &ProviderService{
		providers: providers,
		lookups:   lookups,
		ratings:   ratings,
		images:    images,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

// List возвращает короткие карточки с тегами.
func (s *ProviderService) List(ctx context.Context, filter models.ProviderFilter) ([]models.ProviderShort, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultProviderPageSize
	}
	if filter.Limit > maxProviderPageSize {
		filter.Limit = maxProviderPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Query = strings.TrimSpace(filter.Query)

	items, err := s.providers.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("provider service: list %w", err)
	}
	if err := s.attachTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ProviderService) attachTags(ctx context.Context, items []models.ProviderShort) error {
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	tags, err := s.providers.ListTagsForProviders(ctx, ids)
	if err != nil {
		return fmt.Errorf("provider service: tags %w", err)
	}
	for i := range items {
		items[i].Tags = tags[items[i].ID]
		if items[i].Tags == nil {
			items[i].Tags = []models.Tag{}
		}
	}
	return nil
}

// Get возвращает детальную карточку. viewer, если задан, получает свою оценку в user_rate.
func (s *ProviderService) Get(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*models.ProviderDetail, error) {
	cached, err := s.cache.GetOrSet(ctx, ProviderDetailCacheKey(id), s.cacheTTL, func() (interface{}, error) {
		return s.buildDetail(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	// кешированная карточка общая для всех, копируем перед заполнением user_rate
	detail := *cached.(*models.ProviderDetail)
	detail.UserRate = nil
	if viewer != nil {
		rate, err := s.ratings.GetUserRate(ctx, id, *viewer)
		switch {
		case err == nil:
			detail.UserRate = &rate.Score
		case !errors.Is(err, repository.ErrRateNotFound):
			return nil, fmt.Errorf("provider service: user rate %w", err)
		}
	}
	return &detail, nil
}

func (s *ProviderService) buildDetail(ctx context.Context, id uuid.UUID) (*models.ProviderDetail, error) {
	sp, err := s.getProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.ProviderDetail{ServiceProvider: *sp}

	if sp.CategoryID != nil {
		category, err := s.lookups.GetCategory(ctx, *sp.CategoryID)
		if err != nil && !errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, fmt.Errorf("provider service: category %w", err)
		}
		detail.Category = category
	}
	if sp.AddressID != nil {
		address, err := s.lookups.GetAddress(ctx, *sp.AddressID)
		if err != nil && !errors.Is(err, repository.ErrAddressNotFound) {
			return nil, fmt.Errorf("provider service: address %w", err)
		}
		detail.Address = address
	}

	if detail.WorkTimes, err = s.providers.ListWorkTimes(ctx, id); err != nil {
		return nil, err
	}
	if detail.Tags, err = s.providers.ListTags(ctx, id); err != nil {
		return nil, err
	}
	if detail.Images, err = s.providers.ListImages(ctx, id); err != nil {
		return nil, err
	}
	if detail.Expertises, err = s.providers.ListExperts(ctx, id); err != nil {
		return nil, err
	}
	if detail.Reviews, err = s.ratings.ListReviews(ctx, id, true); err != nil {
		return nil, err
	}
	if detail.Rates, err = s.ratings.ListRates(ctx, id); err != nil {
		return nil, err
	}

	summary, err := s.ratings.GetRatingSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.AverageRating = summary.Average
	detail.RateCount = summary.Count

	return detail, nil
}

// Create создаёт карточку; вызывающий становится владельцем.
func (s *ProviderService) Create(ctx context.Context, actor Actor, in ProviderInput) (*models.ServiceProvider, error) {
	if err := validateProviderInput(&in); err != nil {
		return nil, err
	}

	owner, err := s.providers.EnsureOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("provider service: owner %w", err)
	}

	sp := &models.ServiceProvider{
		Name:        in.Name,
		OwnerID:     owner.ID,
		OwnerUserID: actor.UserID,
		AddressID:   in.AddressID,
		CategoryID:  in.CategoryID,
		Location:    in.Location,
	}
	if err := s.providers.Create(ctx, sp); err != nil {
		return nil, mapProviderWrite(err)
	}
	return sp, nil
}

// Update меняет карточку. Доступно владельцу и staff.
func (s *ProviderService) Update(ctx context.Context, actor Actor, id uuid.UUID, in ProviderInput) (*models.ServiceProvider, error) {
	if err := validateProviderInput(&in); err != nil {
		return nil, err
	}

	sp, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	sp.Name = in.Name
	sp.AddressID = in.AddressID
	sp.CategoryID = in.CategoryID
	sp.Location = in.Location
	if err := s.providers.Update(ctx, sp); err != nil {
		return nil, mapProviderWrite(err)
	}

	s.cache.InvalidateProvider(id)
	return sp, nil
}

// Delete удаляет карточку вместе с файлами изображений.
func (s *ProviderService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}

	images, err := s.providers.ListImages(ctx, id)
	if err != nil {
		return err
	}
	if err := s.providers.Delete(ctx, id); err != nil {
		return mapProviderWrite(err)
	}
	s.cache.InvalidateProvider(id)

	for _, img := range images {
		s.removeFile(ctx, img.FilePath)
	}
	return nil
}

// OwnerOverview возвращает запись владельца и его провайдеров.
func (s *ProviderService) OwnerOverview(ctx context.Context, userID uuid.UUID) (*OwnerOverview, error) {
	owner, err := s.providers.GetOwnerByUser(ctx, userID)
	if errors.Is(err, repository.ErrOwnerNotFound) {
		return nil, apperror.ErrOwnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("provider service: owner %w", err)
	}

	items, err := s.providers.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, items); err != nil {
		return nil, err
	}
	return &OwnerOverview{Owner: owner, Providers: items}, nil
}

// Exists возвращает ErrProviderNotFound для несуществующего провайдера.
func (s *ProviderService) Exists(ctx context.Context, id uuid.UUID) error {
	_, err := s.getProvider(ctx, id)
	return err
}

func (s *ProviderService) getProvider(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error) {
	sp, err := s.providers.GetByID(ctx, id)
	if errors.Is(err, repository.ErrProviderNotFound) {
		return nil, apperror.ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("provider service: get %w", err)
	}
	return sp, nil
}

// authorize загружает провайдера и проверяет, что actor его владелец или staff.
func (s *ProviderService) authorize(ctx context.Context, actor Actor, id uuid.UUID) (*models.ServiceProvider, error) {
	sp, err := s.getProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff && sp.OwnerUserID != actor.UserID {
		return nil, apperror.ErrForbidden
	}
	return sp, nil
}

func (s *ProviderService) removeFile(ctx context.Context, path string) {
	if err := s.images.Delete(ctx, path); err != nil {
		logger.WithFields(logrus.Fields{
			"path":  path,
			"error": err.Error(),
		}).Warn("provider service: не удалось удалить файл")
	}
}

func validateProviderInput(in *ProviderInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if err := validation.ValidateRequired("название", in.Name, validation.MaxNameLength); err != nil {
		return apperror.Validation(err)
	}
	if err := validation.ValidateLength("местоположение", in.Location, 0, validation.MaxLocationLength); err != nil {
		return apperror.Validation(err)
	}
	return nil
}

// mapProviderWrite несуществующие категория или адрес приходят как нарушение внешнего ключа.
func mapProviderWrite(err error) error {
	switch {
	case errors.Is(err, repository.ErrProviderNotFound):
		return apperror.ErrProviderNotFound
	case errors.Is(err, common.ErrInvalidInput):
		return apperror.Wrap(err, apperror.ErrCodeValidation, "категория или адрес не найдены")
	}
	return fmt.Errorf("provider service: %w", err)
}
