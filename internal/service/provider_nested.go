package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
	"github.com/ignatzorin/servicehub-backend/internal/repository/common"
	"github.com/ignatzorin/servicehub-backend/internal/storage"
	"github.com/ignatzorin/servicehub-backend/internal/validation"
)

// WorkTimeInput интервал работы. Время в формате HH:MM или HH:MM:SS.
type WorkTimeInput struct {
	WeekdayID int
	TimeStart string
	TimeEnd   string
	IsActive  *bool
}

// TagInput тег провайдера; ключ создаётся при первом использовании.
type TagInput struct {
	Key   string
	Value string
}

// --- рабочее время ---

func (s *ProviderService) ListWorkTimes(ctx context.Context, providerID uuid.UUID) ([]models.WorkTime, error) {
	if _, err := s.getProvider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.providers.ListWorkTimes(ctx, providerID)
}

func (s *ProviderService) CreateWorkTime(ctx context.Context, actor Actor, providerID uuid.UUID, in WorkTimeInput) (*models.WorkTime, error) {
	wt, err := buildWorkTime(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, providerID); err != nil {
		return nil, err
	}

	wt.ProviderID = providerID
	if err := s.providers.CreateWorkTime(ctx, wt); err != nil {
		return nil, mapWorkTimeWrite(err)
	}
	s.cache.InvalidateProvider(providerID)
	return wt, nil
}

func (s *ProviderService) UpdateWorkTime(ctx context.Context, actor Actor, providerID, id uuid.UUID, in WorkTimeInput) (*models.WorkTime, error) {
	wt, err := buildWorkTime(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, providerID); err != nil {
		return nil, err
	}

	wt.ID = id
	wt.ProviderID = providerID
	if err := s.providers.UpdateWorkTime(ctx, wt); err != nil {
		return nil, mapWorkTimeWrite(err)
	}
	s.cache.InvalidateProvider(providerID)
	return s.providers.GetWorkTime(ctx, providerID, id)
}

func (s *ProviderService) DeleteWorkTime(ctx context.Context, actor Actor, providerID, id uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, providerID); err != nil {
		return err
	}
	if err := s.providers.DeleteWorkTime(ctx, providerID, id); err != nil {
		return mapWorkTimeWrite(err)
	}
	s.cache.InvalidateProvider(providerID)
	return nil
}

func buildWorkTime(in WorkTimeInput) (*models.WorkTime, error) {
	if in.WeekdayID < 1 || in.WeekdayID > 7 {
		return nil, apperror.ErrWeekdayNotFound
	}
	start, end, err := validation.ValidateTimeRange(in.TimeStart, in.TimeEnd)
	if err != nil {
		return nil, apperror.Validation(err)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &models.WorkTime{WeekdayID: in.WeekdayID, TimeStart: start, TimeEnd: end, IsActive: active}, nil
}

func mapWorkTimeWrite(err error) error {
	switch {
	case errors.Is(err, repository.ErrWorkTimeNotFound):
		return apperror.ErrWorkTimeNotFound
	case errors.Is(err, common.ErrInvalidInput):
		return apperror.ErrWeekdayNotFound
	}
	return fmt.Errorf("provider service: work time %w", err)
}

// --- теги ---

func (s *ProviderService) ListTags(ctx context.Context, providerID uuid.UUID) ([]models.Tag, error) {
	if _, err := s.getProvider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.providers.ListTags(ctx, providerID)
}

func (s *ProviderService) CreateTag(ctx context.Context, actor Actor, providerID uuid.UUID, in TagInput) (*models.Tag, error) {
	key := strings.TrimSpace(in.Key)
	value := strings.TrimSpace(in.Value)
	if err := validation.ValidateRequired("ключ тега", key, validation.MaxTagKeyLength); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := validation.ValidateRequired("значение тега", value, validation.MaxNameLength); err != nil {
		return nil, apperror.Validation(err)
	}
	if _, err := s.authorize(ctx, actor, providerID); err != nil {
		return nil, err
	}

	tagKey, err := s.lookups.EnsureTagKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("provider service: tag key %w", err)
	}

	tag := &models.Tag{ProviderID: providerID, KeyID: tagKey.ID, KeyName: tagKey.Name, Value: value}
	if err := s.providers.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, apperror.ErrTagExists
		}
		return nil, fmt.Errorf("provider service: create tag %w", err)
	}
	s.cache.InvalidateProvider(providerID)
	return tag, nil
}

func (s *ProviderService) DeleteTag(ctx context.Context, actor Actor, providerID, id uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, providerID); err != nil {
		return err
	}
	if err := s.providers.DeleteTag(ctx, providerID, id); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			return apperror.ErrTagNotFound
		}
		return err
	}
	s.cache.InvalidateProvider(providerID)
	return nil
}

// --- изображения ---

func (s *ProviderService) ListImages(ctx context.Context, providerID uuid.UUID) ([]models.Image, error) {
	if _, err := s.getProvider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.providers.ListImages(ctx, providerID)
}

// UploadImage сохраняет файл; logo и main дополнительно проставляются в карточку.
func (s *ProviderService) UploadImage(ctx context.Context, actor Actor, providerID uuid.UUID, kind, fileName string, r io.ReadSeeker) (*models.Image, error) {
	if kind == "" {
		kind = models.ImageKindGallery
	}
	switch kind {
	case models.ImageKindGallery, models.ImageKindLogo, models.ImageKindMain:
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "kind должен быть gallery, logo или main")
	}

	if _, err := s.authorize(ctx, actor, providerID); err != nil {
		return nil, err
	}

	stored, err := s.images.Save(ctx, providerID, fileName, r)
	if err != nil {
		if isStorageRejection(err) {
			return nil, apperror.Validation(err)
		}
		return nil, fmt.Errorf("provider service: save image %w", err)
	}

	img := &models.Image{
		ProviderID:  providerID,
		FilePath:    stored.Path,
		Kind:        kind,
		ContentType: stored.ContentType,
		FileSize:    stored.Size,
	}
	if err := s.providers.CreateImage(ctx, img); err != nil {
		s.removeFile(ctx, stored.Path)
		return nil, fmt.Errorf("provider service: create image %w", err)
	}

	if kind != models.ImageKindGallery {
		if err := s.providers.SetImage(ctx, providerID, kind, &img.FilePath); err != nil {
			return nil, fmt.Errorf("provider service: set %s %w", kind, err)
		}
	}

	s.cache.InvalidateProvider(providerID)
	return img, nil
}

// DeleteImage удаляет изображение; если оно было logo или main, поле в карточке очищается.
func (s *ProviderService) DeleteImage(ctx context.Context, actor Actor, providerID, id uuid.UUID) error {
	sp, err := s.authorize(ctx, actor, providerID)
	if err != nil {
		return err
	}

	img, err := s.providers.GetImage(ctx, providerID, id)
	if errors.Is(err, repository.ErrImageNotFound) {
		return apperror.ErrImageNotFound
	}
	if err != nil {
		return err
	}

	if err := s.providers.DeleteImage(ctx, providerID, id); err != nil {
		return err
	}

	for kind, current := range map[string]*string{models.ImageKindLogo: sp.LogoImage, models.ImageKindMain: sp.MainImage} {
		if current != nil && *current == img.FilePath {
			if err := s.providers.SetImage(ctx, providerID, kind, nil); err != nil {
				return fmt.Errorf("provider service: clear %s %w", kind, err)
			}
		}
	}

	s.cache.InvalidateProvider(providerID)
	s.removeFile(ctx, img.FilePath)
	return nil
}

func isStorageRejection(err error) bool {
	return errors.Is(err, storage.ErrEmptyFile) ||
		errors.Is(err, storage.ErrFileTooLarge) ||
		errors.Is(err, storage.ErrUnsupportedType) ||
		errors.Is(err, storage.ErrExtensionClash)
}

// --- специализации ---

func (s *ProviderService) ListExperts(ctx context.Context, providerID uuid.UUID) ([]models.ProviderExpert, error) {
	if _, err := s.getProvider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.providers.ListExperts(ctx, providerID)
}

func (s *ProviderService) AddExpert(ctx context.Context, actor Actor, providerID, expertID uuid.UUID, isActive *bool) (*models.ProviderExpert, error) {
	if _, err := s.authorize(ctx, actor, providerID); err != nil {
		return nil, err
	}
	if _, err := s.lookups.GetExpert(ctx, expertID); err != nil {
		if errors.Is(err, repository.ErrExpertNotFound) {
			return nil, apperror.ErrExpertNotFound
		}
		return nil, err
	}

	pe := &models.ProviderExpert{ProviderID: providerID, ExpertID: expertID, IsActive: true}
	if isActive != nil {
		pe.IsActive = *isActive
	}
	if err := s.providers.AddExpert(ctx, pe); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, apperror.ErrProviderExpertExists
		}
		return nil, fmt.Errorf("provider service: add expert %w", err)
	}
	s.cache.InvalidateProvider(providerID)
	return pe, nil
}

func (s *ProviderService) RemoveExpert(ctx context.Context, actor Actor, providerID, expertID uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, providerID); err != nil {
		return err
	}
	if err := s.providers.RemoveExpert(ctx, providerID, expertID); err != nil {
		if errors.Is(err, repository.ErrExpertNotFound) {
			return apperror.ErrExpertNotFound
		}
		return err
	}
	s.cache.InvalidateProvider(providerID)
	return nil
}
