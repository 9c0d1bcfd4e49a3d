package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
)

// SeedPassword пароль всех сгенерированных пользователей.
const SeedPassword = "password123"

// SeedService генерирует фейковые данные для локальной разработки.
type SeedService struct {
	userRepo     *repository.UserRepository
	catalogRepo  *repository.CatalogRepository
	providerRepo *repository.ProviderRepository
	reviewRepo   *repository.ReviewRepository
	hasher       PasswordHasher
	rnd          *rand.Rand
}

// SeedResult количество созданных записей.
type SeedResult struct {
	Users     int    `json:"users"`
	Providers int    `json:"providers"`
	Tags      int    `json:"tags"`
	Reviews   int    `json:"reviews"`
	Password  string `json:"password"`
}

// NewSeedService создаёт новый сервис для генерации данных.
func NewSeedService(
	userRepo *repository.UserRepository,
	catalogRepo *repository.CatalogRepository,
	providerRepo *repository.ProviderRepository,
	reviewRepo *repository.ReviewRepository,
	hasher PasswordHasher,
) *SeedService {
	return &SeedService{
		userRepo:     userRepo,
		catalogRepo:  catalogRepo,
		providerRepo: providerRepo,
		reviewRepo:   reviewRepo,
		hasher:       hasher,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var (
	seedCategories = []string{"Автосервис", "Красота", "Ремонт техники", "Клининг", "Доставка", "Фитнес"}
	seedCities     = []string{"Ташкент", "Самарканд", "Бухара"}
	seedDistricts  = []string{"Центральный", "Северный", "Южный", "Западный"}
	seedNames      = []string{"Мастер", "Профи", "Экспресс", "Сервис+", "Точка", "Лидер", "Старт", "Гранд"}
	seedTagKeys    = map[string][]string{
		"wifi":    {"есть", "нет"},
		"parking": {"бесплатная", "платная", "нет"},
		"payment": {"наличные", "карта", "перевод"},
	}
	seedReviewTitles = []string{"Отлично", "Хорошо", "Нормально", "Рекомендую", "Быстро"}
)

// SeedData создаёт справочники, пользователей и провайдеров с тегами, расписанием и оценками.
func (s *SeedService) SeedData(ctx context.Context, numUsers, numProviders int) (*SeedResult, error) {
	result := &SeedResult{Password: SeedPassword}

	categories, err := s.seedCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed service: categories %w", err)
	}
	addresses, err := s.seedAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed service: addresses %w", err)
	}

	users, err := s.seedUsers(ctx, numUsers)
	if err != nil {
		return nil, fmt.Errorf("seed service: users %w", err)
	}
	result.Users = len(users)
	if len(users) == 0 {
		return result, nil
	}

	var tags []models.Tag
	for i := 0; i < numProviders; i++ {
		owner := users[s.rnd.Intn(len(users))]
		sp, err := s.seedProvider(ctx, owner, categories, addresses)
		if err != nil {
			return nil, fmt.Errorf("seed service: provider %w", err)
		}
		result.Providers++

		providerTags, err := s.providerTags(ctx, sp.ID)
		if err != nil {
			return nil, fmt.Errorf("seed service: tags %w", err)
		}
		tags = append(tags, providerTags...)

		reviews, err := s.seedFeedback(ctx, sp.ID, users)
		if err != nil {
			return nil, fmt.Errorf("seed service: reviews %w", err)
		}
		result.Reviews += reviews
	}

	if err := s.providerRepo.BulkCreateTags(ctx, tags); err != nil {
		return nil, fmt.Errorf("seed service: bulk tags %w", err)
	}
	result.Tags = len(tags)

	logger.WithFields(logrus.Fields{
		"users":     result.Users,
		"providers": result.Providers,
		"tags":      result.Tags,
		"reviews":   result.Reviews,
	}).Info("Тестовые данные созданы")

	return result, nil
}

func (s *SeedService) seedCategories(ctx context.Context) ([]models.Category, error) {
	existing, err := s.catalogRepo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	for _, name := range seedCategories {
		category := models.Category{Name: name}
		if err := s.catalogRepo.CreateCategory(ctx, &category); err != nil {
			return nil, err
		}
		existing = append(existing, category)
	}
	return existing, nil
}

func (s *SeedService) seedAddresses(ctx context.Context) ([]models.Address, error) {
	existing, err := s.catalogRepo.ListAddresses(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	for _, cityName := range seedCities {
		city := models.City{Name: cityName}
		if err := s.catalogRepo.CreateCity(ctx, &city); err != nil {
			return nil, err
		}
		for _, district := range seedDistricts {
			address := models.Address{
				CityID:        city.ID,
				CityName:      city.Name,
				District:      district,
				Neighbourhood: fmt.Sprintf("Махалля %d", s.rnd.Intn(40)+1),
				FullAddress:   fmt.Sprintf("%s, %s р-н, ул. %d", city.Name, district, s.rnd.Intn(200)+1),
			}
			if err := s.catalogRepo.CreateAddress(ctx, &address); err != nil {
				return nil, err
			}
			existing = append(existing, address)
		}
	}
	return existing, nil
}

func (s *SeedService) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	hash, err := s.hasher.Hash(SeedPassword)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		suffix := uuid.NewString()[:8]
		username := "user_" + suffix
		email := username + "@example.com"
		phone := fmt.Sprintf("+99890%07d", s.rnd.Intn(10000000))

		user := models.User{
			Username:     &username,
			Email:        &email,
			PhoneNumber:  &phone,
			PasswordHash: &hash,
			IsActive:     true,
		}
		if err := s.userRepo.Create(ctx, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *SeedService) seedProvider(ctx context.Context, owner models.User, categories []models.Category, addresses []models.Address) (*models.ServiceProvider, error) {
	o, err := s.providerRepo.EnsureOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	sp := &models.ServiceProvider{
		Name:        fmt.Sprintf("%s %s", seedNames[s.rnd.Intn(len(seedNames))], uuid.NewString()[:4]),
		OwnerID:     o.ID,
		OwnerUserID: owner.ID,
		Location:    fmt.Sprintf("41.%04d,69.%04d", s.rnd.Intn(10000), s.rnd.Intn(10000)),
	}
	if len(categories) > 0 {
		sp.CategoryID = &categories[s.rnd.Intn(len(categories))].ID
	}
	if len(addresses) > 0 {
		sp.AddressID = &addresses[s.rnd.Intn(len(addresses))].ID
	}
	if err := s.providerRepo.Create(ctx, sp); err != nil {
		return nil, err
	}

	// пн-пт с 09:00 до 18:00, суббота короче
	for weekday := 1; weekday <= 6; weekday++ {
		end := "18:00:00"
		if weekday == 6 {
			end = "14:00:00"
		}
		wt := &models.WorkTime{ProviderID: sp.ID, WeekdayID: weekday, TimeStart: "09:00:00", TimeEnd: end, IsActive: true}
		if err := s.providerRepo.CreateWorkTime(ctx, wt); err != nil {
			return nil, err
		}
	}
	return sp, nil
}

func (s *SeedService) providerTags(ctx context.Context, providerID uuid.UUID) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(seedTagKeys))
	for key, values := range seedTagKeys {
		tagKey, err := s.catalogRepo.EnsureTagKey(ctx, key)
		if err != nil {
			return nil, err
		}
		tags = append(tags, models.Tag{
			ProviderID: providerID,
			KeyID:      tagKey.ID,
			KeyName:    tagKey.Name,
			Value:      values[s.rnd.Intn(len(values))],
		})
	}
	return tags, nil
}

// seedFeedback часть пользователей оставляет отзыв и оценку.
func (s *SeedService) seedFeedback(ctx context.Context, providerID uuid.UUID, users []models.User) (int, error) {
	created := 0
	for _, user := range users {
		if s.rnd.Intn(3) != 0 {
			continue
		}
		rate := &models.Rate{UserID: user.ID, ProviderID: providerID, Score: s.rnd.Intn(models.MaxRateScore) + 1}
		if err := s.reviewRepo.UpsertRate(ctx, rate); err != nil {
			return created, err
		}
		review := &models.Review{
			UserID:      user.ID,
			ProviderID:  providerID,
			Title:       seedReviewTitles[s.rnd.Intn(len(seedReviewTitles))],
			Description: "Сгенерированный отзыв",
			IsActive:    true,
		}
		if err := s.reviewRepo.CreateReview(ctx, review); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
