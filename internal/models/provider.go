package models

import (
	"time"

	"github.com/google/uuid"
)

// Category категория сервис-провайдеров.
type Category struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Icon      *string   `db:"icon" json:"icon,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type City struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// Address адрес с названием города (city_name подтягивается join-ом).
type Address struct {
	ID            uuid.UUID `db:"id" json:"id"`
	District      string    `db:"district" json:"district"`
	CityID        uuid.UUID `db:"city_id" json:"city_id"`
	CityName      string    `db:"city_name" json:"city_name"`
	Neighbourhood string    `db:"neighbourhood" json:"neighbourhood"`
	FullAddress   string    `db:"full_address" json:"full_address"`
}

type Weekday struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// WorkTime интервал работы провайдера в конкретный день недели.
// Время хранится в формате HH:MM:SS.
type WorkTime struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProviderID  uuid.UUID `db:"provider_id" json:"provider_id"`
	WeekdayID   int       `db:"weekday_id" json:"weekday_id"`
	WeekdayName string    `db:"weekday_name" json:"weekday_name"`
	TimeStart   string    `db:"time_start" json:"time_start"`
	TimeEnd     string    `db:"time_end" json:"time_end"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type TagKey struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// Tag пара ключ/значение, уникальная в пределах провайдера.
type Tag struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	KeyID      uuid.UUID `db:"key_id" json:"key_id"`
	KeyName    string    `db:"key_name" json:"key"`
	Value      string    `db:"value" json:"value"`
}

// Виды изображений провайдера.
const (
	ImageKindGallery = "gallery"
	ImageKindLogo    = "logo"
	ImageKindMain    = "main"
)

type Image struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProviderID  uuid.UUID `db:"provider_id" json:"provider_id"`
	FilePath    string    `db:"file_path" json:"file_path"`
	Kind        string    `db:"kind" json:"kind"`
	ContentType string    `db:"content_type" json:"content_type"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Owner связывает пользователя с его провайдерами. Один на пользователя.
type Owner struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ServiceProvider карточка сервис-провайдера.
type ServiceProvider struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	LogoImage   *string    `db:"logo_image" json:"logo_image,omitempty"`
	MainImage   *string    `db:"main_image" json:"main_image,omitempty"`
	OwnerID     uuid.UUID  `db:"owner_id" json:"owner_id"`
	OwnerUserID uuid.UUID  `db:"owner_user_id" json:"-"`
	OwnerName   *string    `db:"owner_username" json:"owner_username,omitempty"`
	AddressID   *uuid.UUID `db:"address_id" json:"address_id,omitempty"`
	CategoryID  *uuid.UUID `db:"category_id" json:"category_id,omitempty"`
	Location    string     `db:"location" json:"location"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ProviderShort строка списка провайдеров.
type ProviderShort struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	LogoImage     *string   `db:"logo_image" json:"logo_image,omitempty"`
	MainImage     *string   `db:"main_image" json:"main_image,omitempty"`
	CategoryName  *string   `db:"category_name" json:"category_name"`
	RateCount     int       `db:"rate_count" json:"rate_count"`
	AverageRating *float64  `db:"average_rating" json:"average_rating"`
	Tags          []Tag     `db:"-" json:"tags"`
}

// ProviderFilter параметры выборки списка.
type ProviderFilter struct {
	CategoryID *uuid.UUID
	Query      string
	Limit      int
	Offset     int
}

type Review struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	ProviderID  uuid.UUID `db:"provider_id" json:"provider_id"`
	Username    *string   `db:"username" json:"username,omitempty"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	HasRated    bool      `db:"has_rated" json:"has_rated"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Rate оценка 1..5, одна на пару пользователь/провайдер.
type Rate struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	Score      int       `db:"score" json:"score"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

const (
	MinRateScore = 1
	MaxRateScore = 5
)

// RatingSummary агрегат по оценкам провайдера. Average nil, если оценок нет.
type RatingSummary struct {
	Average *float64 `db:"average" json:"average_rating"`
	Count   int      `db:"count" json:"rate_count"`
}

type Expert struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	CategoryID *uuid.UUID `db:"category_id" json:"category_id,omitempty"`
	Icon       *string    `db:"icon" json:"icon,omitempty"`
}

// ProviderExpert специализация провайдера.
type ProviderExpert struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	ExpertID   uuid.UUID `db:"expert_id" json:"expert_id"`
	ExpertName string    `db:"expert_name" json:"expert_name"`
	IsActive   bool      `db:"is_active" json:"is_active"`
}

// ProviderDetail полная карточка провайдера для GET /service-providers/:id.
type ProviderDetail struct {
	ServiceProvider
	Category      *Category        `json:"category,omitempty"`
	Address       *Address         `json:"address,omitempty"`
	WorkTimes     []WorkTime       `json:"work_times"`
	Tags          []Tag            `json:"tags"`
	Images        []Image          `json:"images"`
	Reviews       []Review         `json:"reviews"`
	Rates         []Rate           `json:"rates"`
	Expertises    []ProviderExpert `json:"expertises"`
	AverageRating *float64         `json:"average_rating"`
	RateCount     int              `json:"rate_count"`
	UserRate      *int             `json:"user_rate"`
}
