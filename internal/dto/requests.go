package dto

import (
	"github.com/google/uuid"
)

// Обязательность полей auth-запросов проверяет сервис, чтобы вернуть точный код ошибки.

// SignUpRequest POST /auth/sign-up
type SignUpRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	Username    string `json:"username"`
}

// SendOTPRequest POST /auth/send-otp
type SendOTPRequest struct {
	Identifier string `json:"identifier"`
}

// VerifyOTPRequest POST /auth/verify-otp
type VerifyOTPRequest struct {
	Identifier string `json:"identifier"`
	OTP        string `json:"otp"`
}

// LoginRequest POST /auth/login
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	OTP        string `json:"otp"`
}

// TokenRequest POST /auth/token
type TokenRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RefreshRequest POST /auth/token/refresh
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type UpdateProfileRequest struct {
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Address   *string `json:"address"`
	Location  *string `json:"location"`
}

type CategoryRequest struct {
	Name string  `json:"name" binding:"required"`
	Icon *string `json:"icon"`
}

type CityRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddressRequest struct {
	District      string    `json:"district" binding:"required"`
	CityID        uuid.UUID `json:"city_id" binding:"required"`
	Neighbourhood string    `json:"neighbourhood"`
	FullAddress   string    `json:"full_address" binding:"required"`
}

type ExpertRequest struct {
	Name       string     `json:"name" binding:"required"`
	CategoryID *uuid.UUID `json:"category_id"`
	Icon       *string    `json:"icon"`
}

// ProviderRequest создание и редактирование карточки провайдера.
type ProviderRequest struct {
	Name       string     `json:"name" binding:"required"`
	AddressID  *uuid.UUID `json:"address_id"`
	CategoryID *uuid.UUID `json:"category_id"`
	Location   string     `json:"location"`
}

// WorkTimeRequest время в формате HH:MM или HH:MM:SS.
type WorkTimeRequest struct {
	WeekdayID int    `json:"weekday_id" binding:"required"`
	TimeStart string `json:"time_start" binding:"required"`
	TimeEnd   string `json:"time_end" binding:"required"`
	IsActive  *bool  `json:"is_active"`
}

type TagRequest struct {
	Key   string `json:"key_name" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type ProviderExpertRequest struct {
	ExpertID uuid.UUID `json:"expert_id" binding:"required"`
	IsActive *bool     `json:"is_active"`
}

type ReviewRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	IsActive    *bool  `json:"is_active"`
}

// RateRequest оценка 1..5; диапазон проверяет сервис.
type RateRequest struct {
	Score int `json:"score"`
}

// SeedRequest POST /seed
type SeedRequest struct {
	Users     int `json:"users"`
	Providers int `json:"providers"`
}
