package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает учётную запись. Хотя бы одно из Email/PhoneNumber заполнено всегда.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Username     *string    `db:"username" json:"username,omitempty"`
	Email        *string    `db:"email" json:"email,omitempty"`
	PhoneNumber  *string    `db:"phone_number" json:"phone_number,omitempty"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	IsStaff      bool       `db:"is_staff" json:"is_staff"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// HasPassword сообщает, может ли пользователь входить по паролю.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// UsernameValue возвращает username или пустую строку.
func (u *User) UsernameValue() string {
	return StringValue(u.Username)
}

// EmailValue возвращает email или пустую строку.
func (u *User) EmailValue() string {
	return StringValue(u.Email)
}

// PhoneValue возвращает номер телефона или пустую строку.
func (u *User) PhoneValue() string {
	return StringValue(u.PhoneNumber)
}

// OTP одноразовый код входа. На пользователя хранится одна строка,
// повторная выдача перезаписывает значение и время создания.
type OTP struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Value     string    `db:"value" json:"-"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DefaultOTPLifetime время жизни кода.
const DefaultOTPLifetime = 300 * time.Second

// IsExpired true, когда с момента выдачи прошло ttl или больше.
func (o *OTP) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(o.CreatedAt) >= ttl
}

// IsValid код активен и ещё не истёк.
func (o *OTP) IsValid(now time.Time, ttl time.Duration) bool {
	return o.IsActive && !o.IsExpired(now, ttl)
}

// SecurityEvent запись об успешном входе.
type SecurityEvent struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	IPAddress *string   `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent *string   `db:"user_agent" json:"user_agent,omitempty"`
	LoginTime time.Time `db:"login_time" json:"login_time"`
}

// UserDetail дополнительные данные профиля.
type UserDetail struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Firstname *string   `db:"firstname" json:"firstname,omitempty"`
	Lastname  *string   `db:"lastname" json:"lastname,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Location  *string   `db:"location" json:"location,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StringValue разыменовывает указатель, nil превращается в "".
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr возвращает nil для пустой строки.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
