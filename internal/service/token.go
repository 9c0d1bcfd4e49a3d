package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrWrongTokenType токен подписан верно, но предназначен для другого использования.
var ErrWrongTokenType = errors.New("token: wrong token type")

// TokenPair пара access/refresh токенов в формате ответа API.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessClaims данные, извлекаемые из access токена.
type AccessClaims struct {
	UserID uuid.UUID
	Staff  bool
}

// TokenSigner выпускает и проверяет токены.
type TokenSigner interface {
	IssuePair(user *models.User) (*TokenPair, error)
	ParseAccess(token string) (*AccessClaims, error)
	RefreshAccess(refresh string) (string, error)
}

type tokenClaims struct {
	Username  string `json:"username,omitempty"`
	Staff     bool   `json:"staff"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssuePair выпускает новую пару токенов. Ничего не сохраняет.
func (m *TokenManager) IssuePair(user *models.User) (*TokenPair, error) {
	base := tokenClaims{
		Username: user.UsernameValue(),
		Staff:    user.IsStaff,
	}

	access, err := m.sign(base, user.ID.String(), tokenTypeAccess, m.accessTTL, m.accessSecret)
	if err != nil {
		return nil, err
	}

	refresh, err := m.sign(base, user.ID.String(), tokenTypeRefresh, m.refreshTTL, m.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// ParseAccess извлекает userID и признак staff из access токена.
func (m *TokenManager) ParseAccess(token string) (*AccessClaims, error) {
	claims, err := m.parse(token, m.accessSecret, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return &AccessClaims{UserID: userID, Staff: claims.Staff}, nil
}

// RefreshAccess проверяет refresh токен и выпускает по нему новый access токен.
func (m *TokenManager) RefreshAccess(refresh string) (string, error) {
	claims, err := m.parse(refresh, m.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return "", err
	}

	base := tokenClaims{Username: claims.Username, Staff: claims.Staff}
	return m.sign(base, claims.Subject, tokenTypeAccess, m.accessTTL, m.accessSecret)
}

func (m *TokenManager) sign(claims tokenClaims, subject, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := m.now()
	claims.TokenType = tokenType
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if tokenType == tokenTypeRefresh {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *TokenManager) parse(token string, secret []byte, tokenType string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
