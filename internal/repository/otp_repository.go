package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/servicehub-backend/internal/models"
)

// ErrOTPNotFound активного кода с таким значением нет.
var ErrOTPNotFound = errors.New("otp not found")

// OTPRepository хранит одноразовые коды, по одной строке на пользователя.
type OTPRepository struct {
	db *sqlx.DB
}

func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Upsert выдаёт код пользователю: создаёт строку или перезаписывает существующую
// одним выражением, поэтому параллельная выдача не конфликтует.
func (r *OTPRepository) Upsert(ctx context.Context, otp *models.OTP) error {
	query := `
		INSERT INTO otps (user_id, value, is_active, created_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET value = EXCLUDED.value,
			is_active = TRUE,
			created_at = EXCLUDED.created_at
		RETURNING id, is_active, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, otp.UserID, otp.Value, otp.CreatedAt).
		Scan(&otp.ID, &otp.IsActive, &otp.CreatedAt); err != nil {
		return fmt.Errorf("otp repository: upsert %w", err)
	}
	return nil
}

// GetActive ищет активный код пользователя с заданным значением.
func (r *OTPRepository) GetActive(ctx context.Context, userID uuid.UUID, value string) (*models.OTP, error) {
	var otp models.OTP
	query := `
		SELECT id, user_id, value, is_active, created_at
		FROM otps
		WHERE user_id = $1 AND value = $2 AND is_active = TRUE
	`
	if err := r.db.GetContext(ctx, &otp, query, userID, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp repository: get active %w", err)
	}
	return &otp, nil
}

// Consume атомарно гасит код. false означает, что его уже погасил другой запрос
// (или код был перевыпущен с другим значением).
func (r *OTPRepository) Consume(ctx context.Context, otp *models.OTP) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otps SET is_active = FALSE WHERE id = $1 AND value = $2 AND is_active = TRUE`,
		otp.ID, otp.Value)
	if err != nil {
		return false, fmt.Errorf("otp repository: consume %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("otp repository: consume rows %w", err)
	}
	return n == 1, nil
}

// Deactivate гасит именно найденный код (например, истёкший). Если код успели
// перевыпустить, строка уже с другим value/created_at и не трогается.
func (r *OTPRepository) Deactivate(ctx context.Context, otp *models.OTP) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE otps SET is_active = FALSE WHERE id = $1 AND value = $2 AND created_at = $3`,
		otp.ID, otp.Value, otp.CreatedAt)
	if err != nil {
		return fmt.Errorf("otp repository: deactivate %w", err)
	}
	return nil
}
