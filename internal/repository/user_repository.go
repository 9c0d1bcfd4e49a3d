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

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

// ErrUserDetailNotFound профиль ещё не заполнялся.
var ErrUserDetailNotFound = errors.New("user detail not found")

// Поля, по которым ищется пользователь в ResolveByIdentifier / ExistsByField.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPhone    = "phone_number"
)

const userColumns = `id, username, email, phone_number, password_hash, is_active, is_staff, last_login_at, created_at, updated_at`

// UserRepository отвечает за работу с таблицами users и user_details.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя. Нарушение уникальности username/email/phone
// возвращается как common.ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, phone_number, password_hash, is_active, is_staff)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id, is_active, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Username, user.Email, user.PhoneNumber, user.PasswordHash, user.IsStaff,
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: create %w", common.MapWriteError(err))
	}

	return nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}

	return &user, nil
}

// FindByIdentifier возвращает всех пользователей, у которых identifier совпадает
// с username, email или phone_number. Колонки уникальны, поэтому строк не больше трёх.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) ([]models.User, error) {
	var users []models.User
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 OR email = $1 OR phone_number = $1
		LIMIT 3
	`
	if err := r.db.SelectContext(ctx, &users, query, identifier); err != nil {
		return nil, fmt.Errorf("user repository: find by identifier %w", err)
	}
	return users, nil
}

// ExistsByField проверяет занятость username, email или phone_number.
func (r *UserRepository) ExistsByField(ctx context.Context, field, value string) (bool, error) {
	switch field {
	case FieldUsername, FieldEmail, FieldPhone:
	default:
		return false, fmt.Errorf("user repository: exists by %q %w", field, common.ErrInvalidInput)
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM users WHERE %s = $1)`, field)
	if err := r.db.GetContext(ctx, &exists, query, value); err != nil {
		return false, fmt.Errorf("user repository: exists by %s %w", field, err)
	}
	return exists, nil
}

// UpdateLastLoginAt обновляет время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	err := common.ExecAffected(ctx, r.db, ErrUserNotFound,
		`UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, userID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("user repository: update last login %w", err)
	}
	return err
}

// SetActive блокирует или разблокирует пользователя.
func (r *UserRepository) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	return common.ExecAffected(ctx, r.db, ErrUserNotFound,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, userID, active)
}

// GetDetail возвращает дополнительные данные профиля.
func (r *UserRepository) GetDetail(ctx context.Context, userID uuid.UUID) (*models.UserDetail, error) {
	detail, err := common.GetByField[models.UserDetail](ctx, r.db, "user_details", "user_id", userID, ErrUserDetailNotFound)
	if err != nil && !errors.Is(err, ErrUserDetailNotFound) {
		return nil, fmt.Errorf("user repository: get detail %w", err)
	}
	return detail, err
}

// UpsertDetail создаёт или обновляет профиль пользователя.
func (r *UserRepository) UpsertDetail(ctx context.Context, detail *models.UserDetail) error {
	query := `
		INSERT INTO user_details (user_id, firstname, lastname, address, location, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET firstname = EXCLUDED.firstname,
			lastname = EXCLUDED.lastname,
			address = EXCLUDED.address,
			location = EXCLUDED.location,
			updated_at = NOW()
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		detail.UserID, detail.Firstname, detail.Lastname, detail.Address, detail.Location,
	).Scan(&detail.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: upsert detail %w", common.MapWriteError(err))
	}
	return nil
}
