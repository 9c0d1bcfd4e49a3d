package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/servicehub-backend/internal/models"
)

type SecurityEventRepository struct {
	db *sqlx.DB
}

func NewSecurityEventRepository(db *sqlx.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// Create сохраняет событие входа.
func (r *SecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (user_id, ip_address, user_agent)
		VALUES ($1, $2, $3)
		RETURNING id, login_time
	`
	if err := r.db.QueryRowxContext(ctx, query, event.UserID, event.IPAddress, event.UserAgent).
		Scan(&event.ID, &event.LoginTime); err != nil {
		return fmt.Errorf("security event repository: create %w", err)
	}
	return nil
}

// ListByUser возвращает последние входы пользователя.
func (r *SecurityEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SecurityEvent, error) {
	events := []models.SecurityEvent{}
	query := `
		SELECT id, user_id, ip_address, user_agent, login_time
		FROM security_events
		WHERE user_id = $1
		ORDER BY login_time DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &events, query, userID, limit); err != nil {
		return nil, fmt.Errorf("security event repository: list %w", err)
	}
	return events, nil
}
