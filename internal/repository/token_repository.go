package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/multitenant-task-api/internal/models"
	"gorm.io/gorm"
)

// GormTokenRepository keeps access token records in the access_tokens table
type GormTokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new database-backed TokenRepository
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &GormTokenRepository{db: db}
}

// Create records a newly issued token
func (r *GormTokenRepository) Create(ctx context.Context, token *models.AccessToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindActive returns a live token record
func (r *GormTokenRepository) FindActive(ctx context.Context, id string, now time.Time) (*models.AccessToken, error) {
	var token models.AccessToken
	err := r.db.WithContext(ctx).
		Where("id = ? AND revoked_at IS NULL AND expires_at > ?", id, now).
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Touch stamps last_used_at
func (r *GormTokenRepository) Touch(ctx context.Context, id string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", now).Error
}

// Revoke marks one token as revoked
func (r *GormTokenRepository) Revoke(ctx context.Context, id string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", now).Error
}

// RevokeAllForUser marks every live token of a user as revoked
func (r *GormTokenRepository) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}
