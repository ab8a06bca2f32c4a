package postgres

import (
	"context"
	"errors"
	"fmt"

	"docaudit/internal/models"

	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, audit *models.Audit) error {
	if err := r.db.WithContext(ctx).Create(audit).Error; err != nil {
		return fmt.Errorf("failed to create audit: %w", err)
	}
	return nil
}

// ListByUser returns the user's audits, oldest first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID uint) ([]models.Audit, error) {
	var audits []models.Audit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&audits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	return audits, nil
}

func (r *AuditRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Audit{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count audits: %w", err)
	}
	return count, nil
}

// LastByUser returns the user's most recent audit, or nil when none exist.
func (r *AuditRepository) LastByUser(ctx context.Context, userID uint) (*models.Audit, error) {
	var audit models.Audit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&audit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last audit: %w", err)
	}
	return &audit, nil
}
