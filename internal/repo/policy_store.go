package repo

import (
	"context"

	"gorm.io/gorm"

	"ptw/internal/models"
	"ptw/internal/permit"
)

type PolicyStore struct{ db *gorm.DB }

func NewPolicyStore(db *gorm.DB) *PolicyStore { return &PolicyStore{db: db} }

// LoadAll отдаёт все строки политики согласования; разбор и валидация —
// в permit.NewPolicyTable при старте.
func (s *PolicyStore) LoadAll(ctx context.Context) ([]models.ApprovalPolicy, error) {
	var rows []models.ApprovalPolicy
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Seed засеивает пустую таблицу политиками по умолчанию (site 0).
func (s *PolicyStore) Seed(ctx context.Context) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.ApprovalPolicy{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	rows := permit.DefaultPolicies()
	return s.db.WithContext(ctx).Create(&rows).Error
}
