package repo

import (
	"context"

	"gorm.io/gorm"

	"ptw/internal/models"
	"ptw/internal/permit"
)

// CatalogStore — read-only справочники для ядра и catalog-эндпоинтов.
type CatalogStore struct{ db *gorm.DB }

func NewCatalogStore(db *gorm.DB) *CatalogStore { return &CatalogStore{db: db} }

func (s *CatalogStore) MandatoryQuestions(ctx context.Context, typ models.PermitType) ([]models.ChecklistQuestion, error) {
	var out []models.ChecklistQuestion
	err := s.db.WithContext(ctx).
		Where("type = ? AND mandatory = ?", typ, true).
		Order("id asc").Find(&out).Error
	return out, err
}

func (s *CatalogStore) QuestionsForType(ctx context.Context, typ models.PermitType) ([]models.ChecklistQuestion, error) {
	var out []models.ChecklistQuestion
	err := s.db.WithContext(ctx).Where("type = ?", typ).Order("id asc").Find(&out).Error
	return out, err
}

func (s *CatalogStore) ListHazards(ctx context.Context) ([]models.Hazard, error) {
	var out []models.Hazard
	err := s.db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

func (s *CatalogStore) ListPPEItems(ctx context.Context) ([]models.PPEItem, error) {
	var out []models.PPEItem
	err := s.db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// Seed заполняет пустые справочники baseline-набором (тот же, что отдаёт
// permit.DefaultCatalog в режиме без БД).
func (s *CatalogStore) Seed(ctx context.Context) error {
	base := permit.DefaultCatalog()
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&models.ChecklistQuestion{}).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		if err := db.Create(&base.Questions).Error; err != nil {
			return err
		}
	}
	if err := db.Model(&models.Hazard{}).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		if err := db.Create(&base.Hazards).Error; err != nil {
			return err
		}
	}
	if err := db.Model(&models.PPEItem{}).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		if err := db.Create(&base.PPEItems).Error; err != nil {
			return err
		}
	}
	return nil
}
