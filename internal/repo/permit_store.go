package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ptw/internal/models"
	"ptw/internal/permit"
)

// PermitStore — gorm-реализация permit.Store. Пер-пермитная сериализация —
// транзакция с row-level блокировкой строки наряда (SELECT ... FOR UPDATE).
type PermitStore struct{ db *gorm.DB }

func NewPermitStore(db *gorm.DB) *PermitStore { return &PermitStore{db: db} }

// Create присваивает UUID и serial в одной транзакции с созданием строки;
// serial монотонен по порядку создания (производный от автоинкрементного id).
func (s *PermitStore) Create(ctx context.Context, p *models.Permit) error {
	p.UUID = uuid.NewString()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		p.Serial = fmt.Sprintf("PTW-%06d", p.ID)
		return tx.Model(&models.Permit{}).Where("id = ?", p.ID).
			Update("serial", p.Serial).Error
	})
}

func (s *PermitStore) Get(ctx context.Context, id uint) (*models.Permit, error) {
	var p models.Permit
	err := preloadAll(s.db.WithContext(ctx)).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, permit.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PermitStore) List(ctx context.Context, f permit.ListFilter) ([]models.Permit, error) {
	q := s.db.WithContext(ctx).Model(&models.Permit{}).Order("id asc")
	if f.SiteID != 0 {
		q = q.Where("site_id = ?", f.SiteID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.CreatedBy != "" {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	var out []models.Permit
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// WithPermit: блокировка строки наряда, загрузка агрегата целиком, мутация,
// сохранение с ассоциациями. Ошибка колбэка откатывает транзакцию — наряд
// остаётся в прежнем валидном состоянии. Читатели блокировку не берут.
func (s *PermitStore) WithPermit(ctx context.Context, id uint, fn func(p *models.Permit) error) (*models.Permit, error) {
	var out *models.Permit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Permit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").First(&locked, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return permit.ErrNotFound
			}
			return err
		}
		var p models.Permit
		if err := preloadAll(tx).First(&p, id).Error; err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&p).Error; err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListExpired — активные наряды с истёкшим end_time (для периодического обхода).
func (s *PermitStore) ListExpired(ctx context.Context, now time.Time) ([]models.Permit, error) {
	var out []models.Permit
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.PermitStatus{
			models.StatusActive, models.StatusExtensionRequested, models.StatusSuspended,
		}).
		Where("end_time < ?", now).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func preloadAll(db *gorm.DB) *gorm.DB {
	return db.
		Preload("TeamMembers").
		Preload("Hazards").
		Preload("PPE").
		Preload("Checklist").
		Preload("Approvals").
		Preload("Extensions").
		Preload("Closure")
}
