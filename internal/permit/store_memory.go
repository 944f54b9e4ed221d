package permit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"ptw/internal/models"
)

// memStore — in-memory реализация Store (режим без БД и тесты движка).
// Пер-пермитная сериализация — через мьютекс на id; агрегат копируется
// на входе и выходе, чтобы откат при ошибке был тривиальным.
type memStore struct {
	mu      sync.Mutex
	seq     uint
	permits map[uint]*models.Permit
	locks   map[uint]*sync.Mutex
}

func NewMemStore() *memStore {
	return &memStore{
		permits: map[uint]*models.Permit{},
		locks:   map[uint]*sync.Mutex{},
	}
}

func (m *memStore) Create(_ context.Context, p *models.Permit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = m.seq
	p.UUID = uuid.NewString()
	p.Serial = fmt.Sprintf("PTW-%06d", p.ID)
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	setPermitID(p)
	m.permits[p.ID] = clonePermit(p)
	m.locks[p.ID] = &sync.Mutex{}
	return nil
}

func (m *memStore) Get(_ context.Context, id uint) (*models.Permit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.permits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePermit(p), nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]models.Permit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Permit, 0, len(m.permits))
	for i := uint(1); i <= m.seq; i++ {
		p, ok := m.permits[i]
		if !ok {
			continue
		}
		if f.SiteID != 0 && p.SiteID != f.SiteID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Type != "" && p.Type != f.Type {
			continue
		}
		if f.CreatedBy != "" && p.CreatedBy != f.CreatedBy {
			continue
		}
		out = append(out, *clonePermit(p))
	}
	return out, nil
}

func (m *memStore) WithPermit(_ context.Context, id uint, fn func(p *models.Permit) error) (*models.Permit, error) {
	m.mu.Lock()
	lock, ok := m.locks[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	cur := m.permits[id]
	work := clonePermit(cur)
	m.mu.Unlock()

	if err := fn(work); err != nil {
		return nil, err
	}
	work.UpdatedAt = time.Now().UTC()
	setPermitID(work)

	m.mu.Lock()
	m.permits[id] = clonePermit(work)
	m.mu.Unlock()
	return work, nil
}

// ListExpired — активные (в т.ч. приостановленные/на продлении) наряды с
// истёкшим end_time; используется периодическим обходом.
func (m *memStore) ListExpired(_ context.Context, now time.Time) ([]models.Permit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Permit
	for _, p := range m.permits {
		if p.ExpiredAt(now) {
			out = append(out, *clonePermit(p))
		}
	}
	return out, nil
}

func setPermitID(p *models.Permit) {
	for i := range p.TeamMembers {
		p.TeamMembers[i].PermitID = p.ID
	}
	for i := range p.Hazards {
		p.Hazards[i].PermitID = p.ID
	}
	for i := range p.PPE {
		p.PPE[i].PermitID = p.ID
	}
	for i := range p.Checklist {
		p.Checklist[i].PermitID = p.ID
	}
	for i := range p.Approvals {
		p.Approvals[i].PermitID = p.ID
	}
	for i := range p.Extensions {
		p.Extensions[i].PermitID = p.ID
	}
	if p.Closure != nil {
		p.Closure.PermitID = p.ID
	}
}

func clonePermit(p *models.Permit) *models.Permit {
	cp := *p
	if p.VendorID != nil {
		v := *p.VendorID
		cp.VendorID = &v
	}
	if p.DocumentURLs != nil {
		cp.DocumentURLs = append(datatypes.JSON(nil), p.DocumentURLs...)
	}
	cp.TeamMembers = append([]models.TeamMember(nil), p.TeamMembers...)
	cp.Hazards = append([]models.PermitHazard(nil), p.Hazards...)
	cp.PPE = append([]models.PermitPPE(nil), p.PPE...)
	cp.Checklist = append([]models.ChecklistResponse(nil), p.Checklist...)
	cp.Approvals = append([]models.ApprovalRecord(nil), p.Approvals...)
	for i := range cp.Approvals {
		if cp.Approvals[i].DecidedAt != nil {
			t := *cp.Approvals[i].DecidedAt
			cp.Approvals[i].DecidedAt = &t
		}
	}
	cp.Extensions = append([]models.ExtensionRequest(nil), p.Extensions...)
	for i := range cp.Extensions {
		if cp.Extensions[i].DecidedAt != nil {
			t := *cp.Extensions[i].DecidedAt
			cp.Extensions[i].DecidedAt = &t
		}
	}
	if p.Closure != nil {
		c := *p.Closure
		cp.Closure = &c
	}
	return &cp
}
