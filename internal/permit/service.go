package permit

import (
	"context"
	"encoding/json"
	"time"

	"ptw/internal/logs"
	"ptw/internal/models"
)

// Store — персистентность агрегата. Контракт WithPermit: для одного id в
// любой момент выполняется не более одной мутирующей операции; колбэк
// получает загруженный агрегат, nil-возврат фиксирует изменения атомарно,
// ошибка — откатывает всё. Читатели (Get/List) блокировкой не задерживаются.
type Store interface {
	Create(ctx context.Context, p *models.Permit) error
	Get(ctx context.Context, id uint) (*models.Permit, error)
	List(ctx context.Context, f ListFilter) ([]models.Permit, error)
	WithPermit(ctx context.Context, id uint, fn func(p *models.Permit) error) (*models.Permit, error)
}

type ListFilter struct {
	SiteID    uint
	Status    models.PermitStatus
	Type      models.PermitType
	CreatedBy string
}

// Service — оркестратор жизненного цикла наряда-допуска.
type Service struct {
	store    Store
	catalog  Catalog
	policies *PolicyTable
}

func NewService(store Store, catalog Catalog, policies *PolicyTable) *Service {
	return &Service{store: store, catalog: catalog, policies: policies}
}

type TeamMemberInput struct {
	Name    string
	Contact string
}

type ChecklistAnswerInput struct {
	QuestionID uint
	Answer     string
	Remarks    string
}

type CreateInput struct {
	SiteID          uint
	VendorID        *uint
	Type            string
	WorkLocation    string
	WorkDescription string
	ControlMeasures string
	StartTime       time.Time
	EndTime         time.Time
	ReceiverName    string
	ReceiverContact string
	TeamMembers     []TeamMemberInput
	HazardIDs       []uint
	PPEItemIDs      []uint
	Checklist       []ChecklistAnswerInput
	DocumentURLs    []string
}

// Create заводит наряд в статусе draft. Serial и UUID присваивает store —
// ровно один раз, повторно не используются.
func (s *Service) Create(ctx context.Context, in CreateInput, actor models.Principal) (*models.Permit, error) {
	typ, err := models.ParsePermitType(in.Type)
	if err != nil {
		return nil, newError(CodeInvalidInput, "%v", err)
	}
	if in.SiteID == 0 {
		return nil, newError(CodeInvalidInput, "site_id is required")
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, newError(CodeInvalidEndTime, "end time must be after start time")
	}

	p := &models.Permit{
		SiteID:          in.SiteID,
		VendorID:        in.VendorID,
		CreatedBy:       actor.ID,
		Type:            typ,
		Status:          models.StatusDraft,
		WorkLocation:    in.WorkLocation,
		WorkDescription: in.WorkDescription,
		ControlMeasures: in.ControlMeasures,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		ReceiverName:    in.ReceiverName,
		ReceiverContact: in.ReceiverContact,
	}
	for _, m := range in.TeamMembers {
		p.TeamMembers = append(p.TeamMembers, models.TeamMember{Name: m.Name, Contact: m.Contact})
	}
	for _, id := range in.HazardIDs {
		p.Hazards = append(p.Hazards, models.PermitHazard{HazardID: id})
	}
	for _, id := range in.PPEItemIDs {
		p.PPE = append(p.PPE, models.PermitPPE{PPEItemID: id})
	}
	for _, c := range in.Checklist {
		ans, err := models.ParseAnswer(c.Answer)
		if err != nil {
			return nil, newError(CodeInvalidInput, "question %d: %v", c.QuestionID, err)
		}
		p.Checklist = append(p.Checklist, models.ChecklistResponse{
			QuestionID: c.QuestionID, Answer: ans, Remarks: c.Remarks,
		})
	}
	if len(in.DocumentURLs) > 0 {
		raw, _ := json.Marshal(in.DocumentURLs)
		p.DocumentURLs = raw
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	logs.Logger.Infof("permit created serial=%s site=%d type=%s by=%s", p.Serial, p.SiteID, p.Type, actor.ID)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Permit, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Permit, error) {
	return s.store.List(ctx, f)
}

// Submit: draft → pending_approval. Чек-лист, опасности, СИЗ и меры контроля
// проверяются целиком; набор ролей-согласующих фиксируется здесь и дальше
// не меняется.
func (s *Service) Submit(ctx context.Context, id uint, actor models.Principal) (*models.Permit, error) {
	return s.store.WithPermit(ctx, id, func(p *models.Permit) error {
		next, ferr := Next(p.Status, EventSubmit)
		if ferr != nil {
			return ferr
		}
		violations, err := validateForSubmission(ctx, s.catalog, p)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return &Error{
				Code:       CodeIncompleteSubmission,
				Message:    "permit is not ready for submission",
				Violations: violations,
			}
		}
		for _, role := range s.policies.RequiredRoles(p.SiteID, p.Type) {
			p.Approvals = append(p.Approvals, models.ApprovalRecord{
				PermitID: p.ID, Role: role, Decision: models.DecisionPending,
			})
		}
		p.Status = next
		logs.Logger.Infof("permit submitted serial=%s roles=%d by=%s", p.Serial, len(p.Approvals), actor.ID)
		return nil
	})
}

// RecordApproval записывает решение роли. Чтение статусов всех ролей, вывод
// об исходе цепочки и смена статуса наряда — одна атомарная единица под
// пер-пермитной блокировкой: два «последних» одобрения не могут оба увидеть
// незавершённую цепочку.
func (s *Service) RecordApproval(ctx context.Context, id uint, role models.Role, decision models.Decision, comments string, actor models.Principal) (*models.Permit, error) {
	if actor.Role != role && !actor.IsAdmin() {
		return nil, newError(CodeForbidden, "principal %s (%s) cannot decide for role %s", actor.ID, actor.Role, role)
	}
	return s.store.WithPermit(ctx, id, func(p *models.Permit) error {
		if p.Status != models.StatusPendingApproval {
			if p.Status == models.StatusRejected {
				return newError(CodeAlreadyResolved, "permit %s is already rejected", p.Serial)
			}
			return newError(CodeInvalidState, "approval not allowed in status %s", p.Status)
		}
		outcome, cerr := recordDecision(p, role, decision, actor.ID, comments, time.Now().UTC())
		if cerr != nil {
			return cerr
		}
		switch outcome {
		case ChainComplete:
			next, ferr := Next(p.Status, EventApprove)
			if ferr != nil {
				return ferr
			}
			p.Status = next
			logs.Logger.Infof("permit activated serial=%s", p.Serial)
		case ChainRejected:
			next, ferr := Next(p.Status, EventReject)
			if ferr != nil {
				return ferr
			}
			p.Status = next
			p.RejectReason = comments
			logs.Logger.Infof("permit rejected serial=%s role=%s", p.Serial, role)
		}
		return nil
	})
}

// RequestExtension: active → extension_requested (одна pending-заявка на наряд).
func (s *Service) RequestExtension(ctx context.Context, id uint, newEnd time.Time, reason string, actor models.Principal) (*models.Permit, error) {
	return s.store.WithPermit(ctx, id, func(p *models.Permit) error {
		if err := applyExtensionRequest(p, newEnd, reason, actor.ID); err != nil {
			return err
		}
		logs.Logger.Infof("extension requested serial=%s new_end=%s by=%s", p.Serial, newEnd.Format(time.RFC3339), actor.ID)
		return nil
	})
}

// ResolveExtension решает pending-заявку; решать может роль из цепочки
// согласования наряда либо admin.
func (s *Service) ResolveExtension(ctx context.Context, id uint, decision models.Decision, actor models.Principal) (*models.Permit, error) {
	return s.store.WithPermit(ctx, id, func(p *models.Permit) error {
		if !actor.IsAdmin() && !roleInChain(p, actor.Role) {
			return newError(CodeForbidden, "principal %s (%s) cannot resolve extensions of permit %s", actor.ID, actor.Role, p.Serial)
		}
		if err := applyExtensionDecision(p, decision, actor.ID, time.Now().UTC()); err != nil {
			return err
		}
		logs.Logger.Infof("extension %s serial=%s end=%s", decision, p.Serial, p.EndTime.Format(time.RFC3339))
		return nil
	})
}

// Suspend — административная приостановка работ (active → suspended).
func (s *Service) Suspend(ctx context.Context, id uint, actor models.Principal) (*models.Permit, error) {
	if !actor.IsAdmin() && actor.Role != models.RoleSafetyOfficer {
		return nil, newError(CodeForbidden, "only admin or safety officer may suspend a permit")
	}
	return s.store.WithPermit(ctx, id, func(p *models.Permit) error {
		next, ferr := Next(p.Status, EventSuspend)
		if ferr != nil {
			return ferr
		}
		p.Status = next
		logs.Logger.Warnf("permit suspended serial=%s by=%s", p.Serial, actor.ID)
		return nil
	})
}

// Resume — симметричный выход из приостановки (suspended → active).
func (s *Service) Resume(ctx context.Context, id uint, actor models.Principal) (*models.Permit, error) {
	if !actor.IsAdmin() && actor.Role != models.RoleSafetyOfficer {
		return nil, newError(CodeForbidden, "only admin or safety officer may resume a permit")
	}
	return s.store.WithPermit(ctx, id, func(p *models.Permit) error {
		next, ferr := Next(p.Status, EventResume)
		if ferr != nil {
			return ferr
		}
		p.Status = next
		logs.Logger.Infof("permit resumed serial=%s by=%s", p.Serial, actor.ID)
		return nil
	})
}

// Close: active → closed через акт закрытия.
func (s *Service) Close(ctx context.Context, id uint, in ClosureInput, actor models.Principal) (*models.Permit, error) {
	return s.store.WithPermit(ctx, id, func(p *models.Permit) error {
		if err := applyClosure(p, in, actor.ID, time.Now().UTC()); err != nil {
			return err
		}
		logs.Logger.Infof("permit closed serial=%s by=%s", p.Serial, actor.ID)
		return nil
	})
}

// Cancel доступен создателю наряда или admin из draft/pending_approval/active.
// Гонка cancel с recordApproval разрешается той же пер-пермитной
// сериализацией: кто закоммитился первым — тот и выиграл, второй получает
// InvalidState.
func (s *Service) Cancel(ctx context.Context, id uint, actor models.Principal) (*models.Permit, error) {
	return s.store.WithPermit(ctx, id, func(p *models.Permit) error {
		if p.CreatedBy != actor.ID && !actor.IsAdmin() {
			return newError(CodeForbidden, "only the creator or an admin may cancel permit %s", p.Serial)
		}
		next, ferr := Next(p.Status, EventCancel)
		if ferr != nil {
			return ferr
		}
		p.Status = next
		logs.Logger.Infof("permit cancelled serial=%s by=%s", p.Serial, actor.ID)
		return nil
	})
}

func roleInChain(p *models.Permit, role models.Role) bool {
	return p.Approval(role) != nil
}
