package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"ptw/internal/logs"
	"ptw/internal/middleware"
	"ptw/internal/models"
	"ptw/internal/permit"
)

// CatalogReader — тонкие read-only справочники для фронта.
type CatalogReader interface {
	QuestionsForType(ctx context.Context, typ models.PermitType) ([]models.ChecklistQuestion, error)
	ListHazards(ctx context.Context) ([]models.Hazard, error)
	ListPPEItems(ctx context.Context) ([]models.PPEItem, error)
}

type Handler struct {
	svc     *permit.Service
	catalog CatalogReader
}

func NewHandler(svc *permit.Service, catalog CatalogReader) *Handler {
	return &Handler{svc: svc, catalog: catalog}
}

// permitResponse дополняет агрегат производным флагом «просрочен».
type permitResponse struct {
	*models.Permit
	Expired bool `json:"expired"`
}

func writePermit(w http.ResponseWriter, status int, p *models.Permit) {
	models.WriteJSON(w, status, permitResponse{Permit: p, Expired: p.ExpiredAt(time.Now().UTC())})
}

// writeError транслирует типизированные отказы ядра в problem+json:
// валидация → 422 (исправить вход и повторить), конфликт состояния → 409
// (перечитать наряд), авторизация → 403 (не повторять), not found → 404.
func writeError(w http.ResponseWriter, err error) {
	e, ok := permit.AsError(err)
	if !ok {
		logs.Logger.Errorf("internal error: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError,
			"Internal Server Error", "unexpected server error", nil)
		return
	}
	var status int
	var title string
	switch e.Code.Kind() {
	case permit.KindValidation:
		status, title = http.StatusUnprocessableEntity, "Validation Failed"
	case permit.KindAuthz:
		status, title = http.StatusForbidden, "Forbidden"
	case permit.KindNotFound:
		status, title = http.StatusNotFound, "Not Found"
	default:
		status, title = http.StatusConflict, "State Conflict"
	}
	var extra any
	if len(e.Violations) > 0 {
		extra = map[string]any{"violations": e.Violations}
	}
	models.WriteProblemCode(w, status, string(e.Code), title, e.Message, extra)
}

func permitID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	return uint(id), err == nil
}

func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.GetPrincipal(r)
	if !ok {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "no principal in request", nil)
	}
	return p, ok
}

type teamMemberPayload struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type checklistAnswerPayload struct {
	QuestionID uint   `json:"question_id"`
	Answer     string `json:"answer"`
	Remarks    string `json:"remarks"`
}

type createPermitRequest struct {
	SiteID          uint                     `json:"site_id"`
	VendorID        *uint                    `json:"vendor_id"`
	Type            string                   `json:"type"`
	WorkLocation    string                   `json:"work_location"`
	WorkDescription string                   `json:"work_description"`
	ControlMeasures string                   `json:"control_measures"`
	StartTime       time.Time                `json:"start_time"`
	EndTime         time.Time                `json:"end_time"`
	ReceiverName    string                   `json:"receiver_name"`
	ReceiverContact string                   `json:"receiver_contact"`
	TeamMembers     []teamMemberPayload      `json:"team_members"`
	HazardIDs       []uint                   `json:"hazard_ids"`
	PPEItemIDs      []uint                   `json:"ppe_item_ids"`
	Checklist       []checklistAnswerPayload `json:"checklist"`
	DocumentURLs    []string                 `json:"document_urls"`
}

// POST /api/v1/permits
func (h *Handler) CreatePermit(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req createPermitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	in := permit.CreateInput{
		SiteID:          req.SiteID,
		VendorID:        req.VendorID,
		Type:            req.Type,
		WorkLocation:    req.WorkLocation,
		WorkDescription: req.WorkDescription,
		ControlMeasures: req.ControlMeasures,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		ReceiverName:    req.ReceiverName,
		ReceiverContact: req.ReceiverContact,
		HazardIDs:       req.HazardIDs,
		PPEItemIDs:      req.PPEItemIDs,
		DocumentURLs:    req.DocumentURLs,
	}
	for _, m := range req.TeamMembers {
		in.TeamMembers = append(in.TeamMembers, permit.TeamMemberInput(m))
	}
	for _, c := range req.Checklist {
		in.Checklist = append(in.Checklist, permit.ChecklistAnswerInput(c))
	}
	p, err := h.svc.Create(r.Context(), in, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writePermit(w, http.StatusCreated, p)
}

// GET /api/v1/permits
func (h *Handler) ListPermits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f permit.ListFilter
	if s := q.Get("site_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid site_id", nil)
			return
		}
		f.SiteID = uint(id)
	}
	f.Status = models.PermitStatus(q.Get("status"))
	f.Type = models.PermitType(q.Get("type"))
	f.CreatedBy = q.Get("created_by")
	out, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, out)
}

// GET /api/v1/permits/{id}
func (h *Handler) GetPermit(w http.ResponseWriter, r *http.Request) {
	id, ok := permitID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid permit id", nil)
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writePermit(w, http.StatusOK, p)
}

// POST /api/v1/permits/{id}/submit
func (h *Handler) SubmitPermit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(ctx context.Context, id uint, actor models.Principal) (*models.Permit, error) {
		return h.svc.Submit(ctx, id, actor)
	})
}

type approvalRequest struct {
	Role     string `json:"role"`
	Decision string `json:"decision"`
	Comments string `json:"comments"`
}

// POST /api/v1/permits/{id}/approval
func (h *Handler) RecordApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := permitID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid permit id", nil)
		return
	}
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	role := actor.Role
	if req.Role != "" {
		parsed, err := models.ParseRole(req.Role)
		if err != nil {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
			return
		}
		role = parsed
	}
	decision, err := models.ParseDecision(req.Decision)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}
	p, err := h.svc.RecordApproval(r.Context(), id, role, decision, req.Comments, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writePermit(w, http.StatusOK, p)
}

type extensionRequest struct {
	NewEndTime time.Time `json:"new_end_time"`
	Reason     string    `json:"reason"`
}

// POST /api/v1/permits/{id}/extension
func (h *Handler) RequestExtension(w http.ResponseWriter, r *http.Request) {
	id, ok := permitID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid permit id", nil)
		return
	}
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req extensionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	p, err := h.svc.RequestExtension(r.Context(), id, req.NewEndTime, req.Reason, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writePermit(w, http.StatusOK, p)
}

type extensionDecisionRequest struct {
	Decision string `json:"decision"`
}

// POST /api/v1/permits/{id}/extension/decision
func (h *Handler) ResolveExtension(w http.ResponseWriter, r *http.Request) {
	id, ok := permitID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid permit id", nil)
		return
	}
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req extensionDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	decision, err := models.ParseDecision(req.Decision)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}
	p, err := h.svc.ResolveExtension(r.Context(), id, decision, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writePermit(w, http.StatusOK, p)
}

// POST /api/v1/permits/{id}/suspend
func (h *Handler) SuspendPermit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(ctx context.Context, id uint, actor models.Principal) (*models.Permit, error) {
		return h.svc.Suspend(ctx, id, actor)
	})
}

// POST /api/v1/permits/{id}/resume
func (h *Handler) ResumePermit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(ctx context.Context, id uint, actor models.Principal) (*models.Permit, error) {
		return h.svc.Resume(ctx, id, actor)
	})
}

type closeRequest struct {
	Housekeeping bool   `json:"housekeeping"`
	ToolsRemoved bool   `json:"tools_removed"`
	LocksRemoved bool   `json:"locks_removed"`
	AreaRestored bool   `json:"area_restored"`
	Remarks      string `json:"remarks"`
}

// POST /api/v1/permits/{id}/close
func (h *Handler) ClosePermit(w http.ResponseWriter, r *http.Request) {
	id, ok := permitID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid permit id", nil)
		return
	}
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	p, err := h.svc.Close(r.Context(), id, permit.ClosureInput{
		Housekeeping: req.Housekeeping,
		ToolsRemoved: req.ToolsRemoved,
		LocksRemoved: req.LocksRemoved,
		AreaRestored: req.AreaRestored,
		Remarks:      req.Remarks,
	}, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writePermit(w, http.StatusOK, p)
}

// POST /api/v1/permits/{id}/cancel
func (h *Handler) CancelPermit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(ctx context.Context, id uint, actor models.Principal) (*models.Permit, error) {
		return h.svc.Cancel(ctx, id, actor)
	})
}

// lifecycle — общий каркас для операций без тела запроса.
func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uint, actor models.Principal) (*models.Permit, error)) {
	id, ok := permitID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid permit id", nil)
		return
	}
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	p, err := op(r.Context(), id, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writePermit(w, http.StatusOK, p)
}

// GET /api/v1/catalog/hazards
func (h *Handler) ListHazards(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListHazards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, out)
}

// GET /api/v1/catalog/ppe
func (h *Handler) ListPPE(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListPPEItems(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, out)
}

// GET /api/v1/catalog/checklist?type=hot_work
func (h *Handler) ListChecklist(w http.ResponseWriter, r *http.Request) {
	typ, err := models.ParsePermitType(r.URL.Query().Get("type"))
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}
	out, err := h.catalog.QuestionsForType(r.Context(), typ)
	if err != nil {
		writeError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, out)
}
