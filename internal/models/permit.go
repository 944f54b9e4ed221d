package models

import (
	"time"

	"gorm.io/datatypes"
)

// Permit — корневой агрегат наряда-допуска. Дети живут и умирают вместе с ним;
// физически записи не удаляются, только переводятся в терминальный статус.
type Permit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UUID string `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	// Serial присваивается ровно один раз при создании и не переиспользуется.
	Serial string `gorm:"uniqueIndex;size:32" json:"serial"`

	SiteID    uint   `gorm:"index;not null" json:"site_id"`
	CreatedBy string `gorm:"size:64;not null" json:"created_by"`
	VendorID  *uint  `gorm:"index" json:"vendor_id,omitempty"`

	Type   PermitType   `gorm:"size:32;not null" json:"type"`
	Status PermitStatus `gorm:"size:32;not null;index" json:"status"`

	WorkLocation    string `gorm:"size:255" json:"work_location"`
	WorkDescription string `gorm:"type:text" json:"work_description"`
	ControlMeasures string `gorm:"type:text" json:"control_measures"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	ReceiverName    string `gorm:"size:255" json:"receiver_name"`
	ReceiverContact string `gorm:"size:64" json:"receiver_contact"`

	// Заполняется только при Status == rejected.
	RejectReason string `gorm:"size:512" json:"reject_reason,omitempty"`

	// Непрозрачные URL подписей/SWMS из внешнего файлохранилища.
	DocumentURLs datatypes.JSON `gorm:"type:jsonb" json:"document_urls,omitempty"`

	TeamMembers []TeamMember        `gorm:"constraint:OnDelete:CASCADE" json:"team_members,omitempty"`
	Hazards     []PermitHazard      `gorm:"constraint:OnDelete:CASCADE" json:"hazards,omitempty"`
	PPE         []PermitPPE         `gorm:"constraint:OnDelete:CASCADE" json:"ppe,omitempty"`
	Checklist   []ChecklistResponse `gorm:"constraint:OnDelete:CASCADE" json:"checklist,omitempty"`
	Approvals   []ApprovalRecord    `gorm:"constraint:OnDelete:CASCADE" json:"approvals,omitempty"`
	Extensions  []ExtensionRequest  `gorm:"constraint:OnDelete:CASCADE" json:"extensions,omitempty"`
	Closure     *ClosureRecord      `gorm:"constraint:OnDelete:CASCADE" json:"closure,omitempty"`
}

// ExpiredAt — производный флаг «просрочен»: активен, но end_time уже в прошлом.
// Не хранится в БД, чтобы не плодить второй источник истины.
func (p *Permit) ExpiredAt(now time.Time) bool {
	switch p.Status {
	case StatusActive, StatusExtensionRequested, StatusSuspended:
		return now.After(p.EndTime)
	}
	return false
}

// Approval возвращает запись согласования для роли (nil, если роли нет в наборе).
func (p *Permit) Approval(role Role) *ApprovalRecord {
	for i := range p.Approvals {
		if p.Approvals[i].Role == role {
			return &p.Approvals[i]
		}
	}
	return nil
}

// PendingExtension — текущая нерешённая заявка на продление (максимум одна).
func (p *Permit) PendingExtension() *ExtensionRequest {
	for i := range p.Extensions {
		if p.Extensions[i].Decision == DecisionPending {
			return &p.Extensions[i]
		}
	}
	return nil
}

type TeamMember struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PermitID uint   `gorm:"index;not null" json:"-"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Contact  string `gorm:"size:64" json:"contact"`
}

type PermitHazard struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	PermitID uint `gorm:"uniqueIndex:ph_permit_hazard;not null" json:"-"`
	HazardID uint `gorm:"uniqueIndex:ph_permit_hazard;not null" json:"hazard_id"`
}

type PermitPPE struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	PermitID  uint `gorm:"uniqueIndex:pp_permit_ppe;not null" json:"-"`
	PPEItemID uint `gorm:"uniqueIndex:pp_permit_ppe;not null" json:"ppe_item_id"`
}

type ChecklistResponse struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	PermitID   uint   `gorm:"uniqueIndex:cr_permit_question;not null" json:"-"`
	QuestionID uint   `gorm:"uniqueIndex:cr_permit_question;not null" json:"question_id"`
	Answer     Answer `gorm:"size:8;not null" json:"answer"`
	Remarks    string `gorm:"size:512" json:"remarks,omitempty"`
}
