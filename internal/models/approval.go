package models

import "time"

// ApprovalRecord — решение одной роли по наряду. Набор ролей фиксируется
// в момент submit и дальше не меняется; решение по роли записывается один раз.
type ApprovalRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PermitID   uint       `gorm:"uniqueIndex:ar_permit_role;not null" json:"-"`
	Role       Role       `gorm:"uniqueIndex:ar_permit_role;size:32;not null" json:"role"`
	Decision   Decision   `gorm:"size:16;not null" json:"decision"`
	ApproverID string     `gorm:"size:64" json:"approver_id,omitempty"`
	Comments   string     `gorm:"size:512" json:"comments,omitempty"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
}

// ExtensionRequest — заявка на продление. Таблица append-only: история заявок
// сохраняется, «текущая» — единственная в статусе pending.
type ExtensionRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PermitID    uint       `gorm:"index;not null" json:"-"`
	NewEndTime  time.Time  `gorm:"not null" json:"new_end_time"`
	Reason      string     `gorm:"size:512" json:"reason"`
	RequestedBy string     `gorm:"size:64;not null" json:"requested_by"`
	Decision    Decision   `gorm:"size:16;not null" json:"decision"`
	DecidedBy   string     `gorm:"size:64" json:"decided_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

// ClosureRecord — акт закрытия: создаётся один раз, только когда все четыре
// проверки выполнены, и после этого неизменяем.
type ClosureRecord struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	PermitID uint `gorm:"uniqueIndex;not null" json:"-"`

	Housekeeping bool `gorm:"not null" json:"housekeeping"`
	ToolsRemoved bool `gorm:"not null" json:"tools_removed"`
	LocksRemoved bool `gorm:"not null" json:"locks_removed"`
	AreaRestored bool `gorm:"not null" json:"area_restored"`

	Remarks  string    `gorm:"size:512" json:"remarks,omitempty"`
	ClosedBy string    `gorm:"size:64;not null" json:"closed_by"`
	ClosedAt time.Time `gorm:"not null" json:"closed_at"`
}

// Complete — все четыре пост-рабочие проверки подтверждены.
func (c *ClosureRecord) Complete() bool {
	return c.Housekeeping && c.ToolsRemoved && c.LocksRemoved && c.AreaRestored
}
