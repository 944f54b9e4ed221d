package models

import (
	"time"

	"gorm.io/datatypes"
)

// Справочники (master data). Для ядра — только чтение; ведутся снаружи.

type Site struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Code      string    `gorm:"uniqueIndex;size:32;not null" json:"code"`
}

type Hazard struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:255;not null" json:"name"`
}

type PPEItem struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:255;not null" json:"name"`
}

type ChecklistQuestion struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Type      PermitType `gorm:"index;size:32;not null" json:"type"`
	Text      string     `gorm:"size:512;not null" json:"text"`
	Mandatory bool       `gorm:"not null" json:"mandatory"`
}

// ApprovalPolicy — набор ролей-согласующих для (площадка, тип наряда).
// SiteID == 0 — политика по умолчанию для типа. Roles — JSON-массив строк,
// валидируется при старте (см. permit.NewPolicyTable).
type ApprovalPolicy struct {
	ID     uint           `gorm:"primaryKey" json:"id"`
	SiteID uint           `gorm:"uniqueIndex:pol_site_type" json:"site_id"`
	Type   PermitType     `gorm:"uniqueIndex:pol_site_type;size:32;not null" json:"type"`
	Roles  datatypes.JSON `gorm:"type:jsonb;not null" json:"roles"`
}
