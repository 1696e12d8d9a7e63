package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Condominium is the tenant boundary for billing policy: formulas, rules and
// quotas all hang off one condominium.
type Condominium struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Address   string       `gorm:"type:text" json:"address"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Condominium) TableName() string { return "condominiums" }

// Building groups units inside a condominium. Generation rules may scope to a
// single building; a null building id on a rule means condominium-wide.
type Building struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CondominiumID snowflake.ID `gorm:"not null;index" json:"condominium_id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Floors        int          `gorm:"not null;default:1" json:"floors"`
	IsActive      bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Building) TableName() string { return "buildings" }
