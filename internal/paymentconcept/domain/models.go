package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentConcept is a billable category (maintenance, water, reserve fund)
// a condominium defines. Quotas and generation rules reference one concept.
type PaymentConcept struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CondominiumID snowflake.ID `gorm:"not null;index" json:"condominium_id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Description   string       `gorm:"type:text" json:"description,omitempty"`
	IsActive      bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PaymentConcept) TableName() string { return "payment_concepts" }
