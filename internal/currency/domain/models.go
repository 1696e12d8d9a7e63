package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Currency describes a billable currency. DecimalPlaces drives the rounding
// applied to every formula evaluation result.
type Currency struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Code          string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Symbol        string       `gorm:"type:text;not null" json:"symbol"`
	DecimalPlaces int32        `gorm:"not null;default:2" json:"decimal_places"`
	IsActive      bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Currency) TableName() string { return "currencies" }
