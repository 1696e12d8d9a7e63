package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Unit is a billable apartment/office inside a building. Its physical
// attributes (floor, area, parking, aliquot) seed the variable context for
// expression formulas.
type Unit struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	BuildingID        snowflake.ID      `gorm:"not null;index" json:"building_id"`
	UnitNumber        string            `gorm:"type:text;not null" json:"unit_number"`
	Floor             int               `gorm:"not null;default:0" json:"floor"`
	AreaM2            decimal.Decimal   `gorm:"type:numeric(10,2);not null;default:0" json:"area_m2"`
	Bedrooms          int               `gorm:"not null;default:0" json:"bedrooms"`
	Bathrooms         int               `gorm:"not null;default:0" json:"bathrooms"`
	ParkingSpaces     int               `gorm:"not null;default:0" json:"parking_spaces"`
	AliquotPercentage decimal.Decimal   `gorm:"type:numeric(8,4);not null;default:0" json:"aliquot_percentage"`
	IsActive          bool              `gorm:"not null;default:true" json:"is_active"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Unit) TableName() string { return "units" }

// Variables derives the expression-variable values a unit contributes to
// formula evaluation.
func (u *Unit) Variables() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"floor":              decimal.NewFromInt(int64(u.Floor)),
		"area_m2":            u.AreaM2,
		"parking_spaces":     decimal.NewFromInt(int64(u.ParkingSpaces)),
		"aliquot_percentage": u.AliquotPercentage,
	}
}
