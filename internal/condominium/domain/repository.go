package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository resolves condominium and building references. The billing core
// only needs existence checks; full CRUD lives in the management surface.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Condominium, error)
	FindBuildingByID(ctx context.Context, db *gorm.DB, buildingID snowflake.ID) (*Building, error)
	ListBuildings(ctx context.Context, db *gorm.DB, condominiumID snowflake.ID) ([]Building, error)
}
