package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Unit, error)
	ListByBuilding(ctx context.Context, db *gorm.DB, buildingID snowflake.ID) ([]Unit, error)
	ListByCondominium(ctx context.Context, db *gorm.DB, condominiumID snowflake.ID) ([]Unit, error)
}
