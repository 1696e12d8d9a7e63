package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/condominium/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide returns the gorm-backed condominium repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Condominium, error) {
	var condominium domain.Condominium
	err := db.WithContext(ctx).First(&condominium, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &condominium, nil
}

func (r *gormRepository) FindBuildingByID(ctx context.Context, db *gorm.DB, buildingID snowflake.ID) (*domain.Building, error) {
	var building domain.Building
	err := db.WithContext(ctx).First(&building, "id = ?", buildingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &building, nil
}

func (r *gormRepository) ListBuildings(ctx context.Context, db *gorm.DB, condominiumID snowflake.ID) ([]domain.Building, error) {
	var buildings []domain.Building
	if err := db.WithContext(ctx).
		Where("condominium_id = ?", condominiumID).
		Order("name ASC").
		Find(&buildings).Error; err != nil {
		return nil, err
	}
	return buildings, nil
}
