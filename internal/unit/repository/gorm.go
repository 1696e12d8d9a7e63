package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/unit/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide returns the gorm-backed unit repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Unit, error) {
	var unit domain.Unit
	err := db.WithContext(ctx).First(&unit, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *gormRepository) ListByBuilding(ctx context.Context, db *gorm.DB, buildingID snowflake.ID) ([]domain.Unit, error) {
	var units []domain.Unit
	err := db.WithContext(ctx).
		Where("building_id = ? AND is_active = ?", buildingID, true).
		Order("unit_number").
		Find(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}

func (r *gormRepository) ListByCondominium(ctx context.Context, db *gorm.DB, condominiumID snowflake.ID) ([]domain.Unit, error) {
	var units []domain.Unit
	err := db.WithContext(ctx).
		Joins("JOIN buildings ON buildings.id = units.building_id").
		Where("buildings.condominium_id = ? AND units.is_active = ?", condominiumID, true).
		Order("units.unit_number").
		Find(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}
