package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/currency/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide returns the gorm-backed currency repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Currency, error) {
	var currency domain.Currency
	err := db.WithContext(ctx).First(&currency, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &currency, nil
}
