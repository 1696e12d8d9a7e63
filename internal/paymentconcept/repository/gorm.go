package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/paymentconcept/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide returns the gorm-backed payment concept repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentConcept, error) {
	var concept domain.PaymentConcept
	err := db.WithContext(ctx).First(&concept, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &concept, nil
}
