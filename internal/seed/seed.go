// Package seed bootstraps reference rows the core cannot operate without.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	currencydomain "github.com/jadiazinf/condominio-core/internal/currency/domain"
	"gorm.io/gorm"
)

type currencySeed struct {
	Code          string
	Name          string
	Symbol        string
	DecimalPlaces int32
}

// VES is the base currency; quotas priced in other currencies carry an
// exchange rate back to it.
var defaultCurrencies = []currencySeed{
	{Code: "VES", Name: "Bolívar", Symbol: "Bs.", DecimalPlaces: 2},
	{Code: "USD", Name: "Dólar Estadounidense", Symbol: "$", DecimalPlaces: 2},
	{Code: "EUR", Name: "Euro", Symbol: "€", DecimalPlaces: 2},
}

// EnsureDefaultCurrencies inserts the currencies the platform supports out
// of the box. Existing rows are left untouched.
func EnsureDefaultCurrencies(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, seed := range defaultCurrencies {
			var existing currencydomain.Currency
			err := tx.WithContext(ctx).
				Where("code = ?", seed.Code).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			currency := currencydomain.Currency{
				ID:            node.Generate(),
				Code:          seed.Code,
				Name:          seed.Name,
				Symbol:        seed.Symbol,
				DecimalPlaces: seed.DecimalPlaces,
				IsActive:      true,
			}
			if err := tx.WithContext(ctx).Create(&currency).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
