package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ScheduleRepository interface {
	Insert(ctx context.Context, db *gorm.DB, schedule *GenerationSchedule) error
	Update(ctx context.Context, db *gorm.DB, schedule *GenerationSchedule) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*GenerationSchedule, error)
	ListByRule(ctx context.Context, db *gorm.DB, ruleID snowflake.ID) ([]GenerationSchedule, error)

	// ListDue returns active schedules whose next generation date is on or
	// before asOf, or that have never run.
	ListDue(ctx context.Context, db *gorm.DB, asOf time.Time) ([]GenerationSchedule, error)
}

type LogRepository interface {
	Insert(ctx context.Context, db *gorm.DB, log *GenerationLog) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*GenerationLog, error)
	ListBySchedule(ctx context.Context, db *gorm.DB, scheduleID snowflake.ID) ([]GenerationLog, error)
	ListByRule(ctx context.Context, db *gorm.DB, ruleID snowflake.ID) ([]GenerationLog, error)
}
