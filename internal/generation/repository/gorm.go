package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/generation/domain"
	"gorm.io/gorm"
)

type gormScheduleRepository struct{}

// ProvideSchedules returns the gorm-backed schedule repository.
func ProvideSchedules() domain.ScheduleRepository {
	return &gormScheduleRepository{}
}

func (r *gormScheduleRepository) Insert(ctx context.Context, db *gorm.DB, schedule *domain.GenerationSchedule) error {
	return db.WithContext(ctx).Create(schedule).Error
}

func (r *gormScheduleRepository) Update(ctx context.Context, db *gorm.DB, schedule *domain.GenerationSchedule) error {
	return db.WithContext(ctx).Save(schedule).Error
}

func (r *gormScheduleRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.GenerationSchedule, error) {
	var schedule domain.GenerationSchedule
	err := db.WithContext(ctx).First(&schedule, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *gormScheduleRepository) ListByRule(ctx context.Context, db *gorm.DB, ruleID snowflake.ID) ([]domain.GenerationSchedule, error) {
	var schedules []domain.GenerationSchedule
	err := db.WithContext(ctx).
		Where("quota_generation_rule_id = ?", ruleID).
		Order("created_at DESC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *gormScheduleRepository) ListDue(ctx context.Context, db *gorm.DB, asOf time.Time) ([]domain.GenerationSchedule, error) {
	var schedules []domain.GenerationSchedule
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("next_generation_date IS NULL OR next_generation_date <= ?", asOf).
		Order("id").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

type gormLogRepository struct{}

// ProvideLogs returns the gorm-backed generation log repository.
func ProvideLogs() domain.LogRepository {
	return &gormLogRepository{}
}

func (r *gormLogRepository) Insert(ctx context.Context, db *gorm.DB, log *domain.GenerationLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *gormLogRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.GenerationLog, error) {
	var log domain.GenerationLog
	err := db.WithContext(ctx).First(&log, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *gormLogRepository) ListBySchedule(ctx context.Context, db *gorm.DB, scheduleID snowflake.ID) ([]domain.GenerationLog, error) {
	return listLogs(ctx, db, "generation_schedule_id = ?", scheduleID)
}

func (r *gormLogRepository) ListByRule(ctx context.Context, db *gorm.DB, ruleID snowflake.ID) ([]domain.GenerationLog, error) {
	return listLogs(ctx, db, "generation_rule_id = ?", ruleID)
}

func listLogs(ctx context.Context, db *gorm.DB, cond string, arg any) ([]domain.GenerationLog, error) {
	var logs []domain.GenerationLog
	err := db.WithContext(ctx).
		Where(cond, arg).
		Order("generated_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
