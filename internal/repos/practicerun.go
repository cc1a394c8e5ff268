package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/logger"
)

type PracticeRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *domain.PracticeRun) (*domain.PracticeRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.PracticeRun, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*domain.PracticeRun, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*domain.PracticeRun, error)
	ListByUserAndStatus(ctx context.Context, tx *gorm.DB, userID, status string) ([]*domain.PracticeRun, error)
	LatestByUser(ctx context.Context, tx *gorm.DB, userID string) (*domain.PracticeRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type practiceRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPracticeRunRepo(db *gorm.DB, baseLog *logger.Logger) PracticeRunRepo {
	return &practiceRunRepo{db: db, log: baseLog.With("repo", "PracticeRunRepo")}
}

func (r *practiceRunRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *practiceRunRepo) Create(ctx context.Context, tx *gorm.DB, run *domain.PracticeRun) (*domain.PracticeRun, error) {
	if run == nil {
		return nil, gorm.ErrInvalidData
	}
	if err := r.conn(tx).WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *practiceRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.PracticeRun, error) {
	var out domain.PracticeRun
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *practiceRunRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*domain.PracticeRun, error) {
	var results []*domain.PracticeRun
	if err := r.conn(tx).WithContext(ctx).
		Order("started_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *practiceRunRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*domain.PracticeRun, error) {
	var results []*domain.PracticeRun
	if userID == "" {
		return results, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *practiceRunRepo) ListByUserAndStatus(ctx context.Context, tx *gorm.DB, userID, status string) ([]*domain.PracticeRun, error) {
	var results []*domain.PracticeRun
	if userID == "" {
		return results, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Order("started_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *practiceRunRepo) LatestByUser(ctx context.Context, tx *gorm.DB, userID string) (*domain.PracticeRun, error) {
	var out domain.PracticeRun
	err := r.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *practiceRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.PracticeRun{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *practiceRunRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.PracticeRun{}).Error
}
