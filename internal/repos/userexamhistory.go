package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/logger"
)

type UserExamHistoryRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*domain.UserExamHistory, error)
	Save(ctx context.Context, tx *gorm.DB, history *domain.UserExamHistory) (*domain.UserExamHistory, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type userExamHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserExamHistoryRepo(db *gorm.DB, baseLog *logger.Logger) UserExamHistoryRepo {
	return &userExamHistoryRepo{db: db, log: baseLog.With("repo", "UserExamHistoryRepo")}
}

func (r *userExamHistoryRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *userExamHistoryRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*domain.UserExamHistory, error) {
	var out domain.UserExamHistory
	err := r.conn(tx).WithContext(ctx).Where("user_id = ?", userID).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *userExamHistoryRepo) Save(ctx context.Context, tx *gorm.DB, history *domain.UserExamHistory) (*domain.UserExamHistory, error) {
	if history == nil {
		return nil, gorm.ErrInvalidData
	}
	if err := r.conn(tx).WithContext(ctx).Save(history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

func (r *userExamHistoryRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&domain.UserExamHistory{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
