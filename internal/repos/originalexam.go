package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/logger"
)

type OriginalExamRepo interface {
	GetByExamID(ctx context.Context, tx *gorm.DB, examID string) (*domain.OriginalExam, error)
	ListActiveExamIDs(ctx context.Context, tx *gorm.DB) ([]string, error)
	CountActive(ctx context.Context, tx *gorm.DB) (int64, error)
	Upsert(ctx context.Context, tx *gorm.DB, exam *domain.OriginalExam) (*domain.OriginalExam, error)
}

type originalExamRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOriginalExamRepo(db *gorm.DB, baseLog *logger.Logger) OriginalExamRepo {
	return &originalExamRepo{db: db, log: baseLog.With("repo", "OriginalExamRepo")}
}

func (r *originalExamRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *originalExamRepo) GetByExamID(ctx context.Context, tx *gorm.DB, examID string) (*domain.OriginalExam, error) {
	var out domain.OriginalExam
	err := r.conn(tx).WithContext(ctx).Where("exam_id = ?", examID).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *originalExamRepo) ListActiveExamIDs(ctx context.Context, tx *gorm.DB) ([]string, error) {
	var ids []string
	if err := r.conn(tx).WithContext(ctx).
		Model(&domain.OriginalExam{}).
		Where("is_active = ?", true).
		Order("exam_id ASC").
		Pluck("exam_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *originalExamRepo) CountActive(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&domain.OriginalExam{}).
		Where("is_active = ?", true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *originalExamRepo) Upsert(ctx context.Context, tx *gorm.DB, exam *domain.OriginalExam) (*domain.OriginalExam, error) {
	if exam == nil {
		return nil, gorm.ErrInvalidData
	}
	existing, err := r.GetByExamID(ctx, tx, exam.ExamID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		exam.ID = existing.ID
		if err := r.conn(tx).WithContext(ctx).Save(exam).Error; err != nil {
			return nil, err
		}
		return exam, nil
	}
	if err := r.conn(tx).WithContext(ctx).Create(exam).Error; err != nil {
		return nil, err
	}
	return exam, nil
}
