package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"

	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/apierr"
	"github.com/approva/simulado-backend/internal/platform/logger"
	"github.com/approva/simulado-backend/internal/repos"
)

// OriginalExamService is the fixed-exam bank: which pre-built exams exist,
// which ones a user has completed, and which one comes next.
type OriginalExamService interface {
	NextExamForUser(ctx context.Context, userID string) (*domain.OriginalExam, error)
	GetExam(ctx context.Context, examID string) (*domain.OriginalExam, error)
	AvailableExamIDs(ctx context.Context, userID string) ([]string, error)
	CompletedExams(ctx context.Context, userID string) ([]domain.CompletedExam, error)
	MarkStarted(ctx context.Context, userID, examID string) error
	MarkCompleted(ctx context.Context, userID string, entry domain.CompletedExam) error
	CurrentExamID(ctx context.Context, userID string) (string, error)
	UpsertExam(ctx context.Context, exam *domain.OriginalExam) (*domain.OriginalExam, error)
}

type originalExamService struct {
	exams   repos.OriginalExamRepo
	history repos.UserExamHistoryRepo
	log     *logger.Logger
}

func NewOriginalExamService(exams repos.OriginalExamRepo, history repos.UserExamHistoryRepo, baseLog *logger.Logger) OriginalExamService {
	return &originalExamService{exams: exams, history: history, log: baseLog.With("service", "OriginalExamService")}
}

// NextExamForUser picks the lowest exam identifier among active exams the
// user has not completed. String order makes progression deterministic and
// exhaustible.
func (s *originalExamService) NextExamForUser(ctx context.Context, userID string) (*domain.OriginalExam, error) {
	remaining, err := s.AvailableExamIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(remaining) == 0 {
		return nil, apierr.AllExamsCompleted(userID)
	}
	exam, err := s.exams.GetByExamID(ctx, nil, remaining[0])
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, fmt.Errorf("exam %s listed active but not found", remaining[0])
	}
	return exam, nil
}

func (s *originalExamService) GetExam(ctx context.Context, examID string) (*domain.OriginalExam, error) {
	exam, err := s.exams.GetByExamID(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, apierr.Newf(404, "EXAM_NOT_FOUND", "exam %s not found", examID)
	}
	return exam, nil
}

func (s *originalExamService) AvailableExamIDs(ctx context.Context, userID string) ([]string, error) {
	active, err := s.exams.ListActiveExamIDs(ctx, nil)
	if err != nil {
		return nil, err
	}
	completed, err := s.CompletedExams(ctx, userID)
	if err != nil {
		return nil, err
	}
	done := lo.SliceToMap(completed, func(e domain.CompletedExam) (string, struct{}) {
		return e.ExamID, struct{}{}
	})
	remaining := lo.Filter(active, func(id string, _ int) bool {
		_, ok := done[id]
		return !ok
	})
	sort.Strings(remaining)
	return remaining, nil
}

func (s *originalExamService) CompletedExams(ctx context.Context, userID string) ([]domain.CompletedExam, error) {
	h, err := s.history.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}
	return decodeCompletedExams(h.CompletedExams)
}

func (s *originalExamService) CurrentExamID(ctx context.Context, userID string) (string, error) {
	h, err := s.history.GetByUserID(ctx, nil, userID)
	if err != nil {
		return "", err
	}
	if h == nil {
		return "", nil
	}
	return h.CurrentExamID, nil
}

func (s *originalExamService) MarkStarted(ctx context.Context, userID, examID string) error {
	h, err := s.history.GetByUserID(ctx, nil, userID)
	if err != nil {
		return err
	}
	if h == nil {
		h = &domain.UserExamHistory{UserID: userID}
	}
	h.CurrentExamID = examID
	_, err = s.history.Save(ctx, nil, h)
	return err
}

// MarkCompleted appends the entry and clears the in-progress marker.
// Duplicate completions for the same exam are dropped, which keeps retried
// finalizations from consuming extra exams.
func (s *originalExamService) MarkCompleted(ctx context.Context, userID string, entry domain.CompletedExam) error {
	h, err := s.history.GetByUserID(ctx, nil, userID)
	if err != nil {
		return err
	}
	if h == nil {
		h = &domain.UserExamHistory{UserID: userID}
	}
	completed, err := decodeCompletedExams(h.CompletedExams)
	if err != nil {
		return err
	}
	already := lo.ContainsBy(completed, func(e domain.CompletedExam) bool {
		return e.ExamID == entry.ExamID
	})
	if !already {
		if entry.CompletedAt.IsZero() {
			entry.CompletedAt = time.Now().UTC()
		}
		completed = append(completed, entry)
	} else {
		s.log.Warn("duplicate exam completion ignored", "exam_id", entry.ExamID, "user_id", userID)
	}
	raw, err := json.Marshal(completed)
	if err != nil {
		return err
	}
	h.CompletedExams = datatypes.JSON(raw)
	if h.CurrentExamID == entry.ExamID {
		h.CurrentExamID = ""
	}
	_, err = s.history.Save(ctx, nil, h)
	return err
}

func (s *originalExamService) UpsertExam(ctx context.Context, exam *domain.OriginalExam) (*domain.OriginalExam, error) {
	return s.exams.Upsert(ctx, nil, exam)
}

func decodeCompletedExams(raw datatypes.JSON) ([]domain.CompletedExam, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []domain.CompletedExam
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode completed exams: %w", err)
	}
	return out, nil
}

// DecodeExamModule unpacks one stored module payload.
func DecodeExamModule(raw datatypes.JSON) ([]domain.ExamQuestion, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []domain.ExamQuestion
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode exam module: %w", err)
	}
	return out, nil
}

// DecodeExamMetadata unpacks the stored metadata blob; nil when absent.
func DecodeExamMetadata(raw datatypes.JSON) (*domain.ExamMetadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out domain.ExamMetadata
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode exam metadata: %w", err)
	}
	return &out, nil
}
