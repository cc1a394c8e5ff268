package services

import (
	"context"

	"github.com/approva/simulado-backend/internal/clients/generator"
	"github.com/approva/simulado-backend/internal/clients/questionbank"
	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/apierr"
	"github.com/approva/simulado-backend/internal/platform/logger"
)

const (
	sourceCustom = "custom"

	collabGenerator    = "question-generator"
	collabQuestionBank = "question-bank"
	collabExamBank     = "exam-bank"
)

// AssemblyResult is what an assembled module hands back to the lifecycle
// layer: the persisted items, plus exam metadata when a fixed exam is
// involved.
type AssemblyResult struct {
	Items    []domain.QuestionItem    `json:"items"`
	ExamMeta *domain.OriginalExamMeta `json:"exam_meta,omitempty"`
}

// Module2Result carries the tier decision alongside the persisted items.
type Module2Result struct {
	Items     []domain.QuestionItem `json:"items"`
	Tier      string                `json:"tier"`
	Threshold int                   `json:"threshold"`
}

// AssemblyService builds the question set for a freshly created run and
// persists it in the question bank. Generation and persistence failures come
// back as upstream errors; the lifecycle layer owns the compensation that
// follows.
type AssemblyService interface {
	BuildAdaptive(ctx context.Context, bearer string, run *domain.PracticeRun) (*AssemblyResult, error)
	BuildOriginal(ctx context.Context, bearer string, run *domain.PracticeRun) (*AssemblyResult, error)
	BuildCustom(ctx context.Context, bearer string, run *domain.PracticeRun, selections []domain.CustomPracticeSelection, total int) (*AssemblyResult, error)
	LoadModule2(ctx context.Context, bearer string, run *domain.PracticeRun, examID string, module1Correct int) (*Module2Result, error)
}

type assemblyService struct {
	gen   generator.Client
	qbank questionbank.Client
	exams OriginalExamService
	log   *logger.Logger
}

func NewAssemblyService(gen generator.Client, qbank questionbank.Client, exams OriginalExamService, baseLog *logger.Logger) AssemblyService {
	return &assemblyService{
		gen:   gen,
		qbank: qbank,
		exams: exams,
		log:   baseLog.With("service", "AssemblyService"),
	}
}

func (s *assemblyService) BuildAdaptive(ctx context.Context, bearer string, run *domain.PracticeRun) (*AssemblyResult, error) {
	res, err := s.gen.GenerateAdaptiveModule(ctx, run.UserID)
	if err != nil {
		return nil, apierr.UpstreamGeneration(collabGenerator, err)
	}
	if len(res.Questions) == 0 {
		return nil, apierr.EmptyGenerationResult()
	}
	items := mapGenerated(run, res.Questions, 1, "")
	created, err := s.persist(ctx, bearer, items)
	if err != nil {
		return nil, err
	}
	return &AssemblyResult{Items: created}, nil
}

func (s *assemblyService) BuildOriginal(ctx context.Context, bearer string, run *domain.PracticeRun) (*AssemblyResult, error) {
	exam, err := s.exams.NextExamForUser(ctx, run.UserID)
	if err != nil {
		return nil, err
	}
	module1, err := DecodeExamModule(exam.Module1)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabExamBank, err)
	}
	if len(module1) == 0 {
		return nil, apierr.EmptyGenerationResult()
	}
	meta, err := DecodeExamMetadata(exam.Metadata)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabExamBank, err)
	}

	items := mapExamQuestions(run, module1, 1)
	created, err := s.persist(ctx, bearer, items)
	if err != nil {
		return nil, err
	}
	if err := s.exams.MarkStarted(ctx, run.UserID, exam.ExamID); err != nil {
		// The run rollback in the lifecycle layer does not know about the
		// items created above, so reap them here before surfacing.
		s.deleteItems(ctx, bearer, created)
		return nil, apierr.UpstreamPersistence(collabExamBank, err)
	}
	return &AssemblyResult{
		Items: created,
		ExamMeta: &domain.OriginalExamMeta{
			ExamID:     exam.ExamID,
			IsAdaptive: exam.IsAdaptive,
			Threshold:  ResolveThreshold(meta),
		},
	}, nil
}

func (s *assemblyService) BuildCustom(ctx context.Context, bearer string, run *domain.PracticeRun, selections []domain.CustomPracticeSelection, total int) (*AssemblyResult, error) {
	plan := BuildPlan(selections, total)
	res, err := s.gen.GenerateCustomExam(ctx, plan)
	if err != nil {
		return nil, apierr.UpstreamGeneration(collabGenerator, err)
	}
	if len(res.Questions) == 0 {
		return nil, apierr.EmptyGenerationResult()
	}
	items := mapGenerated(run, res.Questions, 1, sourceCustom)
	created, err := s.persist(ctx, bearer, items)
	if err != nil {
		return nil, err
	}
	return &AssemblyResult{Items: created}, nil
}

// LoadModule2 routes the user to the easy or hard second module of the exam
// they are sitting, based on their module-1 correct count.
func (s *assemblyService) LoadModule2(ctx context.Context, bearer string, run *domain.PracticeRun, examID string, module1Correct int) (*Module2Result, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	meta, err := DecodeExamMetadata(exam.Metadata)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabExamBank, err)
	}
	threshold := ResolveThreshold(meta)
	tier := PickModule2Tier(module1Correct, threshold)

	raw := exam.Module2Easy
	if tier == domain.DifficultyHard {
		raw = exam.Module2Hard
	}
	questions, err := DecodeExamModule(raw)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabExamBank, err)
	}
	if len(questions) == 0 {
		return nil, apierr.EmptyGenerationResult()
	}
	items := mapExamQuestions(run, questions, 2)
	created, err := s.persist(ctx, bearer, items)
	if err != nil {
		return nil, err
	}
	s.log.Info("module 2 assembled", "run_id", run.ID.String(), "exam_id", examID, "tier", tier, "count", len(created))
	return &Module2Result{Items: created, Tier: tier, Threshold: threshold}, nil
}

// deleteItems is best-effort cleanup of items persisted by a build that
// failed afterwards. Leftovers are logged for manual reconciliation.
func (s *assemblyService) deleteItems(ctx context.Context, bearer string, items []domain.QuestionItem) {
	for i := range items {
		if err := s.qbank.DeleteItem(ctx, bearer, items[i].ID); err != nil {
			s.log.Warn("orphaned question item cleanup failed",
				"item_id", items[i].ID,
				"run_id", items[i].RunID,
				"error", err.Error(),
			)
		}
	}
}

func (s *assemblyService) persist(ctx context.Context, bearer string, items []domain.QuestionItem) ([]domain.QuestionItem, error) {
	created, err := s.qbank.CreateItems(ctx, bearer, items)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabQuestionBank, err)
	}
	return created, nil
}

func mapGenerated(run *domain.PracticeRun, questions []generator.GeneratedQuestion, module int, sourceTag string) []domain.QuestionItem {
	items := make([]domain.QuestionItem, 0, len(questions))
	for _, q := range questions {
		source := q.Source
		if sourceTag != "" {
			source = sourceTag
		}
		items = append(items, domain.QuestionItem{
			RunID:              run.ID.String(),
			UserID:             run.UserID,
			Topic:              NormalizeLabel(q.Topic),
			Subskill:           NormalizeLabel(q.Subskill),
			Structure:          NormalizeLabel(q.Structure),
			Difficulty:         q.Difficulty,
			Question:           q.Question,
			Options:            q.Options,
			CorrectOption:      q.CorrectOption,
			SolutionEnglish:    q.SolutionEnglish,
			SolutionPortuguese: q.SolutionPortuguese,
			HintEnglish:        q.HintEnglish,
			HintPortuguese:     q.HintPortuguese,
			Figure:             q.Figure,
			TargetMistakes:     q.TargetMistakes,
			Format:             q.Format,
			Representation:     q.Representation,
			Source:             source,
			Module:             module,
		})
	}
	return items
}

func mapExamQuestions(run *domain.PracticeRun, questions []domain.ExamQuestion, module int) []domain.QuestionItem {
	items := make([]domain.QuestionItem, 0, len(questions))
	for _, q := range questions {
		items = append(items, domain.QuestionItem{
			RunID:              run.ID.String(),
			UserID:             run.UserID,
			Topic:              NormalizeLabel(q.Topic),
			Subskill:           NormalizeLabel(q.Subskill),
			Structure:          NormalizeLabel(q.Structure),
			Difficulty:         q.Difficulty,
			Question:           q.Question,
			Options:            q.Options,
			CorrectOption:      q.CorrectOption,
			SolutionEnglish:    q.SolutionEnglish,
			SolutionPortuguese: q.SolutionPortuguese,
			HintEnglish:        q.HintEnglish,
			HintPortuguese:     q.HintPortuguese,
			Figure:             q.Figure,
			Format:             q.Format,
			Representation:     q.Representation,
			Source:             q.Source,
			Module:             module,
		})
	}
	return items
}
