package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/approva/simulado-backend/internal/catalog"
	"github.com/approva/simulado-backend/internal/clients/profilestore"
	"github.com/approva/simulado-backend/internal/clients/questionbank"
	"github.com/approva/simulado-backend/internal/clients/usersvc"
	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/apierr"
	"github.com/approva/simulado-backend/internal/platform/leases"
	"github.com/approva/simulado-backend/internal/platform/logger"
	"github.com/approva/simulado-backend/internal/repos"
	"github.com/approva/simulado-backend/internal/requestdata"
)

const (
	// CostFixedRun is the wins price of one adaptive or original run.
	CostFixedRun = 5
	// CostPerCustomQuestion prices custom practice per requested question.
	CostPerCustomQuestion = 2

	collabWallet       = "wallet"
	collabProfileStore = "profile-store"
	collabRunStore     = "run-store"
)

// StartResult is the start-operation payload: the open run, its module-1
// items, and exam metadata for original-mode runs.
type StartResult struct {
	Run      *domain.PracticeRun      `json:"run"`
	Items    []domain.QuestionItem    `json:"items"`
	ExamMeta *domain.OriginalExamMeta `json:"exam_meta,omitempty"`
}

// UserStats summarizes a user's finalized runs.
type UserStats struct {
	UserID        string `json:"user_id"`
	FinalizedRuns int    `json:"finalized_runs"`
	BestScore     int    `json:"best_score"`
}

// LifecycleService owns the practice-run state machine: starting a run
// (wallet debit, exclusivity, assembly, compensation on failure) and
// finalizing it (answer write-back, profile recomputation).
type LifecycleService interface {
	StartAdaptive(ctx context.Context) (*StartResult, error)
	StartOriginal(ctx context.Context) (*StartResult, error)
	StartCustomPractice(ctx context.Context, selections []domain.CustomPracticeSelection, total int) (*StartResult, error)
	Finalize(ctx context.Context, runID uuid.UUID, answered []domain.AnsweredItemPatch) (*domain.PracticeRun, error)
	LoadModule2(ctx context.Context, runID uuid.UUID, module1Correct int) (*Module2Result, error)

	GetRun(ctx context.Context, runID uuid.UUID) (*domain.PracticeRun, error)
	ListRuns(ctx context.Context, userID string) ([]*domain.PracticeRun, error)
	LatestRun(ctx context.Context, userID string) (*domain.PracticeRun, error)
	ListItems(ctx context.Context, runID uuid.UUID) ([]domain.QuestionItem, error)
	DeleteRun(ctx context.Context, runID uuid.UUID) error
	Stats(ctx context.Context, userID string) (*UserStats, error)
}

type lifecycleService struct {
	runs     repos.PracticeRunRepo
	users    usersvc.Client
	qbank    questionbank.Client
	profiles profilestore.Client
	assembly AssemblyService
	exams    OriginalExamService
	catalog  catalog.Loader
	leases   leases.Manager
	params   ScoreParams
	log      *logger.Logger
}

func NewLifecycleService(
	runs repos.PracticeRunRepo,
	users usersvc.Client,
	qbank questionbank.Client,
	profiles profilestore.Client,
	assembly AssemblyService,
	exams OriginalExamService,
	catalogLoader catalog.Loader,
	leaseManager leases.Manager,
	params ScoreParams,
	baseLog *logger.Logger,
) LifecycleService {
	return &lifecycleService{
		runs:     runs,
		users:    users,
		qbank:    qbank,
		profiles: profiles,
		assembly: assembly,
		exams:    exams,
		catalog:  catalogLoader,
		leases:   leaseManager,
		params:   params,
		log:      baseLog.With("service", "LifecycleService"),
	}
}

// chargeSaga wraps the wallet debit for one start attempt together with its
// single compensating credit. No coordinator exists; a failed compensation is
// logged for manual reconciliation and never retried.
type chargeSaga struct {
	users   usersvc.Client
	log     *logger.Logger
	bearer  string
	userID  string
	amount  int64
	debited bool
}

func (s *chargeSaga) Debit(ctx context.Context) error {
	if _, err := s.users.AdjustWins(ctx, s.bearer, s.userID, -s.amount); err != nil {
		return apierr.UpstreamWallet(err)
	}
	s.debited = true
	return nil
}

func (s *chargeSaga) Compensate(ctx context.Context) {
	if !s.debited {
		return
	}
	if _, err := s.users.AdjustWins(ctx, s.bearer, s.userID, s.amount); err != nil {
		s.log.Error("wallet compensation failed, manual reconciliation required",
			"user_id", s.userID, "amount", s.amount, "error", err)
		return
	}
	s.debited = false
	s.log.Info("wallet debit compensated", "user_id", s.userID, "amount", s.amount)
}

func (s *lifecycleService) StartAdaptive(ctx context.Context) (*StartResult, error) {
	return s.start(ctx, domain.RunModeAdaptive, CostFixedRun,
		func(ctx context.Context, bearer string, run *domain.PracticeRun) (*AssemblyResult, error) {
			return s.assembly.BuildAdaptive(ctx, bearer, run)
		})
}

func (s *lifecycleService) StartOriginal(ctx context.Context) (*StartResult, error) {
	return s.start(ctx, domain.RunModeOriginal, CostFixedRun,
		func(ctx context.Context, bearer string, run *domain.PracticeRun) (*AssemblyResult, error) {
			return s.assembly.BuildOriginal(ctx, bearer, run)
		})
}

func (s *lifecycleService) StartCustomPractice(ctx context.Context, selections []domain.CustomPracticeSelection, total int) (*StartResult, error) {
	if len(selections) == 0 {
		return nil, apierr.InvalidPayload("at least one selection is required")
	}
	maxTotal := MaxQuestionsPerSelection * len(selections)
	if total < 1 || total > maxTotal {
		return nil, apierr.InvalidPlanSize(total, maxTotal)
	}
	return s.start(ctx, domain.RunModeCustomPractice, CostPerCustomQuestion*total,
		func(ctx context.Context, bearer string, run *domain.PracticeRun) (*AssemblyResult, error) {
			return s.assembly.BuildCustom(ctx, bearer, run, selections, total)
		})
}

// start runs the shared open-a-run sequence: lease, balance check, open-run
// exclusivity, debit, run creation, assembly. Any failure after the debit
// credits the wallet back and removes the dangling run.
func (s *lifecycleService) start(ctx context.Context, mode string, cost int, assemble func(context.Context, string, *domain.PracticeRun) (*AssemblyResult, error)) (*StartResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == "" {
		return nil, apierr.InvalidPayload("missing authenticated identity")
	}

	lease, err := s.leases.Acquire(ctx, rd.UserID)
	if err != nil {
		if errors.Is(err, leases.ErrLeaseHeld) {
			return nil, apierr.RunAlreadyOpen("")
		}
		return nil, err
	}
	defer s.leases.Release(ctx, lease)

	me, err := s.users.Me(ctx, rd.Bearer)
	if err != nil {
		return nil, apierr.UpstreamWallet(err)
	}
	var balance int64
	if me.Wins != nil {
		balance = *me.Wins
	}
	if balance < int64(cost) {
		return nil, apierr.InsufficientFunds(cost, int(balance))
	}

	open, err := s.runs.ListByUserAndStatus(ctx, nil, rd.UserID, domain.RunStatusOpen)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabRunStore, err)
	}
	if len(open) > 0 {
		return nil, apierr.RunAlreadyOpen(open[0].ID.String())
	}

	saga := &chargeSaga{users: s.users, log: s.log, bearer: rd.Bearer, userID: rd.UserID, amount: int64(cost)}
	if err := saga.Debit(ctx); err != nil {
		return nil, err
	}

	run := &domain.PracticeRun{
		UserID:    rd.UserID,
		Mode:      mode,
		Status:    domain.RunStatusOpen,
		CostWins:  cost,
		StartedAt: time.Now().UTC(),
	}
	run, err = s.runs.Create(ctx, nil, run)
	if err != nil {
		saga.Compensate(ctx)
		return nil, apierr.UpstreamPersistence(collabRunStore, err)
	}

	assembled, err := assemble(ctx, rd.Bearer, run)
	if err != nil {
		saga.Compensate(ctx)
		if delErr := s.runs.Delete(ctx, nil, run.ID); delErr != nil {
			s.log.Warn("orphan run cleanup failed", "run_id", run.ID.String(), "error", delErr)
		}
		return nil, err
	}

	s.log.Info("run started", "run_id", run.ID.String(), "mode", mode, "cost", cost, "items", len(assembled.Items))
	return &StartResult{Run: run, Items: assembled.Items, ExamMeta: assembled.ExamMeta}, nil
}

// Finalize writes the answers back, flips the run to FINALIZED, recomputes
// the whole mastery profile from history, and pushes it to the profile
// store. Original-mode runs also record the exam as completed.
func (s *lifecycleService) Finalize(ctx context.Context, runID uuid.UUID, answered []domain.AnsweredItemPatch) (*domain.PracticeRun, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == "" {
		return nil, apierr.InvalidPayload("missing authenticated identity")
	}
	if len(answered) == 0 {
		return nil, apierr.EmptyAnswerSet()
	}

	run, err := s.runs.GetByID(ctx, nil, runID)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabRunStore, err)
	}
	if run == nil {
		return nil, apierr.RunNotFound(runID.String())
	}
	if run.UserID != rd.UserID {
		return nil, apierr.OwnerMismatch()
	}
	if run.Status != domain.RunStatusOpen {
		return nil, apierr.AlreadyFinalized(runID.String())
	}

	for i := range answered {
		p := &answered[i]
		if strings.TrimSpace(p.ID) == "" {
			return nil, apierr.InvalidPayload("answered item %d has a blank id", i)
		}
		if p.RunID != "" && p.RunID != runID.String() {
			return nil, apierr.InvalidPayload("answered item %s belongs to run %s", p.ID, p.RunID)
		}
		if p.UserID != "" && p.UserID != rd.UserID {
			return nil, apierr.InvalidPayload("answered item %s belongs to another user", p.ID)
		}
	}

	if err := s.writeAnswers(ctx, rd.Bearer, answered); err != nil {
		return nil, err
	}

	if err := s.runs.UpdateFields(ctx, nil, runID, map[string]interface{}{"status": domain.RunStatusFinalized}); err != nil {
		return nil, apierr.UpstreamPersistence(collabRunStore, err)
	}
	run.Status = domain.RunStatusFinalized

	if err := s.recomputeAndPush(ctx, rd, run); err != nil {
		return nil, err
	}

	if run.Mode == domain.RunModeOriginal {
		if err := s.recordExamCompletion(ctx, rd, run, answered); err != nil {
			// Completion bookkeeping must not undo a finalized run.
			s.log.Warn("exam completion record failed", "run_id", runID.String(), "error", err)
		}
	}

	s.log.Info("run finalized", "run_id", runID.String(), "answers", len(answered))
	return run, nil
}

// writeAnswers persists the marked-answer fields, preferring the bulk
// endpoint and degrading to per-item updates when it fails.
func (s *lifecycleService) writeAnswers(ctx context.Context, bearer string, answered []domain.AnsweredItemPatch) error {
	err := s.qbank.BulkUpdate(ctx, bearer, answered)
	if err == nil {
		return nil
	}
	s.log.Warn("bulk answer update failed, falling back to per-item", "count", len(answered), "error", err)
	for _, p := range answered {
		if err := s.qbank.UpdateItem(ctx, bearer, p.ID, p); err != nil {
			return apierr.UpstreamPersistence(collabQuestionBank, err)
		}
	}
	return nil
}

func (s *lifecycleService) recomputeAndPush(ctx context.Context, rd *requestdata.RequestData, run *domain.PracticeRun) error {
	history, err := s.qbank.ListByUser(ctx, rd.Bearer, rd.UserID)
	if err != nil {
		return apierr.UpstreamPersistence(collabQuestionBank, err)
	}
	cat, err := s.catalog.LoadCatalog(rd.UserID)
	if err != nil {
		return err
	}
	runs, err := s.runs.ListByUser(ctx, nil, rd.UserID)
	if err != nil {
		return apierr.UpstreamPersistence(collabRunStore, err)
	}

	profile := RecomputeProfile(cat, rd.UserID, history, runs, run.ID.String(), time.Now().UTC(), s.params)
	if err := s.profiles.UpsertProfileForUser(ctx, rd.Bearer, rd.UserID, profile); err != nil {
		return apierr.UpstreamPersistence(collabProfileStore, err)
	}
	return nil
}

// recordExamCompletion marks the in-progress fixed exam completed with the
// score extracted from this run's answers.
func (s *lifecycleService) recordExamCompletion(ctx context.Context, rd *requestdata.RequestData, run *domain.PracticeRun, answered []domain.AnsweredItemPatch) error {
	examID, err := s.exams.CurrentExamID(ctx, rd.UserID)
	if err != nil {
		return err
	}
	if examID == "" {
		return nil
	}

	items, err := s.qbank.ListByRun(ctx, rd.Bearer, run.ID.String())
	if err != nil {
		return err
	}
	score, m1Score := scoreRun(items)
	tier := ""
	for i := range items {
		if items[i].Module == 2 {
			tier = items[i].Difficulty
			break
		}
	}
	return s.exams.MarkCompleted(ctx, rd.UserID, domain.CompletedExam{
		ExamID:       examID,
		AttemptID:    run.ID.String(),
		CompletedAt:  time.Now().UTC(),
		Score:        &score,
		Module1Score: &m1Score,
		Module2Tier:  tier,
	})
}

func scoreRun(items []domain.QuestionItem) (total, module1 int) {
	for i := range items {
		if !items[i].AnsweredCorrectly() {
			continue
		}
		total++
		if items[i].Module == 1 {
			module1++
		}
	}
	return total, module1
}

// LoadModule2 resolves the exam the user is sitting and assembles its second
// module for an open original-mode run.
func (s *lifecycleService) LoadModule2(ctx context.Context, runID uuid.UUID, module1Correct int) (*Module2Result, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == "" {
		return nil, apierr.InvalidPayload("missing authenticated identity")
	}
	run, err := s.runs.GetByID(ctx, nil, runID)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabRunStore, err)
	}
	if run == nil {
		return nil, apierr.RunNotFound(runID.String())
	}
	if run.UserID != rd.UserID {
		return nil, apierr.OwnerMismatch()
	}
	if run.Status != domain.RunStatusOpen {
		return nil, apierr.AlreadyFinalized(runID.String())
	}
	examID, err := s.exams.CurrentExamID(ctx, rd.UserID)
	if err != nil {
		return nil, err
	}
	if examID == "" {
		return nil, apierr.Newf(404, "EXAM_NOT_FOUND", "no exam in progress for user")
	}
	return s.assembly.LoadModule2(ctx, rd.Bearer, run, examID, module1Correct)
}

func (s *lifecycleService) GetRun(ctx context.Context, runID uuid.UUID) (*domain.PracticeRun, error) {
	run, err := s.runs.GetByID(ctx, nil, runID)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabRunStore, err)
	}
	if run == nil {
		return nil, apierr.RunNotFound(runID.String())
	}
	return run, nil
}

func (s *lifecycleService) ListRuns(ctx context.Context, userID string) ([]*domain.PracticeRun, error) {
	return s.runs.ListByUser(ctx, nil, userID)
}

func (s *lifecycleService) LatestRun(ctx context.Context, userID string) (*domain.PracticeRun, error) {
	run, err := s.runs.LatestByUser(ctx, nil, userID)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabRunStore, err)
	}
	if run == nil {
		return nil, apierr.RunNotFound("")
	}
	return run, nil
}

func (s *lifecycleService) ListItems(ctx context.Context, runID uuid.UUID) ([]domain.QuestionItem, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.InvalidPayload("missing authenticated identity")
	}
	items, err := s.qbank.ListByRun(ctx, rd.Bearer, runID.String())
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabQuestionBank, err)
	}
	return items, nil
}

// DeleteRun removes a run and its question-bank items. Administrative use
// only; the state machine itself never deletes.
func (s *lifecycleService) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == "" {
		return apierr.InvalidPayload("missing authenticated identity")
	}
	run, err := s.runs.GetByID(ctx, nil, runID)
	if err != nil {
		return apierr.UpstreamPersistence(collabRunStore, err)
	}
	if run == nil {
		return apierr.RunNotFound(runID.String())
	}
	if run.UserID != rd.UserID {
		return apierr.OwnerMismatch()
	}

	items, err := s.qbank.ListByRun(ctx, rd.Bearer, runID.String())
	if err != nil {
		return apierr.UpstreamPersistence(collabQuestionBank, err)
	}
	for i := range items {
		if err := s.qbank.DeleteItem(ctx, rd.Bearer, items[i].ID); err != nil {
			return apierr.UpstreamPersistence(collabQuestionBank, err)
		}
	}
	if err := s.runs.Delete(ctx, nil, runID); err != nil {
		return apierr.UpstreamPersistence(collabRunStore, err)
	}
	s.log.Info("run deleted", "run_id", runID.String(), "items", len(items))
	return nil
}

// Stats fans out one question-bank read per finalized run concurrently and
// merges by maximum; the reads are independent, so order does not matter.
func (s *lifecycleService) Stats(ctx context.Context, userID string) (*UserStats, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.InvalidPayload("missing authenticated identity")
	}
	finalized, err := s.runs.ListByUserAndStatus(ctx, nil, userID, domain.RunStatusFinalized)
	if err != nil {
		return nil, apierr.UpstreamPersistence(collabRunStore, err)
	}

	scores := make([]int, len(finalized))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, run := range finalized {
		g.Go(func() error {
			items, err := s.qbank.ListByRun(gctx, rd.Bearer, run.ID.String())
			if err != nil {
				return apierr.UpstreamPersistence(collabQuestionBank, err)
			}
			total, _ := scoreRun(items)
			scores[i] = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for _, sc := range scores {
		if sc > best {
			best = sc
		}
	}
	return &UserStats{UserID: userID, FinalizedRuns: len(finalized), BestScore: best}, nil
}
