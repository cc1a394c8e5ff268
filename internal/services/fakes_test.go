package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/approva/simulado-backend/internal/clients/generator"
	"github.com/approva/simulado-backend/internal/clients/usersvc"
	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/apierr"
	"github.com/approva/simulado-backend/internal/platform/leases"
	"github.com/approva/simulado-backend/internal/platform/logger"
	"github.com/approva/simulado-backend/internal/requestdata"
)

func testLogger(tb interface{ Fatalf(string, ...any) }) *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	return log
}

func authedCtx(userID string) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID: userID,
		Bearer: "test-token",
	})
}

// fakeUserClient is an in-memory wallet.
type fakeUserClient struct {
	mu      sync.Mutex
	balance int64
	meErr   error
	winsErr error
	adjusts int
}

func (f *fakeUserClient) Me(ctx context.Context, bearer string) (*usersvc.User, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.balance
	return &usersvc.User{ID: "user-1", Wins: &b}, nil
}

func (f *fakeUserClient) GetByID(ctx context.Context, bearer, userID string) (*usersvc.User, error) {
	return f.Me(ctx, bearer)
}

func (f *fakeUserClient) AdjustWins(ctx context.Context, bearer, userID string, delta int64) (*usersvc.User, error) {
	if f.winsErr != nil {
		return nil, f.winsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance += delta
	f.adjusts++
	b := f.balance
	return &usersvc.User{ID: userID, Wins: &b}, nil
}

// fakeQuestionBank stores items in memory and counts write calls.
type fakeQuestionBank struct {
	mu          sync.Mutex
	items       map[string]*domain.QuestionItem
	createErr   error
	bulkErr     error
	updateErr   error
	createCalls int
	writeCalls  int
}

func newFakeQuestionBank() *fakeQuestionBank {
	return &fakeQuestionBank{items: map[string]*domain.QuestionItem{}}
}

func (f *fakeQuestionBank) CreateItems(ctx context.Context, bearer string, items []domain.QuestionItem) ([]domain.QuestionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	out := make([]domain.QuestionItem, len(items))
	for i, item := range items {
		item.ID = uuid.NewString()
		copied := item
		f.items[item.ID] = &copied
		out[i] = item
	}
	return out, nil
}

func (f *fakeQuestionBank) ListByRun(ctx context.Context, bearer, runID string) ([]domain.QuestionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.QuestionItem
	for _, item := range f.items {
		if item.RunID == runID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuestionBank) ListByUser(ctx context.Context, bearer, userID string) ([]domain.QuestionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.QuestionItem
	for _, item := range f.items {
		if item.UserID == userID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuestionBank) UpdateItem(ctx context.Context, bearer, itemID string, patch domain.AnsweredItemPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	item, ok := f.items[itemID]
	if !ok {
		return errors.New("item not found")
	}
	item.MarkedOption = patch.MarkedOption
	item.HintUsed = patch.HintUsed
	item.SolutionViewed = patch.SolutionViewed
	return nil
}

func (f *fakeQuestionBank) BulkUpdate(ctx context.Context, bearer string, patches []domain.AnsweredItemPatch) error {
	f.mu.Lock()
	if f.bulkErr != nil {
		f.mu.Unlock()
		return f.bulkErr
	}
	f.writeCalls++
	f.mu.Unlock()
	for _, p := range patches {
		f.mu.Lock()
		item, ok := f.items[p.ID]
		if !ok {
			f.mu.Unlock()
			return errors.New("item not found")
		}
		item.MarkedOption = p.MarkedOption
		item.HintUsed = p.HintUsed
		item.SolutionViewed = p.SolutionViewed
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeQuestionBank) DeleteItem(ctx context.Context, bearer, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCalls++
	delete(f.items, itemID)
	return nil
}

// fakeGenerator returns canned questions.
type fakeGenerator struct {
	questions []generator.GeneratedQuestion
	err       error
	lastPlan  []domain.PlanItem
}

func (f *fakeGenerator) result() (*generator.GenerateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &generator.GenerateResult{Questions: f.questions}, nil
}

func (f *fakeGenerator) GenerateAdaptiveModule(ctx context.Context, userID string) (*generator.GenerateResult, error) {
	return f.result()
}

func (f *fakeGenerator) GenerateFixedExam(ctx context.Context, userID string) (*generator.GenerateResult, error) {
	return f.result()
}

func (f *fakeGenerator) GenerateCustomExam(ctx context.Context, planItems []domain.PlanItem) (*generator.GenerateResult, error) {
	f.lastPlan = planItems
	return f.result()
}

// fakeProfileStore records the last pushed profile.
type fakeProfileStore struct {
	mu      sync.Mutex
	last    *domain.MasteryProfile
	upserts int
	err     error
}

func (f *fakeProfileStore) UpsertProfileForUser(ctx context.Context, bearer, userID string, profile *domain.MasteryProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.last = profile
	f.upserts++
	return nil
}

// fakeRunRepo is an in-memory PracticeRunRepo.
type fakeRunRepo struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*domain.PracticeRun
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: map[uuid.UUID]*domain.PracticeRun{}}
}

func (f *fakeRunRepo) Create(ctx context.Context, tx *gorm.DB, run *domain.PracticeRun) (*domain.PracticeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	copied := *run
	f.runs[run.ID] = &copied
	return run, nil
}

func (f *fakeRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.PracticeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

func (f *fakeRunRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*domain.PracticeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PracticeRun
	for _, run := range f.runs {
		copied := *run
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRunRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*domain.PracticeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PracticeRun
	for _, run := range f.runs {
		if run.UserID == userID {
			copied := *run
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRunRepo) ListByUserAndStatus(ctx context.Context, tx *gorm.DB, userID, status string) ([]*domain.PracticeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PracticeRun
	for _, run := range f.runs {
		if run.UserID == userID && run.Status == status {
			copied := *run
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRunRepo) LatestByUser(ctx context.Context, tx *gorm.DB, userID string) (*domain.PracticeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.PracticeRun
	for _, run := range f.runs {
		if run.UserID != userID {
			continue
		}
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := fields["status"].(string); ok {
		run.Status = status
	}
	return nil
}

func (f *fakeRunRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.runs, id)
	return nil
}

// fakeLeaseManager grants or rejects every acquisition.
type fakeLeaseManager struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLeaseManager) Acquire(ctx context.Context, userID string) (*leases.Lease, error) {
	f.acquires++
	if f.held {
		return nil, leases.ErrLeaseHeld
	}
	return &leases.Lease{}, nil
}

func (f *fakeLeaseManager) Release(ctx context.Context, lease *leases.Lease) {
	f.releases++
}

// fakeExamBank is an in-memory OriginalExamService.
type fakeExamBank struct {
	exams          map[string]*domain.OriginalExam
	completed      map[string][]domain.CompletedExam
	current        map[string]string
	markStartedErr error
}

func newFakeExamBank() *fakeExamBank {
	return &fakeExamBank{
		exams:     map[string]*domain.OriginalExam{},
		completed: map[string][]domain.CompletedExam{},
		current:   map[string]string{},
	}
}

func (f *fakeExamBank) NextExamForUser(ctx context.Context, userID string) (*domain.OriginalExam, error) {
	ids, err := f.AvailableExamIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apierr.AllExamsCompleted(userID)
	}
	return f.exams[ids[0]], nil
}

func (f *fakeExamBank) GetExam(ctx context.Context, examID string) (*domain.OriginalExam, error) {
	exam, ok := f.exams[examID]
	if !ok {
		return nil, apierr.Newf(404, "EXAM_NOT_FOUND", "exam %s not found", examID)
	}
	return exam, nil
}

func (f *fakeExamBank) AvailableExamIDs(ctx context.Context, userID string) ([]string, error) {
	done := map[string]struct{}{}
	for _, e := range f.completed[userID] {
		done[e.ExamID] = struct{}{}
	}
	var out []string
	for id, exam := range f.exams {
		if !exam.IsActive {
			continue
		}
		if _, ok := done[id]; ok {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeExamBank) CompletedExams(ctx context.Context, userID string) ([]domain.CompletedExam, error) {
	return f.completed[userID], nil
}

func (f *fakeExamBank) MarkStarted(ctx context.Context, userID, examID string) error {
	if f.markStartedErr != nil {
		return f.markStartedErr
	}
	f.current[userID] = examID
	return nil
}

func (f *fakeExamBank) MarkCompleted(ctx context.Context, userID string, entry domain.CompletedExam) error {
	for _, e := range f.completed[userID] {
		if e.ExamID == entry.ExamID {
			return nil
		}
	}
	f.completed[userID] = append(f.completed[userID], entry)
	if f.current[userID] == entry.ExamID {
		f.current[userID] = ""
	}
	return nil
}

func (f *fakeExamBank) CurrentExamID(ctx context.Context, userID string) (string, error) {
	return f.current[userID], nil
}

func (f *fakeExamBank) UpsertExam(ctx context.Context, exam *domain.OriginalExam) (*domain.OriginalExam, error) {
	f.exams[exam.ExamID] = exam
	return exam, nil
}
