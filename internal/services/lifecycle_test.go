package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/approva/simulado-backend/internal/catalog"
	"github.com/approva/simulado-backend/internal/clients/generator"
	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/apierr"
)

type lifecycleFixture struct {
	svc      LifecycleService
	users    *fakeUserClient
	qbank    *fakeQuestionBank
	gen      *fakeGenerator
	profiles *fakeProfileStore
	runs     *fakeRunRepo
	leases   *fakeLeaseManager
	exams    *fakeExamBank
}

func newLifecycleFixture(t *testing.T, balance int64) *lifecycleFixture {
	t.Helper()
	log := testLogger(t)
	loader, err := catalog.NewTemplateLoader()
	if err != nil {
		t.Fatalf("catalog loader: %v", err)
	}

	f := &lifecycleFixture{
		users: &fakeUserClient{balance: balance},
		qbank: newFakeQuestionBank(),
		gen: &fakeGenerator{questions: []generator.GeneratedQuestion{
			generatedQuestion("Isolate The Variable"),
			generatedQuestion("Distribute And Combine"),
		}},
		profiles: &fakeProfileStore{},
		runs:     newFakeRunRepo(),
		leases:   &fakeLeaseManager{},
		exams:    newFakeExamBank(),
	}
	assembly := NewAssemblyService(f.gen, f.qbank, f.exams, log)
	f.svc = NewLifecycleService(f.runs, f.users, f.qbank, f.profiles, assembly, f.exams, loader, f.leases, DefaultScoreParams(), log)
	return f
}

func TestStartAdaptive_DebitsAndOpensRun(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	ctx := authedCtx("user-1")

	res, err := f.svc.StartAdaptive(ctx)
	if err != nil {
		t.Fatalf("start adaptive: %v", err)
	}
	if res.Run.Status != domain.RunStatusOpen || res.Run.Mode != domain.RunModeAdaptive {
		t.Fatalf("unexpected run: %+v", res.Run)
	}
	if res.Run.CostWins != CostFixedRun {
		t.Fatalf("cost %d, want %d", res.Run.CostWins, CostFixedRun)
	}
	if f.users.balance != 5 {
		t.Fatalf("balance %d after debit, want 5", f.users.balance)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}
	if f.leases.releases != 1 {
		t.Fatalf("lease not released: %d", f.leases.releases)
	}
}

func TestStart_SecondRunRejectedWhileFirstOpen(t *testing.T) {
	f := newLifecycleFixture(t, 100)
	ctx := authedCtx("user-1")

	first, err := f.svc.StartAdaptive(ctx)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	_, err = f.svc.StartAdaptive(ctx)
	if apierr.CodeOf(err) != apierr.CodeRunAlreadyOpen {
		t.Fatalf("expected RUN_ALREADY_OPEN, got %v", err)
	}

	run, err := f.runs.GetByID(ctx, nil, first.Run.ID)
	if err != nil || run == nil || run.Status != domain.RunStatusOpen {
		t.Fatalf("first run disturbed: %+v, %v", run, err)
	}
	if f.users.balance != 95 {
		t.Fatalf("second start must not debit: balance %d", f.users.balance)
	}
}

func TestStart_InsufficientFundsHasNoSideEffects(t *testing.T) {
	f := newLifecycleFixture(t, 4)
	ctx := authedCtx("user-1")

	_, err := f.svc.StartAdaptive(ctx)
	if apierr.CodeOf(err) != apierr.CodeInsufficientFunds {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %v", err)
	}
	if f.users.balance != 4 || f.users.adjusts != 0 {
		t.Fatalf("balance touched: %d (%d adjusts)", f.users.balance, f.users.adjusts)
	}
	if runs, _ := f.runs.ListByUser(ctx, nil, "user-1"); len(runs) != 0 {
		t.Fatalf("run created despite insufficient funds: %d", len(runs))
	}
}

func TestStart_AssemblyFailureCompensatesDebit(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	f.gen.err = errors.New("generator down")
	ctx := authedCtx("user-1")

	_, err := f.svc.StartAdaptive(ctx)
	if apierr.CodeOf(err) != apierr.CodeUpstreamGeneration {
		t.Fatalf("expected UPSTREAM_GENERATION_FAILURE, got %v", err)
	}
	if f.users.balance != 10 {
		t.Fatalf("compensation did not restore balance: %d", f.users.balance)
	}
	if runs, _ := f.runs.ListByUser(ctx, nil, "user-1"); len(runs) != 0 {
		t.Fatalf("orphan run left behind: %d", len(runs))
	}
}

func TestStart_LeaseHeldMapsToRunAlreadyOpen(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	f.leases.held = true

	_, err := f.svc.StartAdaptive(authedCtx("user-1"))
	if apierr.CodeOf(err) != apierr.CodeRunAlreadyOpen {
		t.Fatalf("expected RUN_ALREADY_OPEN for held lease, got %v", err)
	}
	if f.users.adjusts != 0 {
		t.Fatal("wallet touched while lease held")
	}
}

func TestStartCustomPractice_Bounds(t *testing.T) {
	f := newLifecycleFixture(t, 100)
	ctx := authedCtx("user-1")
	selections := []domain.CustomPracticeSelection{
		{Topic: "Algebra", Subskill: "Linear Equations In One Variable", Structure: "Isolate The Variable"},
	}

	_, err := f.svc.StartCustomPractice(ctx, selections, 0)
	if apierr.CodeOf(err) != apierr.CodeInvalidPlanSize {
		t.Fatalf("expected INVALID_PLAN_SIZE for total 0, got %v", err)
	}
	_, err = f.svc.StartCustomPractice(ctx, selections, MaxQuestionsPerSelection+1)
	if apierr.CodeOf(err) != apierr.CodeInvalidPlanSize {
		t.Fatalf("expected INVALID_PLAN_SIZE above cap, got %v", err)
	}
	_, err = f.svc.StartCustomPractice(ctx, nil, 3)
	if apierr.CodeOf(err) != apierr.CodeInvalidPayload {
		t.Fatalf("expected INVALID_PAYLOAD for no selections, got %v", err)
	}

	res, err := f.svc.StartCustomPractice(ctx, selections, 4)
	if err != nil {
		t.Fatalf("valid custom start: %v", err)
	}
	if res.Run.CostWins != CostPerCustomQuestion*4 {
		t.Fatalf("cost %d, want %d", res.Run.CostWins, CostPerCustomQuestion*4)
	}
	if f.users.balance != 100-CostPerCustomQuestion*4 {
		t.Fatalf("balance %d after custom debit", f.users.balance)
	}
}

func TestFinalize_EndToEnd(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	ctx := authedCtx("user-1")

	res, err := f.svc.StartAdaptive(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if f.users.balance != 5 {
		t.Fatalf("balance %d after start, want 5", f.users.balance)
	}

	answered := make([]domain.AnsweredItemPatch, 0, len(res.Items))
	for _, item := range res.Items {
		marked := item.CorrectOption
		answered = append(answered, domain.AnsweredItemPatch{
			ID:           item.ID,
			RunID:        item.RunID,
			UserID:       item.UserID,
			MarkedOption: &marked,
		})
	}

	run, err := f.svc.Finalize(ctx, res.Run.ID, answered)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if run.Status != domain.RunStatusFinalized {
		t.Fatalf("run status %q, want FINALIZED", run.Status)
	}
	if f.profiles.upserts != 1 || f.profiles.last == nil {
		t.Fatalf("profile not pushed: %d upserts", f.profiles.upserts)
	}

	// The two items map to two distinct structures; each counts one attempt.
	sub := f.profiles.last.Topics["algebra"].Subskills["linear_equations_in_one_variable"]
	for _, structName := range []string{"isolate_the_variable", "distribute_and_combine"} {
		st := sub.Structures[structName]
		if st.Attempts != 1 || st.Correct != 1 {
			t.Fatalf("structure %q: attempts=%d correct=%d, want 1/1", structName, st.Attempts, st.Correct)
		}
	}
}

func TestFinalize_BlankItemIDPerformsZeroWrites(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	ctx := authedCtx("user-1")

	res, err := f.svc.StartAdaptive(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	writesBefore := f.qbank.writeCalls

	marked := "A"
	_, err = f.svc.Finalize(ctx, res.Run.ID, []domain.AnsweredItemPatch{{ID: "  ", MarkedOption: &marked}})
	if apierr.CodeOf(err) != apierr.CodeInvalidPayload {
		t.Fatalf("expected INVALID_PAYLOAD, got %v", err)
	}
	if f.qbank.writeCalls != writesBefore {
		t.Fatal("collaborator writes performed for invalid payload")
	}
	if f.profiles.upserts != 0 {
		t.Fatal("profile pushed for invalid payload")
	}

	run, _ := f.runs.GetByID(ctx, nil, res.Run.ID)
	if run.Status != domain.RunStatusOpen {
		t.Fatalf("run status %q, want OPEN", run.Status)
	}
}

func TestFinalize_Validations(t *testing.T) {
	f := newLifecycleFixture(t, 100)
	ctx := authedCtx("user-1")

	res, err := f.svc.StartAdaptive(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	marked := "A"
	answered := []domain.AnsweredItemPatch{{ID: res.Items[0].ID, MarkedOption: &marked}}

	if _, err := f.svc.Finalize(ctx, res.Run.ID, nil); apierr.CodeOf(err) != apierr.CodeEmptyAnswerSet {
		t.Fatalf("expected EMPTY_ANSWER_SET, got %v", err)
	}
	if _, err := f.svc.Finalize(ctx, uuid.New(), answered); apierr.CodeOf(err) != apierr.CodeRunNotFound {
		t.Fatalf("expected RUN_NOT_FOUND, got %v", err)
	}
	if _, err := f.svc.Finalize(authedCtx("intruder"), res.Run.ID, answered); apierr.CodeOf(err) != apierr.CodeOwnerMismatch {
		t.Fatalf("expected OWNER_MISMATCH, got %v", err)
	}

	if _, err := f.svc.Finalize(ctx, res.Run.ID, answered); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := f.svc.Finalize(ctx, res.Run.ID, answered); apierr.CodeOf(err) != apierr.CodeAlreadyFinalized {
		t.Fatalf("expected ALREADY_FINALIZED, got %v", err)
	}
}

func TestFinalize_BulkFailureFallsBackPerItem(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	ctx := authedCtx("user-1")

	res, err := f.svc.StartAdaptive(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	f.qbank.bulkErr = errors.New("bulk endpoint unavailable")

	answered := make([]domain.AnsweredItemPatch, 0, len(res.Items))
	for _, item := range res.Items {
		marked := item.CorrectOption
		answered = append(answered, domain.AnsweredItemPatch{ID: item.ID, MarkedOption: &marked})
	}
	if _, err := f.svc.Finalize(ctx, res.Run.ID, answered); err != nil {
		t.Fatalf("finalize with fallback: %v", err)
	}

	items, _ := f.qbank.ListByRun(ctx, "token", res.Run.ID.String())
	for _, item := range items {
		if item.MarkedOption == nil {
			t.Fatalf("item %s not updated via fallback", item.ID)
		}
	}
}

func TestFinalize_OriginalModeRecordsExamCompletion(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	seedExam(t, f.exams, "exam-001", nil)
	ctx := authedCtx("user-1")

	res, err := f.svc.StartOriginal(ctx)
	if err != nil {
		t.Fatalf("start original: %v", err)
	}
	if res.ExamMeta == nil || res.ExamMeta.ExamID != "exam-001" {
		t.Fatalf("unexpected exam meta: %+v", res.ExamMeta)
	}

	answered := make([]domain.AnsweredItemPatch, 0, len(res.Items))
	for _, item := range res.Items {
		marked := item.CorrectOption
		answered = append(answered, domain.AnsweredItemPatch{ID: item.ID, MarkedOption: &marked})
	}
	if _, err := f.svc.Finalize(ctx, res.Run.ID, answered); err != nil {
		t.Fatalf("finalize original: %v", err)
	}

	completed := f.exams.completed["user-1"]
	if len(completed) != 1 || completed[0].ExamID != "exam-001" {
		t.Fatalf("completion not recorded: %+v", completed)
	}
	if completed[0].AttemptID != res.Run.ID.String() {
		t.Fatalf("attempt id %q, want run id", completed[0].AttemptID)
	}
	if f.exams.current["user-1"] != "" {
		t.Fatalf("current exam not cleared: %q", f.exams.current["user-1"])
	}
}

func TestLoadModule2_RequiresOpenOwnedRun(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	seedExam(t, f.exams, "exam-001", nil)
	ctx := authedCtx("user-1")

	res, err := f.svc.StartOriginal(ctx)
	if err != nil {
		t.Fatalf("start original: %v", err)
	}

	if _, err := f.svc.LoadModule2(authedCtx("intruder"), res.Run.ID, 20); apierr.CodeOf(err) != apierr.CodeOwnerMismatch {
		t.Fatalf("expected OWNER_MISMATCH, got %v", err)
	}

	m2, err := f.svc.LoadModule2(ctx, res.Run.ID, 20)
	if err != nil {
		t.Fatalf("load module 2: %v", err)
	}
	if m2.Tier != domain.DifficultyHard {
		t.Fatalf("20 correct with default threshold should route hard, got %q", m2.Tier)
	}
	for _, item := range m2.Items {
		if item.Module != 2 || item.RunID != res.Run.ID.String() {
			t.Fatalf("module 2 item mis-bound: %+v", item)
		}
	}
}

func TestStats_MergesBestScoreAcrossRuns(t *testing.T) {
	f := newLifecycleFixture(t, 100)
	ctx := authedCtx("user-1")

	for i := 0; i < 2; i++ {
		res, err := f.svc.StartAdaptive(ctx)
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		answered := make([]domain.AnsweredItemPatch, 0, len(res.Items))
		for j, item := range res.Items {
			marked := item.CorrectOption
			if i == 0 && j > 0 {
				marked = "Z" // first run scores only 1
			}
			answered = append(answered, domain.AnsweredItemPatch{ID: item.ID, MarkedOption: &marked})
		}
		if _, err := f.svc.Finalize(ctx, res.Run.ID, answered); err != nil {
			t.Fatalf("finalize %d: %v", i, err)
		}
	}

	stats, err := f.svc.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.FinalizedRuns != 2 {
		t.Fatalf("finalized runs %d, want 2", stats.FinalizedRuns)
	}
	if stats.BestScore != 2 {
		t.Fatalf("best score %d, want 2", stats.BestScore)
	}
}

func TestDeleteRun_RemovesRunAndItems(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	ctx := authedCtx("user-1")

	res, err := f.svc.StartAdaptive(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := f.svc.DeleteRun(authedCtx("intruder"), res.Run.ID); apierr.CodeOf(err) != apierr.CodeOwnerMismatch {
		t.Fatalf("expected OWNER_MISMATCH, got %v", err)
	}
	if err := f.svc.DeleteRun(ctx, res.Run.ID); err != nil {
		t.Fatalf("delete run: %v", err)
	}

	if items, _ := f.qbank.ListByRun(ctx, "token", res.Run.ID.String()); len(items) != 0 {
		t.Fatalf("items survived deletion: %d", len(items))
	}
	if run, _ := f.runs.GetByID(ctx, nil, res.Run.ID); run != nil {
		t.Fatalf("run survived deletion: %+v", run)
	}
}
