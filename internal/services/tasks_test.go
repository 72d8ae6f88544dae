package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/models"
)

func createInput(amount int64) lifecycle.CreateInput {
	return lifecycle.CreateInput{Title: "Library survey", Category: "survey", PaymentAmount: amount}
}

// ---------------------------------------------------------------------------
// Full marketplace scenario: deposit, post, accept, prove, approve, withdraw.
// ---------------------------------------------------------------------------

func TestScenario_PostToPayout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.provider(0)
	s := h.student()
	a := h.admin()

	if _, err := h.wallet.Deposit(ctx, p, 500); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	task, err := h.tasks.Create(ctx, p, createInput(200))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Status != models.TaskStatusOpen {
		t.Fatalf("status after create: got %s, want open", task.Status)
	}
	if got := h.users.deposit(p.UserID); got != 300 {
		t.Errorf("deposit after create: got %d, want 300", got)
	}

	if _, err := h.tasks.Accept(ctx, s, task.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := h.tasks.SubmitProof(ctx, s, task.ID, []string{"blob:receipt"}); err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}
	done, err := h.tasks.Review(ctx, a, task.ID, true)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if done.Status != models.TaskStatusCompleted {
		t.Fatalf("status after approval: got %s, want completed", done.Status)
	}
	if got := h.users.wallet(s.UserID); got != 180 {
		t.Errorf("student wallet: got %d, want 180", got)
	}
	if got := h.users.wallet(models.PlatformAccountID); got != 20 {
		t.Errorf("platform wallet: got %d, want 20", got)
	}

	w, err := h.withdrawals.Request(ctx, s, nil, 180)
	if err != nil {
		t.Fatalf("Request withdrawal: %v", err)
	}
	if _, err := h.withdrawals.Approve(ctx, a, w.ID); err != nil {
		t.Fatalf("Approve withdrawal: %v", err)
	}
	if got := h.users.wallet(s.UserID); got != 0 {
		t.Errorf("student wallet after withdrawal: got %d, want 0", got)
	}

	wantActions := []models.ActivityAction{
		models.ActivityWalletCredited,
		models.ActivityTaskCreated,
		models.ActivityTaskAccepted,
		models.ActivityProofUploaded,
		models.ActivityTaskApproved,
		models.ActivityWithdrawalRequested,
		models.ActivityWithdrawalApproved,
	}
	if diff := cmp.Diff(wantActions, h.activity.actions()); diff != "" {
		t.Errorf("activity log mismatch (-want +got):\n%s", diff)
	}
}

func TestCompletedTaskHasExactlyOneSettlement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.provider(1000)
	s := h.student()
	a := h.admin()

	task, err := h.tasks.Create(ctx, p, createInput(333))
	if err != nil {
		t.Fatal(err)
	}
	ok(t)(h.tasks.Accept(ctx, s, task.ID))
	ok(t)(h.tasks.SubmitProof(ctx, s, task.ID, []string{"blob:1"}))
	ok(t)(h.tasks.Review(ctx, a, task.ID, true))

	if _, err := h.tasks.Review(ctx, a, task.ID, true); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second approval: got %v, want ErrConflict", err)
	}

	var toStudent, toPlatform int
	var sum int64
	for _, r := range h.transactions.byType(models.TxPayout) {
		if r.RelatedTaskID == nil || *r.RelatedTaskID != task.ID {
			continue
		}
		switch r.User {
		case s.UserID:
			toStudent++
		case models.PlatformAccountID:
			toPlatform++
		}
		sum += r.Amount
	}
	if toStudent != 1 || toPlatform != 1 {
		t.Errorf("payouts: %d to student, %d to platform; want 1 each", toStudent, toPlatform)
	}
	if sum != 333 {
		t.Errorf("payouts sum: got %d, want 333", sum)
	}
}

// ok fails the test on a non-nil error from a task operation.
func ok(t *testing.T) func(*models.Task, error) {
	t.Helper()
	return func(_ *models.Task, err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreate_InsufficientDepositLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	p := h.provider(100)

	if _, err := h.tasks.Create(context.Background(), p, createInput(200)); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	all, _ := h.tasksRepo.List(context.Background())
	if len(all) != 0 {
		t.Errorf("tasks stored: got %d, want 0", len(all))
	}
	if got := len(h.transactions.all()); got != 0 {
		t.Errorf("transactions stored: got %d, want 0", got)
	}
	if got := h.users.deposit(p.UserID); got != 100 {
		t.Errorf("deposit: got %d, want 100", got)
	}
}

func TestCreate_StudentForbidden(t *testing.T) {
	h := newHarness(t)
	s := h.addUser(models.AppRoleStudent, models.RoleUser, 500, 0)
	if _, err := h.tasks.Create(context.Background(), s, createInput(10)); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestCreate_SchedulesExpiry(t *testing.T) {
	h := newHarness(t)
	p := h.provider(100)
	deadline := testEpoch.Add(24 * time.Hour).UnixNano()
	in := createInput(50)
	in.AcceptanceDeadline = &deadline

	task, err := h.tasks.Create(context.Background(), p, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(h.expiry.calls) != 1 {
		t.Fatalf("expiry jobs: got %d, want 1", len(h.expiry.calls))
	}
	if c := h.expiry.calls[0]; c.taskID != task.ID || c.at.UnixNano() != deadline {
		t.Errorf("expiry job: got %+v", c)
	}
}

func TestCreate_ModerationHoldsTask(t *testing.T) {
	h := newHarness(t)
	h.tasks.Policy.RequireModeration = true
	p := h.provider(100)
	ctx := context.Background()

	task, err := h.tasks.Create(ctx, p, createInput(50))
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != models.TaskStatusPendingApproval {
		t.Fatalf("status: got %s, want pendingApproval", task.Status)
	}
	open, _ := h.tasks.ListOpen(ctx, h.student())
	if len(open) != 0 {
		t.Errorf("pending task listed as open")
	}
	if _, err := h.tasks.Accept(ctx, h.student(), task.ID); !errors.Is(err, models.ErrConflict) {
		t.Errorf("accept before moderation: got %v, want ErrConflict", err)
	}
	ok(t)(h.tasks.Approve(ctx, h.admin(), task.ID))
	open, _ = h.tasks.ListOpen(ctx, h.student())
	if len(open) != 1 {
		t.Errorf("open tasks after moderation: got %d, want 1", len(open))
	}
}

// ---------------------------------------------------------------------------
// Accept
// ---------------------------------------------------------------------------

func TestAccept_ConcurrentExactlyOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task, err := h.tasks.Create(ctx, h.provider(100), createInput(100))
	if err != nil {
		t.Fatal(err)
	}

	const n = 8
	students := make([]models.Caller, n)
	for i := range students {
		students[i] = h.student()
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.tasks.Accept(ctx, students[i], task.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	var winner uuid.UUID
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
			winner = students[i].UserID
		case !errors.Is(err, models.ErrConflict):
			t.Errorf("loser %d: got %v, want ErrConflict", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners: got %d, want 1", winners)
	}
	got, _ := h.tasks.Get(ctx, h.admin(), task.ID)
	if got.AcceptedBy == nil || *got.AcceptedBy != winner {
		t.Errorf("accepted_by: got %v, want %s", got.AcceptedBy, winner)
	}
}

// ---------------------------------------------------------------------------
// Review outcomes
// ---------------------------------------------------------------------------

func submittedTask(t *testing.T, h *harness, amount int64) (*models.Task, models.Caller, models.Caller) {
	t.Helper()
	ctx := context.Background()
	p := h.provider(amount)
	s := h.student()
	task, err := h.tasks.Create(ctx, p, createInput(amount))
	if err != nil {
		t.Fatal(err)
	}
	ok(t)(h.tasks.Accept(ctx, s, task.ID))
	ok(t)(h.tasks.SubmitProof(ctx, s, task.ID, []string{"blob:1"}))
	return task, p, s
}

func TestReview_RejectRequestsRevision(t *testing.T) {
	h := newHarness(t)
	task, _, s := submittedTask(t, h, 200)

	got, err := h.tasks.Review(context.Background(), h.admin(), task.ID, false)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got.Status != models.TaskStatusInProgress || got.RevisionCount != 1 {
		t.Errorf("got status %s revisions %d, want inProgress/1", got.Status, got.RevisionCount)
	}
	if got.AcceptedBy == nil || *got.AcceptedBy != s.UserID {
		t.Error("assignee lost on revision")
	}
	if n := len(h.transactions.byType(models.TxPayout)); n != 0 {
		t.Errorf("payouts after rejection: got %d, want 0", n)
	}
}

func TestRequestRevision_ByProvider(t *testing.T) {
	h := newHarness(t)
	task, p, _ := submittedTask(t, h, 50)

	got, err := h.tasks.RequestRevision(context.Background(), p, task.ID)
	if err != nil {
		t.Fatalf("RequestRevision: %v", err)
	}
	if got.Status != models.TaskStatusInProgress || got.RevisionCount != 1 {
		t.Errorf("got status %s revisions %d", got.Status, got.RevisionCount)
	}
}

func TestReview_RevisionLimitRefundsProvider(t *testing.T) {
	h := newHarness(t)
	h.tasks.Policy.MaxRevisions = 1
	ctx := context.Background()
	task, p, s := submittedTask(t, h, 200)
	a := h.admin()

	ok(t)(h.tasks.Review(ctx, a, task.ID, false))
	ok(t)(h.tasks.SubmitProof(ctx, s, task.ID, []string{"blob:2"}))
	got, err := h.tasks.Review(ctx, a, task.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.TaskStatusRejected {
		t.Fatalf("status: got %s, want rejected", got.Status)
	}
	if dep := h.users.deposit(p.UserID); dep != 200 {
		t.Errorf("provider deposit after refund: got %d, want 200", dep)
	}
}

func TestReview_SettlementFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	task, _, s := submittedTask(t, h, 200)
	h.store.failTxType = models.TxPayout

	if _, err := h.tasks.Review(context.Background(), h.admin(), task.ID, true); !errors.Is(err, errInjected) {
		t.Fatalf("got %v, want injected failure", err)
	}
	got, _ := h.tasks.Get(context.Background(), h.admin(), task.ID)
	if got.Status != models.TaskStatusProofSubmitted {
		t.Errorf("status after failed settlement: got %s, want proofSubmitted", got.Status)
	}
	if w := h.users.wallet(s.UserID); w != 0 {
		t.Errorf("student wallet after rollback: got %d, want 0", w)
	}
	if w := h.users.wallet(models.PlatformAccountID); w != 0 {
		t.Errorf("platform wallet after rollback: got %d, want 0", w)
	}
}

// ---------------------------------------------------------------------------
// Decline and expiry
// ---------------------------------------------------------------------------

func TestDecline_RefundsEscrow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.provider(300)
	task, err := h.tasks.Create(ctx, p, createInput(120))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.tasks.Decline(ctx, p, task.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("provider decline: got %v, want ErrForbidden", err)
	}
	got, err := h.tasks.Decline(ctx, h.admin(), task.ID)
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if got.Status != models.TaskStatusDeclined {
		t.Errorf("status: got %s, want declined", got.Status)
	}
	if dep := h.users.deposit(p.UserID); dep != 300 {
		t.Errorf("deposit after decline: got %d, want 300", dep)
	}
}

func TestExpire(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.provider(100)
	deadline := testEpoch.Add(time.Second).UnixNano()
	in := createInput(100)
	in.AcceptanceDeadline = &deadline
	task, err := h.tasks.Create(ctx, p, in)
	if err != nil {
		t.Fatal(err)
	}

	h.tasks.Now = func() time.Time { return testEpoch.Add(time.Second - time.Millisecond) }
	if _, err := h.tasks.Expire(ctx, task.ID); !errors.Is(err, lifecycle.ErrDeadlineNotReached) {
		t.Fatalf("early expiry: got %v, want ErrDeadlineNotReached", err)
	}
	if got, _ := h.tasks.Get(ctx, p, task.ID); got.Status != models.TaskStatusOpen {
		t.Fatalf("early expiry changed status to %s", got.Status)
	}

	h.tasks.Now = func() time.Time { return testEpoch.Add(time.Minute) }
	h.ledger.Now = h.tasks.Now
	got, err := h.tasks.Expire(ctx, task.ID)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if got.Status != models.TaskStatusDeclined {
		t.Errorf("status: got %s, want declined", got.Status)
	}
	if dep := h.users.deposit(p.UserID); dep != 100 {
		t.Errorf("deposit after expiry: got %d, want 100", dep)
	}
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestProofFilesVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task, p, s := submittedTask(t, h, 10)

	for _, c := range []models.Caller{p, s, h.admin()} {
		files, err := h.tasks.ProofFiles(ctx, c, task.ID)
		if err != nil {
			t.Fatalf("ProofFiles: %v", err)
		}
		if diff := cmp.Diff([]string{"blob:1"}, files); diff != "" {
			t.Errorf("proof files mismatch (-want +got):\n%s", diff)
		}
	}
	if _, err := h.tasks.ProofFiles(ctx, h.student(), task.ID); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("stranger: got %v, want ErrForbidden", err)
	}
}

func TestTaskReads_HideProofFromStrangers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task, p, s := submittedTask(t, h, 10)
	stranger := h.student()

	got, err := h.tasks.Get(ctx, stranger, task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Proof.ProofFiles) != 0 {
		t.Errorf("stranger Get: proof files %v", got.Proof.ProofFiles)
	}
	for _, list := range [][]*models.Task{
		must(h.tasks.ListByUser(ctx, stranger, p.UserID)),
		must(h.tasks.ListByUser(ctx, stranger, s.UserID)),
	} {
		for _, lt := range list {
			if len(lt.Proof.ProofFiles) != 0 {
				t.Errorf("stranger ListByUser: proof files %v", lt.Proof.ProofFiles)
			}
		}
	}

	for _, c := range []models.Caller{p, s, h.admin()} {
		got, err := h.tasks.Get(ctx, c, task.ID)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"blob:1"}, got.Proof.ProofFiles); diff != "" {
			t.Errorf("party Get proof mismatch (-want +got):\n%s", diff)
		}
	}
	// Redacting one response must not strip the stored proof.
	if files, _ := h.tasks.ProofFiles(ctx, p, task.ID); len(files) != 1 {
		t.Errorf("stored proof after stranger read: %v", files)
	}
}

func must(tasks []*models.Task, err error) []*models.Task {
	if err != nil {
		panic(err)
	}
	return tasks
}

func TestListAll_AdminOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.tasks.ListAll(ctx, h.student()); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("student: got %v, want ErrForbidden", err)
	}
	submittedTask(t, h, 10)
	all, err := h.tasks.ListAll(ctx, h.admin())
	if err != nil || len(all) != 1 {
		t.Errorf("admin: got %d tasks err %v", len(all), err)
	}
	mine, _ := h.tasks.ListByUser(ctx, h.admin(), all[0].Provider)
	if len(mine) != 1 {
		t.Errorf("ListByUser: got %d, want 1", len(mine))
	}
}
