package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campusearn/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory store backing every repository interface the services use.
// Begin takes a store-wide lock held until Commit or Rollback, which stands
// in for Postgres row locks; Rollback restores the snapshot taken at Begin.
// ---------------------------------------------------------------------------

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type memState struct {
	users        map[uuid.UUID]models.User
	tasks        map[uuid.UUID]models.Task
	withdrawals  map[uuid.UUID]models.WithdrawalRequest
	transactions []models.TransactionRecord
	activity     []models.ActivityLogEntry
}

func (s memState) clone() memState {
	c := memState{
		users:        make(map[uuid.UUID]models.User, len(s.users)),
		tasks:        make(map[uuid.UUID]models.Task, len(s.tasks)),
		withdrawals:  make(map[uuid.UUID]models.WithdrawalRequest, len(s.withdrawals)),
		transactions: append([]models.TransactionRecord(nil), s.transactions...),
		activity:     append([]models.ActivityLogEntry(nil), s.activity...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	return c
}

type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	memState

	// failTxType makes CreateTx on the transaction log fail for that type.
	failTxType models.TransactionType
}

func newMemStore() *memStore {
	s := &memStore{memState: memState{
		users:       make(map[uuid.UUID]models.User),
		tasks:       make(map[uuid.UUID]models.Task),
		withdrawals: make(map[uuid.UUID]models.WithdrawalRequest),
	}}
	s.users[models.PlatformAccountID] = models.User{ID: models.PlatformAccountID, Role: models.RoleAdmin, IsSystemAccount: true}
	return s
}

type memTx struct {
	noopTx
	s    *memStore
	snap memState
	done bool
}

func (s *memStore) Begin(context.Context) (pgx.Tx, error) {
	s.txMu.Lock()
	s.mu.Lock()
	snap := s.memState.clone()
	s.mu.Unlock()
	return &memTx{s: s, snap: snap}, nil
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.s.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Lock()
	t.s.memState = t.snap
	t.s.mu.Unlock()
	t.s.txMu.Unlock()
	return nil
}

// --- users ---

type memUsers struct{ *memStore }

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return &u, nil
}

func (m memUsers) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.User, error) {
	return m.GetByID(ctx, id)
}

func (m memUsers) adjust(id uuid.UUID, deposit, wallet int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if u.DepositBalance+deposit < 0 || u.WalletBalance+wallet < 0 {
		return 0, models.ErrInsufficientFunds
	}
	u.DepositBalance += deposit
	u.WalletBalance += wallet
	m.users[id] = u
	if deposit != 0 {
		return u.DepositBalance, nil
	}
	return u.WalletBalance, nil
}

func (m memUsers) AddDeposit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	return m.adjust(id, amount, 0)
}
func (m memUsers) DeductDeposit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	return m.adjust(id, -amount, 0)
}
func (m memUsers) AddWallet(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	return m.adjust(id, 0, amount)
}
func (m memUsers) DeductWallet(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	return m.adjust(id, 0, -amount)
}

func (m memUsers) put(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
}

func (m memUsers) UpdateProfileTx(_ context.Context, _ pgx.Tx, u *models.User) error {
	m.put(u)
	return nil
}

func (m memUsers) UpdateVerificationTx(_ context.Context, _ pgx.Tx, u *models.User) error {
	m.put(u)
	return nil
}

func (m memUsers) SetRoleTx(_ context.Context, _ pgx.Tx, id uuid.UUID, role models.UserRole, now int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.IsSystemAccount {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	u.Role = role
	u.UpdatedAt = now
	m.users[id] = u
	return nil
}

func (m memUsers) ListPendingVerifications(context.Context) ([]*models.VerificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.VerificationRequest
	for _, u := range m.users {
		if !u.PendingVerification {
			continue
		}
		v := &models.VerificationRequest{User: u.ID, Name: u.Name, College: u.PendingCollege, Year: u.PendingYear}
		if u.VerificationDocument != nil {
			v.VerificationDocument = *u.VerificationDocument
		}
		out = append(out, v)
	}
	return out, nil
}

func (m memUsers) wallet(id uuid.UUID) int64 {
	u, _ := m.GetByID(context.Background(), id)
	return u.WalletBalance
}

func (m memUsers) deposit(id uuid.UUID) int64 {
	u, _ := m.GetByID(context.Background(), id)
	return u.DepositBalance
}

// --- tasks ---

type memTasks struct{ *memStore }

func (m memTasks) CreateTx(_ context.Context, _ pgx.Tx, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; ok {
		return fmt.Errorf("task already exists: %w", models.ErrConflict)
	}
	m.tasks[t.ID] = *t
	return nil
}

func (m memTasks) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	return &t, nil
}

func (m memTasks) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return m.GetByID(ctx, id)
}

func (m memTasks) UpdateTx(_ context.Context, _ pgx.Tx, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.tasks[t.ID]
	if !ok {
		return fmt.Errorf("task %s: %w", t.ID, models.ErrNotFound)
	}
	// Mirrors the SQL UPDATE, which never writes these columns.
	t2 := *t
	t2.PaymentAmount = old.PaymentAmount
	t2.Provider = old.Provider
	m.tasks[t.ID] = t2
	return nil
}

func (m memTasks) filter(keep func(models.Task) bool) []*models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Task{}
	for _, t := range m.tasks {
		if keep(t) {
			cp := t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

func (m memTasks) List(context.Context) ([]*models.Task, error) {
	return m.filter(func(models.Task) bool { return true }), nil
}

func (m memTasks) ListByStatus(_ context.Context, status models.TaskStatus) ([]*models.Task, error) {
	return m.filter(func(t models.Task) bool { return t.Status == status }), nil
}

func (m memTasks) ListByUser(_ context.Context, id uuid.UUID) ([]*models.Task, error) {
	return m.filter(func(t models.Task) bool {
		return t.Provider == id || (t.AcceptedBy != nil && *t.AcceptedBy == id)
	}), nil
}

// --- transactions ---

type memTransactions struct{ *memStore }

var errInjected = errors.New("injected failure")

func (m memTransactions) CreateTx(_ context.Context, _ pgx.Tx, rec *models.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTxType != "" && rec.TransactionType == m.failTxType {
		return errInjected
	}
	m.transactions = append(m.transactions, *rec)
	return nil
}

func (m memTransactions) all() []models.TransactionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TransactionRecord(nil), m.transactions...)
}

func (m memTransactions) byType(typ models.TransactionType) []models.TransactionRecord {
	var out []models.TransactionRecord
	for _, r := range m.all() {
		if r.TransactionType == typ {
			out = append(out, r)
		}
	}
	return out
}

func (m memTransactions) ListByUser(_ context.Context, id uuid.UUID) ([]*models.TransactionRecord, error) {
	out := []*models.TransactionRecord{}
	for _, r := range m.all() {
		if r.User == id {
			cp := r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memTransactions) List(context.Context) ([]*models.TransactionRecord, error) {
	out := []*models.TransactionRecord{}
	for _, r := range m.all() {
		cp := r
		out = append(out, &cp)
	}
	return out, nil
}

func (m memTransactions) ListExtended(ctx context.Context) ([]*models.TransactionRecordExtended, error) {
	recs, _ := m.List(ctx)
	out := []*models.TransactionRecordExtended{}
	for _, r := range recs {
		e := &models.TransactionRecordExtended{TransactionRecord: *r}
		if r.RelatedTaskID != nil {
			if t, err := (memTasks{m.memStore}).GetByID(ctx, *r.RelatedTaskID); err == nil {
				title := t.Title
				e.RelatedTaskTitle = &title
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// --- withdrawals ---

type memWithdrawals struct{ *memStore }

func (m memWithdrawals) CreateTx(_ context.Context, _ pgx.Tx, w *models.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.withdrawals[w.ID]; ok {
		return fmt.Errorf("withdrawal request already exists: %w", models.ErrConflict)
	}
	m.withdrawals[w.ID] = *w
	return nil
}

func (m memWithdrawals) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return nil, fmt.Errorf("withdrawal request %s: %w", id, models.ErrNotFound)
	}
	return &w, nil
}

func (m memWithdrawals) UpdateStatusTx(_ context.Context, _ pgx.Tx, w *models.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawals[w.ID] = *w
	return nil
}

func (m memWithdrawals) list(keep func(models.WithdrawalRequest) bool) []*models.WithdrawalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.WithdrawalRequest{}
	for _, w := range m.withdrawals {
		if keep(w) {
			cp := w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

func (m memWithdrawals) ListByStatus(_ context.Context, s models.WithdrawalStatus) ([]*models.WithdrawalRequest, error) {
	return m.list(func(w models.WithdrawalRequest) bool { return w.Status == s }), nil
}

func (m memWithdrawals) ListByUser(_ context.Context, id uuid.UUID) ([]*models.WithdrawalRequest, error) {
	return m.list(func(w models.WithdrawalRequest) bool { return w.User == id }), nil
}

// --- activity ---

type memActivity struct{ *memStore }

func (m memActivity) AppendTx(_ context.Context, _ pgx.Tx, e *models.ActivityLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, *e)
	return nil
}

func (m memActivity) List(_ context.Context, limit int) ([]*models.ActivityLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.ActivityLogEntry{}
	for i := len(m.activity) - 1; i >= 0; i-- {
		cp := m.activity[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// last returns the most recent entry with the given action.
func (m memActivity) last(action models.ActivityAction) (models.ActivityLogEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.activity) - 1; i >= 0; i-- {
		if m.activity[i].Action == action {
			return m.activity[i], true
		}
	}
	return models.ActivityLogEntry{}, false
}

func (m memActivity) actions() []models.ActivityAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActivityAction
	for _, e := range m.activity {
		out = append(out, e.Action)
	}
	return out
}

// ---------------------------------------------------------------------------
// Harness wiring the real services over the in-memory store.
// ---------------------------------------------------------------------------

type expiryCall struct {
	taskID uuid.UUID
	at     time.Time
}

type mockExpiry struct {
	mu    sync.Mutex
	calls []expiryCall
}

func (m *mockExpiry) ScheduleExpiryTx(_ context.Context, _ pgx.Tx, taskID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, expiryCall{taskID, at})
	return nil
}

// stepClock advances one microsecond per reading, starting at base.
func stepClock(base time.Time) Clock {
	var mu sync.Mutex
	n := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n = n.Add(time.Microsecond)
		return n
	}
}

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	store        *memStore
	users        memUsers
	tasksRepo    memTasks
	transactions memTransactions
	withdrawRepo memWithdrawals
	activity     memActivity
	expiry       *mockExpiry

	ledger      *LedgerService
	tasks       *TaskService
	withdrawals *WithdrawalService
	wallet      *WalletService
	profiles    *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s := newMemStore()
	clock := stepClock(testEpoch)
	h := &harness{
		store:        s,
		users:        memUsers{s},
		tasksRepo:    memTasks{s},
		transactions: memTransactions{s},
		withdrawRepo: memWithdrawals{s},
		activity:     memActivity{s},
		expiry:       &mockExpiry{},
	}
	h.ledger = &LedgerService{Users: h.users, Transactions: h.transactions, Now: clock}
	h.tasks = &TaskService{
		Pool: s, Tasks: h.tasksRepo, Users: h.users, Ledger: h.ledger,
		Activity: h.activity, Expiry: h.expiry, Now: clock,
	}
	h.withdrawals = &WithdrawalService{
		Pool: s, Withdrawals: h.withdrawRepo, Users: h.users, Ledger: h.ledger,
		Activity: h.activity, Now: clock,
	}
	h.wallet = &WalletService{
		Pool: s, Users: h.users, Ledger: h.ledger, Activity: h.activity,
		Transactions: h.transactions, ActivityFeed: h.activity, Now: clock,
	}
	h.profiles = &UserService{Pool: s, Users: h.users, Now: clock}
	return h
}

func (h *harness) addUser(appRole models.AppRole, role models.UserRole, deposit, wallet int64) models.Caller {
	u := &models.User{
		ID:             uuid.New(),
		Name:           string(appRole) + "-user",
		PhoneNumber:    uuid.NewString()[:10],
		Role:           role,
		AppRole:        appRole,
		DepositBalance: deposit,
		WalletBalance:  wallet,
	}
	h.users.put(u)
	return models.CallerFor(u)
}

func (h *harness) provider(deposit int64) models.Caller {
	return h.addUser(models.AppRoleTaskPoster, models.RoleUser, deposit, 0)
}

func (h *harness) student() models.Caller {
	return h.addUser(models.AppRoleStudent, models.RoleUser, 0, 0)
}

func (h *harness) admin() models.Caller {
	return h.addUser("", models.RoleAdmin, 0, 0)
}
