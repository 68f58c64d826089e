package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
	"github.com/ledgerpay/transfer/internal/repository"
)

// fakeStore is an in-memory stand-in for Postgres with real row locking:
// GetForUpdate takes a per-account mutex that is held until the unit of
// work ends, writes are staged per transaction and applied atomically on
// commit, and transactions.idempotency_key behaves as a unique constraint.
// That makes the engine's lock-ordering and compensation paths observable
// without a database.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*fakeAccount
	entries  []*models.LedgerEntry
	holds    map[uuid.UUID]*models.Hold
	txns     map[uuid.UUID]*models.Transaction
	fx       []*models.FxTransaction

	// Failure injection.
	failHoldCapture error // returned by HoldStore.SetStatus(captured)
	failHoldUpsert  error // returned by HoldStore.Upsert (compensation)
	failTxnCreate   error
	failFxInsert    error
}

type fakeAccount struct {
	rowMu   sync.Mutex
	account models.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[uuid.UUID]*fakeAccount),
		holds:    make(map[uuid.UUID]*models.Hold),
		txns:     make(map[uuid.UUID]*models.Transaction),
	}
}

func (s *fakeStore) addAccount(id uuid.UUID, currency string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[id] = &fakeAccount{account: models.Account{
		ID:        id,
		OwnerID:   uuid.New(),
		Currency:  currency,
		Type:      domain.AccountTypeUser,
		Status:    domain.AccountStatusActive,
		CreatedAt: time.Now().UTC(),
	}}
}

// fund credits an account directly, bypassing the engine.
func (s *fakeStore) fund(accountID uuid.UUID, amountMinor int64, currency string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &models.LedgerEntry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Side:        domain.SideCredit,
		AmountMinor: amountMinor,
		Currency:    currency,
		CreatedAt:   time.Now().UTC(),
	})
}

// availableLocked derives the balance the same way the account repository
// does: settled ledger net minus active holds, clamped at zero.
func (s *fakeStore) availableLocked(accountID uuid.UUID) int64 {
	var net int64
	for _, e := range s.entries {
		if e.AccountID != accountID {
			continue
		}
		if e.Side == domain.SideCredit {
			net += e.AmountMinor
		} else {
			net -= e.AmountMinor
		}
	}
	for _, h := range s.holds {
		if h.AccountID == accountID && h.Status == domain.HoldStatusActive {
			net -= h.AmountMinor
		}
	}
	if net < 0 {
		return 0
	}
	return net
}

func (s *fakeStore) accountEntries(accountID uuid.UUID) []*models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

func (s *fakeStore) available(accountID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableLocked(accountID)
}

func (s *fakeStore) holdByAccount(accountID uuid.UUID) *models.Hold {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holds {
		if h.AccountID == accountID {
			return h
		}
	}
	return nil
}

func (s *fakeStore) txnByKey(key string) *models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txns {
		if t.IdempotencyKey == key {
			return t
		}
	}
	return nil
}

// fakeTx stages writes for one unit of work. The embedded pgx.Tx is never
// invoked; it only satisfies the interface so the engine can hand the
// transaction to the stores.
type fakeTx struct {
	pgx.Tx
	s           *fakeStore
	locked      []*fakeAccount
	stagedHolds map[uuid.UUID]*models.Hold
	stagedTxns  map[uuid.UUID]*models.Transaction
	stagedOrder []uuid.UUID
	stagedEntry []*models.LedgerEntry
	stagedFx    []*models.FxTransaction
	holdUpserts map[uuid.UUID]bool
	txnUpserts  map[uuid.UUID]bool
}

func newFakeTx(s *fakeStore) *fakeTx {
	return &fakeTx{
		s:           s,
		stagedHolds: make(map[uuid.UUID]*models.Hold),
		stagedTxns:  make(map[uuid.UUID]*models.Transaction),
		holdUpserts: make(map[uuid.UUID]bool),
		txnUpserts:  make(map[uuid.UUID]bool),
	}
}

func (t *fakeTx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	// transactions.idempotency_key unique constraint. Upserts conflict on
	// id, so a re-staged row for an existing id passes.
	for _, id := range t.stagedOrder {
		staged := t.stagedTxns[id]
		for _, existing := range t.s.txns {
			if existing.IdempotencyKey == staged.IdempotencyKey && existing.ID != staged.ID {
				return fmt.Errorf("duplicate key value violates unique constraint %q", "transactions_idempotency_key_unique")
			}
		}
	}

	for id, h := range t.stagedHolds {
		copied := *h
		t.s.holds[id] = &copied
	}
	for _, id := range t.stagedOrder {
		copied := *t.stagedTxns[id]
		t.s.txns[id] = &copied
	}
	t.s.entries = append(t.s.entries, t.stagedEntry...)
	t.s.fx = append(t.s.fx, t.stagedFx...)
	return nil
}

func (t *fakeTx) unlockAll() {
	for i := len(t.locked) - 1; i >= 0; i-- {
		t.locked[i].rowMu.Unlock()
	}
	t.locked = nil
}

func (s *fakeStore) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx := newFakeTx(s)
	defer tx.unlockAll()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *fakeStore) DB() repository.DB {
	return newFakeTx(s)
}

func asFakeTx(q repository.DB) *fakeTx {
	tx, ok := q.(*fakeTx)
	if !ok {
		panic(fmt.Sprintf("fake store received unexpected querier %T", q))
	}
	return tx
}

// fakeAccountStore loads accounts with derived balances; GetForUpdate holds
// the row lock for the remainder of the unit of work.
type fakeAccountStore struct{ s *fakeStore }

func (f fakeAccountStore) Get(ctx context.Context, q repository.DB, id uuid.UUID) (*domain.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	row, ok := f.s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", domain.ErrAccountNotFound, id)
	}
	return f.load(row), nil
}

func (f fakeAccountStore) GetForUpdate(ctx context.Context, q repository.DB, id uuid.UUID) (*domain.Account, error) {
	tx := asFakeTx(q)

	f.s.mu.Lock()
	row, ok := f.s.accounts[id]
	f.s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: account %s", domain.ErrAccountNotFound, id)
	}

	row.rowMu.Lock()
	tx.locked = append(tx.locked, row)

	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.load(row), nil
}

func (f fakeAccountStore) load(row *fakeAccount) *domain.Account {
	return &domain.Account{
		ID:        row.account.ID,
		OwnerID:   row.account.OwnerID,
		Currency:  row.account.Currency,
		Type:      row.account.Type,
		Status:    row.account.Status,
		Available: f.s.availableLocked(row.account.ID),
		CreatedAt: row.account.CreatedAt,
	}
}

type fakeHoldStore struct{ s *fakeStore }

func (f fakeHoldStore) Create(ctx context.Context, q repository.DB, hold *models.Hold) error {
	tx := asFakeTx(q)
	copied := *hold
	tx.stagedHolds[hold.ID] = &copied
	return nil
}

func (f fakeHoldStore) SetStatus(ctx context.Context, q repository.DB, holdID uuid.UUID, status string) error {
	if status == domain.HoldStatusCaptured && f.s.failHoldCapture != nil {
		return f.s.failHoldCapture
	}
	tx := asFakeTx(q)
	if staged, ok := tx.stagedHolds[holdID]; ok {
		staged.Status = status
		return nil
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	existing, ok := f.s.holds[holdID]
	if !ok {
		return fmt.Errorf("hold %s: no rows affected", holdID)
	}
	copied := *existing
	copied.Status = status
	tx.stagedHolds[holdID] = &copied
	return nil
}

func (f fakeHoldStore) Upsert(ctx context.Context, q repository.DB, hold *models.Hold) error {
	if f.s.failHoldUpsert != nil {
		return f.s.failHoldUpsert
	}
	tx := asFakeTx(q)
	copied := *hold
	tx.stagedHolds[hold.ID] = &copied
	tx.holdUpserts[hold.ID] = true
	return nil
}

type fakeLedgerStore struct{ s *fakeStore }

func (f fakeLedgerStore) Insert(ctx context.Context, q repository.DB, entry *models.LedgerEntry) error {
	tx := asFakeTx(q)
	copied := *entry
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	tx.stagedEntry = append(tx.stagedEntry, &copied)
	return nil
}

type fakeTxnStore struct{ s *fakeStore }

func (f fakeTxnStore) Create(ctx context.Context, q repository.DB, txn *models.Transaction) error {
	if f.s.failTxnCreate != nil {
		return f.s.failTxnCreate
	}
	tx := asFakeTx(q)
	copied := *txn
	tx.stagedTxns[txn.ID] = &copied
	tx.stagedOrder = append(tx.stagedOrder, txn.ID)
	return nil
}

func (f fakeTxnStore) SetStatus(ctx context.Context, q repository.DB, txnID uuid.UUID, status string) error {
	tx := asFakeTx(q)
	if staged, ok := tx.stagedTxns[txnID]; ok {
		staged.Status = status
		return nil
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	existing, ok := f.s.txns[txnID]
	if !ok {
		return fmt.Errorf("transaction %s: no rows affected", txnID)
	}
	copied := *existing
	copied.Status = status
	tx.stagedTxns[txnID] = &copied
	tx.stagedOrder = append(tx.stagedOrder, txnID)
	return nil
}

func (f fakeTxnStore) Upsert(ctx context.Context, q repository.DB, txn *models.Transaction) error {
	tx := asFakeTx(q)
	copied := *txn
	tx.stagedTxns[txn.ID] = &copied
	tx.stagedOrder = append(tx.stagedOrder, txn.ID)
	tx.txnUpserts[txn.ID] = true
	return nil
}

func (f fakeTxnStore) FindCompletedByKey(ctx context.Context, q repository.DB, key string) (*models.TransferResult, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, t := range f.s.txns {
		if t.IdempotencyKey == key && t.Status == domain.TxStatusCompleted {
			return &models.TransferResult{
				TransferID:    t.ID,
				FromAccountID: t.FromAccountID,
				ToAccountID:   t.ToAccountID,
				AmountMinor:   t.AmountMinor,
				Currency:      t.Currency,
			}, nil
		}
	}
	return nil, nil
}

func (f fakeTxnStore) InsertFx(ctx context.Context, q repository.DB, fx *models.FxTransaction) error {
	if f.s.failFxInsert != nil {
		return f.s.failFxInsert
	}
	tx := asFakeTx(q)
	copied := *fx
	tx.stagedFx = append(tx.stagedFx, &copied)
	return nil
}

// fakeIdemStore is a plain map; the durable fallback path is covered by the
// idempotency package's own tests.
type fakeIdemStore struct {
	mu      sync.Mutex
	results map[string]*models.TransferResult
	getErr  error
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{results: make(map[string]*models.TransferResult)}
}

func (f *fakeIdemStore) Get(ctx context.Context, key string) (*models.TransferResult, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[key], nil
}

func (f *fakeIdemStore) Set(ctx context.Context, key string, result *models.TransferResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[key] = result
	return nil
}

var _ TxRunner = (*fakeStore)(nil)
var _ AccountStore = fakeAccountStore{}
var _ HoldStore = fakeHoldStore{}
var _ LedgerStore = fakeLedgerStore{}
var _ TransactionStore = fakeTxnStore{}
var _ IdempotencyStore = (*fakeIdemStore)(nil)
