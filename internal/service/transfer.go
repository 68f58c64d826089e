package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
	"github.com/ledgerpay/transfer/internal/observability"
	"github.com/ledgerpay/transfer/internal/repository"
)

// maxIdempotencyKeyLen bounds the caller-supplied key.
const maxIdempotencyKeyLen = 128

// settlementOutcome tags how one transfer attempt ended. Compensation is an
// explicit second write, not an exception path.
type settlementOutcome int

const (
	outcomeSettled settlementOutcome = iota
	outcomeCompensated
	outcomeUnrecoverable
)

func (o settlementOutcome) String() string {
	switch o {
	case outcomeSettled:
		return "settled"
	case outcomeCompensated:
		return "compensated"
	default:
		return "unrecoverable"
	}
}

// EngineConfig carries the fixed technical accounts and the hold
// reservation window. Pool ids are injected so tests can substitute
// isolated pools.
type EngineConfig struct {
	FXDebitPoolID  uuid.UUID
	FXCreditPoolID uuid.UUID
	HoldTTL        time.Duration
}

// TransferCommand is one transfer request.
type TransferCommand struct {
	FromAccountID  uuid.UUID
	ToAccountID    uuid.UUID
	AmountMinor    int64
	IdempotencyKey string
}

// TransferEngine orchestrates the reservation, conversion, double-entry
// posting and settlement of a single transfer.
type TransferEngine struct {
	store    TxRunner
	accounts AccountStore
	holds    HoldStore
	ledger   LedgerStore
	txns     TransactionStore
	fxRates  ExchangeRateProvider
	idem     IdempotencyStore
	cfg      EngineConfig
}

func NewTransferEngine(
	store TxRunner,
	accounts AccountStore,
	holds HoldStore,
	ledger LedgerStore,
	txns TransactionStore,
	fxRates ExchangeRateProvider,
	idem IdempotencyStore,
	cfg EngineConfig,
) *TransferEngine {
	return &TransferEngine{
		store:    store,
		accounts: accounts,
		holds:    holds,
		ledger:   ledger,
		txns:     txns,
		fxRates:  fxRates,
		idem:     idem,
		cfg:      cfg,
	}
}

// Transfer moves funds between two accounts.
//
// Flow: idempotency short-circuit → lock both accounts in lexicographic id
// order → sufficiency check → hold → optional FX conversion → ledger
// posting → hold captured + transaction completed, committed as one unit.
// On failure after the hold is created, a compensating write persists
// hold=released and transaction=failed, then the original error is
// returned.
func (e *TransferEngine) Transfer(ctx context.Context, cmd TransferCommand) (*models.TransferResult, error) {
	if err := e.validate(cmd); err != nil {
		return nil, err
	}

	if prior, err := e.idem.Get(ctx, cmd.IdempotencyKey); err != nil {
		zap.L().Warn("idempotency lookup failed, continuing", zap.Error(err))
	} else if prior != nil {
		observability.IncrementIdempotencyEvent("replay")
		return prior, nil
	}

	start := time.Now()
	kind := "same_currency"

	var (
		hold     *models.Hold
		txn      *models.Transaction
		result   *models.TransferResult
		reserved bool
	)

	err := e.store.RunInTx(ctx, func(tx pgx.Tx) error {
		from, to, err := e.lockAccounts(ctx, tx, cmd.FromAccountID, cmd.ToAccountID)
		if err != nil {
			return err
		}

		debit, err := domain.NewMoney(cmd.AmountMinor, from.Currency)
		if err != nil {
			return err
		}
		if from.Available < debit.AmountMinor {
			return fmt.Errorf("%w: account %s has %d, needs %d",
				domain.ErrInsufficientBalance, from.ID, from.Available, debit.AmountMinor)
		}

		// Commit point: from here on, failures require compensation.
		hold = e.newHold(from.ID, debit)
		if err := e.holds.Create(ctx, tx, hold); err != nil {
			return err
		}
		reserved = true

		txn = &models.Transaction{
			ID:             uuid.New(),
			IdempotencyKey: cmd.IdempotencyKey,
			Type:           domain.TxTypePayment,
			Status:         domain.TxStatusPending,
			FromAccountID:  from.ID,
			ToAccountID:    to.ID,
			AmountMinor:    debit.AmountMinor,
			Currency:       debit.Currency,
		}
		if err := e.txns.Create(ctx, tx, txn); err != nil {
			return err
		}

		credit := debit
		rate := "1"
		isFx := from.Currency != to.Currency
		if isFx {
			kind = "fx"
			r, err := e.fxRates.Rate(ctx, from.Currency, to.Currency)
			if err != nil {
				return err
			}
			credit, err = e.fxRates.Convert(ctx, debit, to.Currency)
			if err != nil {
				return err
			}
			rate = r.String()
		}

		// Second, aggregate-level enforcement of amount and sufficiency
		// invariants.
		if err := from.Debit(debit); err != nil {
			return err
		}
		if err := to.Credit(credit); err != nil {
			return err
		}

		if isFx {
			if err := e.postFxEntries(ctx, tx, txn.ID, from.ID, to.ID, debit, credit, rate); err != nil {
				return err
			}
		} else {
			if err := e.postSameCurrencyEntries(ctx, tx, txn.ID, from.ID, to.ID, debit); err != nil {
				return err
			}
		}

		if err := e.holds.SetStatus(ctx, tx, hold.ID, domain.HoldStatusCaptured); err != nil {
			return err
		}
		if err := e.txns.SetStatus(ctx, tx, txn.ID, domain.TxStatusCompleted); err != nil {
			return err
		}

		result = &models.TransferResult{
			TransferID:    txn.ID,
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountMinor:   debit.AmountMinor,
			Currency:      debit.Currency,
		}
		return nil
	})

	if err != nil {
		if !reserved {
			observability.IncrementTransfer("rejected")
			return nil, err
		}
		return nil, e.settleFailure(ctx, hold, txn, err)
	}

	if err := e.idem.Set(ctx, cmd.IdempotencyKey, result); err != nil {
		zap.L().Warn("idempotency cache set failed", zap.Error(err))
	}

	observability.IncrementTransfer(outcomeSettled.String())
	observability.ObserveTransferDuration(kind, time.Since(start))
	zap.L().Info("transfer completed",
		zap.String("transfer_id", result.TransferID.String()),
		zap.String("from", result.FromAccountID.String()),
		zap.String("to", result.ToAccountID.String()),
		zap.Int64("amount_minor", result.AmountMinor),
		zap.String("currency", result.Currency),
		zap.String("kind", kind),
	)
	return result, nil
}

func (e *TransferEngine) validate(cmd TransferCommand) error {
	if cmd.AmountMinor <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", domain.ErrInvalidArgument, cmd.AmountMinor)
	}
	if cmd.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key cannot be empty", domain.ErrInvalidArgument)
	}
	if len(cmd.IdempotencyKey) > maxIdempotencyKeyLen {
		return fmt.Errorf("%w: idempotency key exceeds %d characters", domain.ErrInvalidArgument, maxIdempotencyKeyLen)
	}
	if cmd.FromAccountID == uuid.Nil || cmd.ToAccountID == uuid.Nil {
		return fmt.Errorf("%w: account ids are required", domain.ErrInvalidArgument)
	}
	if cmd.FromAccountID == cmd.ToAccountID {
		return fmt.Errorf("%w: fromAccountId must differ from toAccountId", domain.ErrInvalidArgument)
	}
	return nil
}

// lockAccounts acquires both row locks, always taking the lexicographically
// smaller account id first. The total order across all callers is the
// deadlock-avoidance invariant.
func (e *TransferEngine) lockAccounts(ctx context.Context, tx pgx.Tx, fromID, toID uuid.UUID) (*domain.Account, *domain.Account, error) {
	var from, to *domain.Account
	var err error

	if fromID.String() < toID.String() {
		if from, err = e.accounts.GetForUpdate(ctx, tx, fromID); err != nil {
			return nil, nil, err
		}
		if to, err = e.accounts.GetForUpdate(ctx, tx, toID); err != nil {
			return nil, nil, err
		}
	} else {
		if to, err = e.accounts.GetForUpdate(ctx, tx, toID); err != nil {
			return nil, nil, err
		}
		if from, err = e.accounts.GetForUpdate(ctx, tx, fromID); err != nil {
			return nil, nil, err
		}
	}
	return from, to, nil
}

func (e *TransferEngine) newHold(accountID uuid.UUID, amount domain.Money) *models.Hold {
	hold := &models.Hold{
		ID:          uuid.New(),
		AccountID:   accountID,
		AmountMinor: amount.AmountMinor,
		Currency:    amount.Currency,
		Status:      domain.HoldStatusActive,
		Reason:      domain.HoldReasonTransfer,
	}
	if e.cfg.HoldTTL > 0 {
		expires := time.Now().UTC().Add(e.cfg.HoldTTL)
		hold.ExpiresAt = &expires
	}
	return hold
}

func (e *TransferEngine) postSameCurrencyEntries(ctx context.Context, tx pgx.Tx, txnID, fromID, toID uuid.UUID, amount domain.Money) error {
	entries := []*models.LedgerEntry{
		{ID: uuid.New(), TransactionID: txnID, AccountID: fromID, Side: domain.SideDebit, AmountMinor: amount.AmountMinor, Currency: amount.Currency},
		{ID: uuid.New(), TransactionID: txnID, AccountID: toID, Side: domain.SideCredit, AmountMinor: amount.AmountMinor, Currency: amount.Currency},
	}
	for _, entry := range entries {
		if err := e.ledger.Insert(ctx, tx, entry); err != nil {
			return err
		}
	}
	return nil
}

// postFxEntries routes the conversion through the two technical pool
// accounts so each currency leg balances independently: four entries plus
// one fx_transactions audit row.
func (e *TransferEngine) postFxEntries(ctx context.Context, tx pgx.Tx, txnID, fromID, toID uuid.UUID, debit, credit domain.Money, rate string) error {
	entries := []*models.LedgerEntry{
		{ID: uuid.New(), TransactionID: txnID, AccountID: fromID, Side: domain.SideDebit, AmountMinor: debit.AmountMinor, Currency: debit.Currency},
		{ID: uuid.New(), TransactionID: txnID, AccountID: e.cfg.FXDebitPoolID, Side: domain.SideCredit, AmountMinor: debit.AmountMinor, Currency: debit.Currency},
		{ID: uuid.New(), TransactionID: txnID, AccountID: e.cfg.FXCreditPoolID, Side: domain.SideDebit, AmountMinor: credit.AmountMinor, Currency: credit.Currency},
		{ID: uuid.New(), TransactionID: txnID, AccountID: toID, Side: domain.SideCredit, AmountMinor: credit.AmountMinor, Currency: credit.Currency},
	}
	for _, entry := range entries {
		if err := e.ledger.Insert(ctx, tx, entry); err != nil {
			return err
		}
	}

	return e.txns.InsertFx(ctx, tx, &models.FxTransaction{
		ID:               uuid.New(),
		TransactionID:    txnID,
		BaseAmountMinor:  debit.AmountMinor,
		BaseCurrency:     debit.Currency,
		QuoteAmountMinor: credit.AmountMinor,
		QuoteCurrency:    credit.Currency,
		Rate:             rate,
		Spread:           "0",
	})
}

// settleFailure runs after a failure past the reservation point. The failed
// unit of work has been rolled back; a compensating transaction persists
// the hold as released and the transaction as failed for audit, then the
// original error is surfaced.
func (e *TransferEngine) settleFailure(ctx context.Context, hold *models.Hold, txn *models.Transaction, cause error) error {
	// A concurrent retry with the same key may have completed while this
	// attempt failed on the idempotency-key unique constraint. The unique
	// constraint, not the cache, is the final guard.
	if prior, lookupErr := e.txns.FindCompletedByKey(ctx, e.store.DB(), txn.IdempotencyKey); lookupErr == nil && prior != nil {
		observability.IncrementTransfer("rejected")
		return fmt.Errorf("%w: idempotency key already used by transfer %s",
			domain.ErrInvalidArgument, prior.TransferID)
	}

	hold.Status = domain.HoldStatusReleased
	txn.Status = domain.TxStatusFailed

	compErr := e.store.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := e.holds.Upsert(ctx, tx, hold); err != nil {
			return err
		}
		return e.txns.Upsert(ctx, tx, txn)
	})
	if compErr != nil {
		observability.IncrementTransfer(outcomeUnrecoverable.String())
		zap.L().Error("compensating write failed, hold left for reconciliation",
			zap.String("hold_id", hold.ID.String()),
			zap.String("transaction_id", txn.ID.String()),
			zap.NamedError("cause", cause),
			zap.Error(compErr),
		)
		return wrapStorageFailure(cause)
	}

	observability.IncrementTransfer(outcomeCompensated.String())
	zap.L().Warn("transfer compensated",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("hold_id", hold.ID.String()),
		zap.Error(cause),
	)
	return wrapStorageFailure(cause)
}

// wrapStorageFailure tags infrastructure errors while leaving domain errors
// (missing FX rate, aggregate-level rejections) typed as they are.
func wrapStorageFailure(err error) error {
	if errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrAccountNotFound) ||
		errors.Is(err, domain.ErrInsufficientBalance) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}

var _ TxRunner = (*repository.Store)(nil)
var _ AccountStore = (*repository.AccountRepo)(nil)
var _ HoldStore = (*repository.HoldRepo)(nil)
var _ LedgerStore = (*repository.LedgerRepo)(nil)
var _ TransactionStore = (*repository.TransactionRepo)(nil)
