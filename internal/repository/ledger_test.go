package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
)

func TestLedgerBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo()
	accountID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(CASE WHEN side = \$3`).
		WithArgs(accountID, "USD", domain.SideCredit).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(7000)))

	balance, err := repo.Balance(context.Background(), mock, accountID, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), balance.AmountMinor)
	assert.Equal(t, "USD", balance.Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerBalanceNoEntriesIsZero(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo()
	accountID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(CASE WHEN side = \$3`).
		WithArgs(accountID, "EUR", domain.SideCredit).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))

	balance, err := repo.Balance(context.Background(), mock, accountID, "EUR")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.AmountMinor)
}

func TestLedgerBalanceRejectsInvalidCurrency(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo()

	_, err = repo.Balance(context.Background(), mock, uuid.New(), "usd")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = repo.Balance(context.Background(), mock, uuid.New(), "US")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestLedgerInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo()
	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		TransactionID: uuid.New(),
		AccountID:     uuid.New(),
		Side:          domain.SideDebit,
		AmountMinor:   3000,
		Currency:      "USD",
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_entries`)).
		WithArgs(entry.ID, entry.TransactionID, entry.AccountID, entry.Side, entry.AmountMinor, entry.Currency).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Insert(context.Background(), mock, entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerEntriesPaged(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo()
	accountID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, transaction_id, account_id, side, amount_minor, currency, created_at FROM ledger_entries`).
		WithArgs(accountID, 20, 40).
		WillReturnRows(pgxmock.NewRows([]string{"id", "transaction_id", "account_id", "side", "amount_minor", "currency", "created_at"}).
			AddRow(uuid.New(), uuid.New(), accountID, domain.SideCredit, int64(500), "USD", now).
			AddRow(uuid.New(), uuid.New(), accountID, domain.SideDebit, int64(200), "USD", now))

	entries, err := repo.Entries(context.Background(), mock, accountID, 20, 40)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.SideCredit, entries[0].Side)
	assert.Equal(t, int64(200), entries[1].AmountMinor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerNetByCurrency(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo()

	mock.ExpectQuery(`SELECT currency, COALESCE\(SUM\(CASE WHEN side = \$1`).
		WithArgs(domain.SideCredit).
		WillReturnRows(pgxmock.NewRows([]string{"currency", "coalesce"}).
			AddRow("USD", int64(0)).
			AddRow("EUR", int64(-42)))

	nets, err := repo.NetByCurrency(context.Background(), mock)
	require.NoError(t, err)
	require.Len(t, nets, 2)
	assert.Equal(t, CurrencyNet{Currency: "USD", NetMinor: 0}, nets[0])
	assert.Equal(t, CurrencyNet{Currency: "EUR", NetMinor: -42}, nets[1])
}
