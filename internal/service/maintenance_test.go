package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/repository"
)

func TestSweepExpiresOverdueHolds(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewHoldMaintenanceService(repository.NewStore(mock), repository.NewHoldRepo())

	mock.ExpectExec(`UPDATE holds SET status = \$1`).
		WithArgs(domain.HoldStatusExpired, domain.HoldStatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	count, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepPropagatesStorageError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewHoldMaintenanceService(repository.NewStore(mock), repository.NewHoldRepo())

	mock.ExpectExec(`UPDATE holds SET status = \$1`).
		WithArgs(domain.HoldStatusExpired, domain.HoldStatusActive).
		WillReturnError(errors.New("connection reset"))

	_, err = svc.Sweep(context.Background())
	assert.ErrorContains(t, err, "sweep expired holds")
}
