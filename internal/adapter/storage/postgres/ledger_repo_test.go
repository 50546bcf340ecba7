package postgres

import (
	"context"
	"testing"
	"time"

	"card-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(accountID uuid.UUID) *domain.Transaction {
	return &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Amount:       -10,
		BalanceAfter: 90,
		Type:         domain.TransactionSpendListingFee,
		Source:       "AUCTION_LISTING:" + uuid.NewString(),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func ledgerColumns() []string {
	return []string{"id", "account_id", "amount", "balance_after", "entry_type", "source", "created_at"}
}

func TestLedgerRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	entry := newTestEntry(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_transactions").
		WithArgs(
			entry.ID, entry.AccountID, entry.Amount, entry.BalanceAfter,
			entry.Type, entry.Source, entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), dbTx, entry)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	accountID := uuid.New()
	entry := newTestEntry(accountID)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM ledger_transactions WHERE account_id").
		WithArgs(accountID, 20, 0).
		WillReturnRows(pgxmock.NewRows(ledgerColumns()).AddRow(
			entry.ID, entry.AccountID, entry.Amount, entry.BalanceAfter,
			entry.Type, entry.Source, entry.CreatedAt,
		))

	txns, total, err := repo.ListByAccount(context.Background(), accountID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, txns, 1)
	assert.Equal(t, entry.ID, txns[0].ID)
	assert.Equal(t, int64(-10), txns[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByAccount_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	accountID := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT .+ FROM ledger_transactions WHERE account_id").
		WithArgs(accountID, 20, 0).
		WillReturnRows(pgxmock.NewRows(ledgerColumns()))

	txns, total, err := repo.ListByAccount(context.Background(), accountID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}
