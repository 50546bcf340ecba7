package service

import (
	"context"
	"errors"
	"testing"

	"card-auction-engine/internal/core/domain"
	"card-auction-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerFixture() (*LedgerServiceImpl, *fakeWalletRepo, *fakeLedgerRepo) {
	wallets := newFakeWalletRepo()
	entries := newFakeLedgerRepo()
	svc := NewLedgerService(wallets, entries, fakeTransactor{}, zerolog.Nop())
	return svc, wallets, entries
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestLedgerService_CreditCreatesAccount(t *testing.T) {
	svc, _, entries := newLedgerFixture()
	accountID := uuid.New()

	txn, err := svc.Credit(context.Background(), accountID, 100, domain.TransactionEarnSale, "AUCTION_SALE:test")
	require.NoError(t, err)
	assert.Equal(t, int64(100), txn.Amount)
	assert.Equal(t, int64(100), txn.BalanceAfter)

	balance, err := svc.Balance(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
	assert.Len(t, entries.byAccount(accountID), 1)
}

func TestLedgerService_DebitInsufficientFunds(t *testing.T) {
	svc, wallets, entries := newLedgerFixture()
	accountID := uuid.New()
	wallets.seed(accountID, 50)

	_, err := svc.Debit(context.Background(), accountID, 60, domain.TransactionSpendBid, "test")
	assertCode(t, err, "WAL_001")

	// Balance and history untouched by the failed debit.
	balance, err := svc.Balance(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
	assert.Empty(t, entries.byAccount(accountID))
}

func TestLedgerService_DebitMissingAccount(t *testing.T) {
	svc, _, _ := newLedgerFixture()

	_, err := svc.Debit(context.Background(), uuid.New(), 10, domain.TransactionSpendListingFee, "test")
	assertCode(t, err, "WAL_002")
}

func TestLedgerService_DebitRecordsNegativeAmount(t *testing.T) {
	svc, wallets, _ := newLedgerFixture()
	accountID := uuid.New()
	wallets.seed(accountID, 100)

	txn, err := svc.Debit(context.Background(), accountID, 30, domain.TransactionSpendListingFee, "AUCTION_LISTING:test")
	require.NoError(t, err)
	assert.Equal(t, int64(-30), txn.Amount)
	assert.Equal(t, int64(70), txn.BalanceAfter)
	assert.True(t, txn.IsDebit())
}

func TestLedgerService_Transfer(t *testing.T) {
	svc, wallets, entries := newLedgerFixture()
	buyer, seller := uuid.New(), uuid.New()
	wallets.seed(buyer, 500)

	debit, credit, err := svc.Transfer(context.Background(), buyer, seller, 500,
		domain.TransactionSpendBuyout, domain.TransactionEarnSale, "AUCTION_BUYOUT:test")
	require.NoError(t, err)
	assert.Equal(t, int64(-500), debit.Amount)
	assert.Equal(t, int64(0), debit.BalanceAfter)
	assert.Equal(t, int64(500), credit.Amount)
	assert.Equal(t, int64(500), credit.BalanceAfter)
	assert.Equal(t, domain.TransactionSpendBuyout, debit.Type)
	assert.Equal(t, domain.TransactionEarnSale, credit.Type)

	buyerBal, _ := svc.Balance(context.Background(), buyer)
	sellerBal, _ := svc.Balance(context.Background(), seller)
	assert.Equal(t, int64(0), buyerBal)
	assert.Equal(t, int64(500), sellerBal)
	assert.Len(t, entries.byAccount(buyer), 1)
	assert.Len(t, entries.byAccount(seller), 1)
}

func TestLedgerService_TransferInsufficientFunds(t *testing.T) {
	svc, wallets, _ := newLedgerFixture()
	from, to := uuid.New(), uuid.New()
	wallets.seed(from, 99)

	_, _, err := svc.Transfer(context.Background(), from, to, 100,
		domain.TransactionSpendBid, domain.TransactionEarnSale, "test")
	assertCode(t, err, "WAL_001")
}

func TestLedgerService_TransferToSelf(t *testing.T) {
	svc, wallets, _ := newLedgerFixture()
	accountID := uuid.New()
	wallets.seed(accountID, 100)

	_, _, err := svc.Transfer(context.Background(), accountID, accountID, 10,
		domain.TransactionSpendBid, domain.TransactionEarnSale, "test")
	assertCode(t, err, "WAL_003")
}

func TestLedgerService_InvalidAmounts(t *testing.T) {
	svc, wallets, _ := newLedgerFixture()
	accountID := uuid.New()
	wallets.seed(accountID, 100)

	_, err := svc.Debit(context.Background(), accountID, 0, domain.TransactionSpendBid, "test")
	assertCode(t, err, "WAL_003")
	_, err = svc.Credit(context.Background(), accountID, -5, domain.TransactionEarnSale, "test")
	assertCode(t, err, "WAL_003")
}

func TestLedgerService_BalanceMissingAccountIsZero(t *testing.T) {
	svc, _, _ := newLedgerFixture()

	balance, err := svc.Balance(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestLedgerService_History(t *testing.T) {
	svc, _, _ := newLedgerFixture()
	accountID := uuid.New()

	_, err := svc.Credit(context.Background(), accountID, 100, domain.TransactionEarnSale, "sale1")
	require.NoError(t, err)
	_, err = svc.Debit(context.Background(), accountID, 40, domain.TransactionSpendBid, "bid1")
	require.NoError(t, err)

	txns, total, err := svc.History(context.Background(), accountID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, txns, 2)
	// Newest first
	assert.Equal(t, int64(-40), txns[0].Amount)
	assert.Equal(t, int64(60), txns[0].BalanceAfter)
}

func TestLedgerService_AdminAdjust(t *testing.T) {
	svc, wallets, _ := newLedgerFixture()
	accountID := uuid.New()

	txn, err := svc.AdminAdjust(context.Background(), accountID, 200, "support grant")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionAdminAdjustment, txn.Type)
	assert.Equal(t, "ADMIN:support grant", txn.Source)

	wallets.seed(accountID, 200)
	txn, err = svc.AdminAdjust(context.Background(), accountID, -50, "rollback duplicate")
	require.NoError(t, err)
	assert.Equal(t, int64(-50), txn.Amount)
	assert.Equal(t, int64(150), txn.BalanceAfter)

	_, err = svc.AdminAdjust(context.Background(), accountID, 0, "noop")
	assertCode(t, err, "WAL_003")
}
