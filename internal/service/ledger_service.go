package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"card-auction-engine/internal/core/domain"
	"card-auction-engine/internal/core/ports"
	"card-auction-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.Ledger with pessimistic per-account
// locking. Every balance change locks the account row, recomputes the
// balance, and appends the ledger entry inside the same database
// transaction, so the running balance and the history can never diverge.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		log:        log,
	}
}

// Debit removes funds in its own transaction.
func (s *LedgerServiceImpl) Debit(ctx context.Context, accountID uuid.UUID, amount int64, txType domain.TransactionType, source string) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		txn, err = s.DebitTx(ctx, tx, accountID, amount, txType, source)
		return err
	})
	return txn, err
}

// Credit adds funds in its own transaction.
func (s *LedgerServiceImpl) Credit(ctx context.Context, accountID uuid.UUID, amount int64, txType domain.TransactionType, source string) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		txn, err = s.CreditTx(ctx, tx, accountID, amount, txType, source)
		return err
	})
	return txn, err
}

// Transfer moves funds between two accounts in its own transaction.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, from, to uuid.UUID, amount int64, debitType, creditType domain.TransactionType, source string) (*domain.Transaction, *domain.Transaction, error) {
	var debit, credit *domain.Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		debit, credit, err = s.TransferTx(ctx, tx, from, to, amount, debitType, creditType, source)
		return err
	})
	return debit, credit, err
}

// DebitTx removes funds inside a caller-owned transaction. The account must
// exist; a debit can never be the first ledger entry for an account.
func (s *LedgerServiceImpl) DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, txType domain.TransactionType, source string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	acct, err := s.walletRepo.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if acct == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	if acct.Balance < amount {
		return nil, apperror.ErrInsufficientFunds(acct.Balance, amount)
	}

	return s.apply(ctx, tx, acct, -amount, txType, source)
}

// CreditTx adds funds inside a caller-owned transaction, creating the account
// on first use.
func (s *LedgerServiceImpl) CreditTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, txType domain.TransactionType, source string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	if err := s.walletRepo.CreateIfAbsent(ctx, tx, accountID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("ensure wallet: %w", err))
	}
	acct, err := s.walletRepo.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if acct == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	return s.apply(ctx, tx, acct, amount, txType, source)
}

// TransferTx debits one account and credits another inside a caller-owned
// transaction. Both rows are locked in ascending account id order so two
// opposing transfers cannot deadlock.
func (s *LedgerServiceImpl) TransferTx(ctx context.Context, tx pgx.Tx, from, to uuid.UUID, amount int64, debitType, creditType domain.TransactionType, source string) (*domain.Transaction, *domain.Transaction, error) {
	if amount <= 0 {
		return nil, nil, apperror.ErrInvalidAmount()
	}
	if from == to {
		return nil, nil, apperror.Validation("Cannot transfer to the same account")
	}

	if err := s.walletRepo.CreateIfAbsent(ctx, tx, to); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("ensure wallet: %w", err))
	}

	first, second := from, to
	if bytes.Compare(to[:], from[:]) < 0 {
		first, second = to, from
	}
	accts := make(map[uuid.UUID]*domain.WalletAccount, 2)
	for _, id := range []uuid.UUID{first, second} {
		acct, err := s.walletRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if acct == nil {
			return nil, nil, apperror.ErrAccountNotFound()
		}
		accts[id] = acct
	}

	src := accts[from]
	if src.Balance < amount {
		return nil, nil, apperror.ErrInsufficientFunds(src.Balance, amount)
	}

	debit, err := s.apply(ctx, tx, src, -amount, debitType, source)
	if err != nil {
		return nil, nil, err
	}
	credit, err := s.apply(ctx, tx, accts[to], amount, creditType, source)
	if err != nil {
		return nil, nil, err
	}
	return debit, credit, nil
}

// Balance returns the account's current balance. An account with no ledger
// history reads as zero.
func (s *LedgerServiceImpl) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	acct, err := s.walletRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if acct == nil {
		return 0, nil
	}
	return acct.Balance, nil
}

// History returns the account's ledger entries, newest first.
func (s *LedgerServiceImpl) History(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	txns, total, err := s.txRepo.ListByAccount(ctx, accountID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list ledger: %w", err))
	}
	return txns, total, nil
}

// AdminAdjust applies a signed operator correction. Positive amounts credit
// (creating the account if needed), negative amounts debit under the usual
// solvency check.
func (s *LedgerServiceImpl) AdminAdjust(ctx context.Context, accountID uuid.UUID, amount int64, reason string) (*domain.Transaction, error) {
	if amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	source := "ADMIN:" + reason

	var txn *domain.Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		if amount > 0 {
			txn, err = s.CreditTx(ctx, tx, accountID, amount, domain.TransactionAdminAdjustment, source)
		} else {
			txn, err = s.DebitTx(ctx, tx, accountID, -amount, domain.TransactionAdminAdjustment, source)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Int64("amount", amount).
		Str("reason", reason).
		Msg("admin balance adjustment applied")
	return txn, nil
}

// apply writes the balance change and its ledger entry. delta is signed.
func (s *LedgerServiceImpl) apply(ctx context.Context, tx pgx.Tx, acct *domain.WalletAccount, delta int64, txType domain.TransactionType, source string) (*domain.Transaction, error) {
	newBalance := acct.Balance + delta
	if err := s.walletRepo.UpdateBalance(ctx, tx, acct.AccountID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    acct.AccountID,
		Amount:       delta,
		BalanceAfter: newBalance,
		Type:         txType,
		Source:       source,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.txRepo.Append(ctx, tx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}

	acct.Balance = newBalance
	return txn, nil
}

// inTx runs fn inside a transaction with commit/rollback handling.
func (s *LedgerServiceImpl) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}
