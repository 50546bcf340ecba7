package postgres

import (
	"context"
	"errors"
	"fmt"

	"card-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// CreateIfAbsent inserts a zero-balance account row if none exists yet.
// Called within a transaction so a following FOR UPDATE always finds the row.
func (r *WalletRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	query := `INSERT INTO wallet_accounts (account_id, balance, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW()) ON CONFLICT (account_id) DO NOTHING`

	_, err := tx.Exec(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("insert wallet account: %w", err)
	}
	return nil
}

// GetByID fetches an account by ID (non-locking read).
func (r *WalletRepo) GetByID(ctx context.Context, accountID uuid.UUID) (*domain.WalletAccount, error) {
	query := `SELECT account_id, balance, created_at, updated_at
		FROM wallet_accounts WHERE account_id = $1`

	a := &domain.WalletAccount{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&a.AccountID, &a.Balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet account by id: %w", err)
	}
	return a, nil
}

// GetForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.WalletAccount, error) {
	query := `SELECT account_id, balance, created_at, updated_at
		FROM wallet_accounts WHERE account_id = $1 FOR UPDATE`

	a := &domain.WalletAccount{}
	err := tx.QueryRow(ctx, query, accountID).Scan(
		&a.AccountID, &a.Balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet account for update: %w", err)
	}
	return a, nil
}

// UpdateBalance sets an account's balance within a transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance int64) error {
	query := `UPDATE wallet_accounts SET balance = $1, updated_at = NOW() WHERE account_id = $2`

	tag, err := tx.Exec(ctx, query, balance, accountID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet account not found: %s", accountID)
	}
	return nil
}
