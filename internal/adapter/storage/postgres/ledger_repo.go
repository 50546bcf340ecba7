package postgres

import (
	"context"
	"fmt"

	"card-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.TransactionRepository over the append-only
// ledger_transactions table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a ledger entry within a database transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO ledger_transactions (id, account_id, amount, balance_after, entry_type, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.AccountID, t.Amount, t.BalanceAfter,
		t.Type, t.Source, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByAccount fetches an account's ledger entries, newest first.
func (r *LedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	countQuery := `SELECT COUNT(*) FROM ledger_transactions WHERE account_id = $1`
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, accountID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (page - 1) * pageSize
	dataQuery := `SELECT id, account_id, amount, balance_after, entry_type, source, created_at
		FROM ledger_transactions WHERE account_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, dataQuery, accountID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.AccountID, &t.Amount, &t.BalanceAfter,
			&t.Type, &t.Source, &t.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return txns, total, nil
}
