package ports

import (
	"context"
	"time"

	"card-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuctionRepository defines persistence operations for auctions and bids.
// ApplyBid and FinalizeTx are the optimistic compare-and-swap boundary: they
// succeed for exactly one caller when transitions race on the same auction.
type AuctionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, auction *domain.Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error)
	ListActive(ctx context.Context, params AuctionListParams) ([]domain.Auction, int64, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Auction, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error)

	// ApplyBid conditionally records a new high bid. The update is guarded by
	// status = ACTIVE and the version observed by the caller; it returns false
	// with no error when the guard fails (lost race).
	ApplyBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, bid *domain.Bid, newCloseTime time.Time) (bool, error)

	// FinalizeTx conditionally moves an ACTIVE auction to a terminal status.
	// The guard covers the version the caller validated against, so a bid
	// committed after the caller's read fails the swap instead of being
	// silently discarded. Returns false on a lost swap, including the case
	// where the auction was already terminal (idempotent sweep).
	FinalizeTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, status domain.AuctionStatus) (bool, error)

	// FinalizeBuyoutTx completes an auction at its buyout price, recording the
	// buyer as winner and appending the winning bid row in the same
	// conditional update.
	FinalizeBuyoutTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, bid *domain.Bid) (bool, error)
}

// AuctionListParams holds filters + pagination for the active marketplace view.
type AuctionListParams struct {
	Featured *bool
	SellerID *uuid.UUID
	MaxPrice *int64
	Page     int
	PageSize int
}

// WalletRepository defines persistence operations for wallet accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic
// per-account locking.
type WalletRepository interface {
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error
	GetByID(ctx context.Context, accountID uuid.UUID) (*domain.WalletAccount, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.WalletAccount, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance int64) error
}

// TransactionRepository appends and reads the immutable ledger log.
// Rows are never updated or deleted.
type TransactionRepository interface {
	Append(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
