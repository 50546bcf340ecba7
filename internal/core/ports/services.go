package ports

import (
	"context"
	"time"

	"card-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Ledger is the component of record for all balance changes: the sole writer
// of account balances. Debit and Transfer fail atomically when the resulting
// balance would go negative. The Tx variants operate inside a caller-owned
// database transaction so ledger movement can be composed with an auction
// state transition as one atomic unit.
type Ledger interface {
	Debit(ctx context.Context, accountID uuid.UUID, amount int64, txType domain.TransactionType, source string) (*domain.Transaction, error)
	Credit(ctx context.Context, accountID uuid.UUID, amount int64, txType domain.TransactionType, source string) (*domain.Transaction, error)
	Transfer(ctx context.Context, from, to uuid.UUID, amount int64, debitType, creditType domain.TransactionType, source string) (*domain.Transaction, *domain.Transaction, error)

	DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, txType domain.TransactionType, source string) (*domain.Transaction, error)
	CreditTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, txType domain.TransactionType, source string) (*domain.Transaction, error)
	TransferTx(ctx context.Context, tx pgx.Tx, from, to uuid.UUID, amount int64, debitType, creditType domain.TransactionType, source string) (*domain.Transaction, *domain.Transaction, error)

	// Balance is a non-reserving solvency check; funds move only at settlement.
	Balance(ctx context.Context, accountID uuid.UUID) (int64, error)
	History(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error)
	AdminAdjust(ctx context.Context, accountID uuid.UUID, amount int64, reason string) (*domain.Transaction, error)
}

// AuctionService is the engine surface exposed to the rest of the platform.
type AuctionService interface {
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*domain.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount int64) (*BidResult, error)
	ExecuteBuyout(ctx context.Context, auctionID, buyerID uuid.UUID) (*SettlementResult, error)
	CancelAuction(ctx context.Context, auctionID, requesterID uuid.UUID) error
	GetActiveAuctions(ctx context.Context, params AuctionListParams) ([]domain.Auction, int64, error)
	GetAuctionByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error)
	GetBidHistory(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error)
}

// CreateAuctionRequest holds validated input for listing an item.
// The listing (+express/featured) fee is debited up front and is not
// refunded on cancellation.
type CreateAuctionRequest struct {
	ItemID        uuid.UUID
	SellerID      uuid.UUID
	StartingPrice int64
	BuyoutPrice   *int64
	DurationClass domain.DurationClass
	Featured      bool
}

// BidResult reports an accepted bid and the resulting auction state.
type BidResult struct {
	Bid      domain.Bid     `json:"bid"`
	Auction  domain.Auction `json:"auction"`
	Extended bool           `json:"extended"`
}

// SettlementResult reports a completed settlement (buyout or sweep).
type SettlementResult struct {
	Auction    domain.Auction `json:"auction"`
	Amount     int64          `json:"amount"`
	SuccessFee int64          `json:"success_fee"`
	WinnerID   uuid.UUID      `json:"winner_id"`
}

// InventoryService is the platform's item inventory collaborator. The engine
// calls it at settlement, never while holding a database lock.
type InventoryService interface {
	TransferOwnership(ctx context.Context, itemID, from, to uuid.UUID) error
	// Release returns an unsold item to the seller's available inventory.
	Release(ctx context.Context, itemID, ownerID uuid.UUID) error
}

// EventPublisher is the best-effort broadcast sink. Publish must never block
// the caller or surface delivery failures to it.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// TokenValidator verifies identity-service tokens. The engine trusts the
// account id asserted by a valid token; it does not authenticate users.
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed identity claims.
type TokenClaims struct {
	AccountID uuid.UUID
	Admin     bool
}

// HealthChecker reports connectivity of a backing service.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}
