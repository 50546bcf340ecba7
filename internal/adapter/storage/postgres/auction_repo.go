package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"card-auction-engine/internal/core/domain"
	"card-auction-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const auctionColumns = `id, item_id, seller_id, starting_price, current_bid, current_bidder,
	buyout_price, bid_count, featured, express, status, version, start_time, close_time, created_at, updated_at`

// AuctionRepo implements ports.AuctionRepository. State transitions use
// conditional updates guarded by status and version, so concurrent writers
// resolve without row locks: exactly one update lands, the rest see
// RowsAffected() == 0.
type AuctionRepo struct {
	pool Pool
}

// NewAuctionRepo creates a new AuctionRepo.
func NewAuctionRepo(pool Pool) *AuctionRepo {
	return &AuctionRepo{pool: pool}
}

// Create inserts a new auction within a database transaction.
func (r *AuctionRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	query := `INSERT INTO auctions (id, item_id, seller_id, starting_price, current_bid, current_bidder,
		buyout_price, bid_count, featured, express, status, version, start_time, close_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := tx.Exec(ctx, query,
		a.ID, a.ItemID, a.SellerID, a.StartingPrice, a.CurrentBid, a.CurrentBidder,
		a.BuyoutPrice, a.BidCount, a.Featured, a.Express, a.Status, a.Version,
		a.StartTime, a.CloseTime, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert auction: %w", err)
	}
	return nil
}

// GetByID fetches an auction by UUID.
func (r *AuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	query := fmt.Sprintf(`SELECT %s FROM auctions WHERE id = $1`, auctionColumns)
	return r.scanAuction(r.pool.QueryRow(ctx, query, id))
}

// ListActive fetches ACTIVE auctions with filtering and pagination, featured
// listings first, closing soonest first within each tier.
func (r *AuctionRepo) ListActive(ctx context.Context, params ports.AuctionListParams) ([]domain.Auction, int64, error) {
	conditions := []string{"status = 'ACTIVE'"}
	var args []any
	argIdx := 1

	if params.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("featured = $%d", argIdx))
		args = append(args, *params.Featured)
		argIdx++
	}
	if params.SellerID != nil {
		conditions = append(conditions, fmt.Sprintf("seller_id = $%d", argIdx))
		args = append(args, *params.SellerID)
		argIdx++
	}
	if params.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("COALESCE(current_bid, starting_price) <= $%d", argIdx))
		args = append(args, *params.MaxPrice)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM auctions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count auctions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM auctions %s
		ORDER BY featured DESC, close_time ASC LIMIT $%d OFFSET $%d`,
		auctionColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	auctions, err := collectAuctions(rows)
	if err != nil {
		return nil, 0, err
	}
	return auctions, total, nil
}

// ListExpired fetches ACTIVE auctions whose close time has passed, oldest
// first, for the expiration sweep.
func (r *AuctionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Auction, error) {
	query := fmt.Sprintf(`SELECT %s FROM auctions
		WHERE status = 'ACTIVE' AND close_time <= $1
		ORDER BY close_time ASC LIMIT $2`, auctionColumns)

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	defer rows.Close()

	return collectAuctions(rows)
}

// ListBids fetches all accepted bids for an auction, highest first.
func (r *AuctionRepo) ListBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	query := `SELECT id, auction_id, bidder_id, amount, snipe, created_at
		FROM bids WHERE auction_id = $1 ORDER BY amount DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		b := domain.Bid{}
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.Snipe, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bid row: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bid rows: %w", err)
	}
	return bids, nil
}

// ApplyBid conditionally records a new high bid and appends the bid row.
// Returns false with no error when the version guard fails.
func (r *AuctionRepo) ApplyBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, bid *domain.Bid, newCloseTime time.Time) (bool, error) {
	query := `UPDATE auctions SET current_bid = $1, current_bidder = $2, bid_count = bid_count + 1,
		close_time = $3, version = version + 1, updated_at = NOW()
		WHERE id = $4 AND status = 'ACTIVE' AND version = $5`

	tag, err := tx.Exec(ctx, query, bid.Amount, bid.BidderID, newCloseTime, auctionID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("apply bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	insert := `INSERT INTO bids (id, auction_id, bidder_id, amount, snipe, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, insert, bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.Snipe, bid.CreatedAt); err != nil {
		return false, fmt.Errorf("insert bid: %w", err)
	}
	return true, nil
}

// FinalizeTx conditionally moves an ACTIVE auction to a terminal status. The
// version guard rejects the swap when a bid landed after the caller's read.
// Returns false with no error on a lost swap.
func (r *AuctionRepo) FinalizeTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, status domain.AuctionStatus) (bool, error) {
	query := `UPDATE auctions SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND status = 'ACTIVE' AND version = $3`

	tag, err := tx.Exec(ctx, query, status, auctionID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("finalize auction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FinalizeBuyoutTx completes an auction at its buyout price, recording the
// buyer as winner and appending the winning bid row in the same transaction.
func (r *AuctionRepo) FinalizeBuyoutTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, bid *domain.Bid) (bool, error) {
	query := `UPDATE auctions SET status = 'COMPLETED', current_bid = $1, current_bidder = $2,
		bid_count = bid_count + 1, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND status = 'ACTIVE' AND version = $4`

	tag, err := tx.Exec(ctx, query, bid.Amount, bid.BidderID, auctionID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("finalize buyout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	insert := `INSERT INTO bids (id, auction_id, bidder_id, amount, snipe, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, insert, bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.Snipe, bid.CreatedAt); err != nil {
		return false, fmt.Errorf("insert buyout bid: %w", err)
	}
	return true, nil
}

// scanAuction is a helper to scan a single row into an Auction.
func (r *AuctionRepo) scanAuction(row pgx.Row) (*domain.Auction, error) {
	a := &domain.Auction{}
	err := row.Scan(
		&a.ID, &a.ItemID, &a.SellerID, &a.StartingPrice, &a.CurrentBid, &a.CurrentBidder,
		&a.BuyoutPrice, &a.BidCount, &a.Featured, &a.Express, &a.Status, &a.Version,
		&a.StartTime, &a.CloseTime, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan auction: %w", err)
	}
	return a, nil
}

func collectAuctions(rows pgx.Rows) ([]domain.Auction, error) {
	var auctions []domain.Auction
	for rows.Next() {
		a := domain.Auction{}
		err := rows.Scan(
			&a.ID, &a.ItemID, &a.SellerID, &a.StartingPrice, &a.CurrentBid, &a.CurrentBidder,
			&a.BuyoutPrice, &a.BidCount, &a.Featured, &a.Express, &a.Status, &a.Version,
			&a.StartTime, &a.CloseTime, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan auction row: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auction rows: %w", err)
	}
	return auctions, nil
}
