package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"card-auction-engine/internal/core/domain"
	"card-auction-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fixedClock returns a controllable time for deterministic tests.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{now: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- wallet repo fake ---

type fakeWalletRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.WalletAccount
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{accounts: make(map[uuid.UUID]*domain.WalletAccount)}
}

func (r *fakeWalletRepo) seed(accountID uuid.UUID, balance int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[accountID] = &domain.WalletAccount{AccountID: accountID, Balance: balance}
}

func (r *fakeWalletRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[accountID]; !ok {
		r.accounts[accountID] = &domain.WalletAccount{AccountID: accountID}
	}
	return nil
}

func (r *fakeWalletRepo) GetByID(ctx context.Context, accountID uuid.UUID) (*domain.WalletAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeWalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.WalletAccount, error) {
	return r.GetByID(ctx, accountID)
}

func (r *fakeWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return fmt.Errorf("wallet account not found: %s", accountID)
	}
	a.Balance = balance
	return nil
}

// --- ledger entry repo fake ---

type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []domain.Transaction
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{}
}

func (r *fakeLedgerRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *t)
	return nil
}

func (r *fakeLedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Transaction
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].AccountID == accountID {
			result = append(result, r.entries[i])
		}
	}
	total := int64(len(result))
	start := (page - 1) * pageSize
	if start >= len(result) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *fakeLedgerRepo) byAccount(accountID uuid.UUID) []domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Transaction
	for _, e := range r.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	return result
}

// --- auction repo fake (version-guard faithful) ---

type fakeAuctionRepo struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*domain.Auction
	bids     map[uuid.UUID][]domain.Bid
}

func newFakeAuctionRepo() *fakeAuctionRepo {
	return &fakeAuctionRepo{
		auctions: make(map[uuid.UUID]*domain.Auction),
		bids:     make(map[uuid.UUID][]domain.Bid),
	}
}

func (r *fakeAuctionRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.auctions[a.ID] = &cp
	return nil
}

func (r *fakeAuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAuctionRepo) ListActive(ctx context.Context, params ports.AuctionListParams) ([]domain.Auction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Auction
	for _, a := range r.auctions {
		if a.Status != domain.AuctionStatusActive {
			continue
		}
		if params.Featured != nil && a.Featured != *params.Featured {
			continue
		}
		if params.SellerID != nil && a.SellerID != *params.SellerID {
			continue
		}
		result = append(result, *a)
	}
	return result, int64(len(result)), nil
}

func (r *fakeAuctionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.AuctionStatusActive && !now.Before(a.CloseTime) {
			result = append(result, *a)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (r *fakeAuctionRepo) ListBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Bid(nil), r.bids[auctionID]...), nil
}

func (r *fakeAuctionRepo) ApplyBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, bid *domain.Bid, newCloseTime time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || a.Status != domain.AuctionStatusActive || a.Version != expectedVersion {
		return false, nil
	}
	a.CurrentBid = &bid.Amount
	a.CurrentBidder = &bid.BidderID
	a.BidCount++
	a.CloseTime = newCloseTime
	a.Version++
	r.bids[auctionID] = append(r.bids[auctionID], *bid)
	return true, nil
}

func (r *fakeAuctionRepo) FinalizeTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, status domain.AuctionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || a.Status != domain.AuctionStatusActive || a.Version != expectedVersion {
		return false, nil
	}
	a.Status = status
	a.Version++
	return true, nil
}

func (r *fakeAuctionRepo) FinalizeBuyoutTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, bid *domain.Bid) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || a.Status != domain.AuctionStatusActive || a.Version != expectedVersion {
		return false, nil
	}
	a.Status = domain.AuctionStatusCompleted
	a.CurrentBid = &bid.Amount
	a.CurrentBidder = &bid.BidderID
	a.BidCount++
	a.Version++
	r.bids[auctionID] = append(r.bids[auctionID], *bid)
	return true, nil
}

// finalizeHookRepo runs a hook right before each FinalizeTx, simulating a
// write that commits between a service's read and its conditional update.
type finalizeHookRepo struct {
	*fakeAuctionRepo
	beforeFinalize func()
}

func (r *finalizeHookRepo) FinalizeTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, status domain.AuctionStatus) (bool, error) {
	if r.beforeFinalize != nil {
		r.beforeFinalize()
	}
	return r.fakeAuctionRepo.FinalizeTx(ctx, tx, auctionID, expectedVersion, status)
}

// --- transactor fake ---

type fakeTransactor struct{}

func (fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
