// Package integration exercises the full engine stack (router, services,
// ledger) over in-memory repositories. The repositories keep the same
// concurrency contract as the PostgreSQL adapters: version-guarded auction
// updates and serialized transactions, so race behavior is observable
// without a database.
package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"card-auction-engine/internal/core/domain"
	"card-auction-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memClock is a controllable clock shared by services and tests.
type memClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMemClock(t time.Time) *memClock {
	return &memClock{now: t}
}

func (c *memClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *memClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- wallet accounts ---

type memWalletRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.WalletAccount
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{accounts: make(map[uuid.UUID]*domain.WalletAccount)}
}

func (r *memWalletRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[accountID]; !ok {
		r.accounts[accountID] = &domain.WalletAccount{AccountID: accountID}
	}
	return nil
}

func (r *memWalletRepo) GetByID(ctx context.Context, accountID uuid.UUID) (*domain.WalletAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *memWalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.WalletAccount, error) {
	return r.GetByID(ctx, accountID)
}

func (r *memWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return fmt.Errorf("wallet account not found: %s", accountID)
	}
	a.Balance = balance
	return nil
}

// balances returns a snapshot of every account balance.
func (r *memWalletRepo) balances() map[uuid.UUID]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]int64, len(r.accounts))
	for id, a := range r.accounts {
		out[id] = a.Balance
	}
	return out
}

// --- ledger entries ---

type memLedgerRepo struct {
	mu      sync.Mutex
	entries []domain.Transaction
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{}
}

func (r *memLedgerRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *t)
	return nil
}

func (r *memLedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
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

// countByType reports how many entries of the given type an account has.
func (r *memLedgerRepo) countByType(accountID uuid.UUID, txType domain.TransactionType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.AccountID == accountID && e.Type == txType {
			n++
		}
	}
	return n
}

// --- auctions and bids ---

type memAuctionRepo struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*domain.Auction
	bids     map[uuid.UUID][]domain.Bid
}

func newMemAuctionRepo() *memAuctionRepo {
	return &memAuctionRepo{
		auctions: make(map[uuid.UUID]*domain.Auction),
		bids:     make(map[uuid.UUID][]domain.Bid),
	}
}

func (r *memAuctionRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.auctions[a.ID] = &cp
	return nil
}

func (r *memAuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *memAuctionRepo) ListActive(ctx context.Context, params ports.AuctionListParams) ([]domain.Auction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Auction
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
		if params.MaxPrice != nil {
			price := a.StartingPrice
			if a.CurrentBid != nil {
				price = *a.CurrentBid
			}
			if price > *params.MaxPrice {
				continue
			}
		}
		matched = append(matched, *a)
	}
	// Featured listings first, then soonest to close.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Featured != matched[j].Featured {
			return matched[i].Featured
		}
		return matched[i].CloseTime.Before(matched[j].CloseTime)
	})

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *memAuctionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Auction, error) {
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

func (r *memAuctionRepo) ListBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bids := append([]domain.Bid(nil), r.bids[auctionID]...)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Amount > bids[j].Amount })
	return bids, nil
}

func (r *memAuctionRepo) ApplyBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, bid *domain.Bid, newCloseTime time.Time) (bool, error) {
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

func (r *memAuctionRepo) FinalizeTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, status domain.AuctionStatus) (bool, error) {
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

func (r *memAuctionRepo) FinalizeBuyoutTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, expectedVersion int64, bid *domain.Bid) (bool, error) {
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

// --- transactor ---

// lockTransactor serializes transactions behind one mutex, standing in for
// the row locks the PostgreSQL adapter takes. Commit or Rollback releases
// the lock exactly once.
type lockTransactor struct {
	mu sync.Mutex
}

func (t *lockTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockTx{release: &t.mu}, nil
}

type lockTx struct {
	mu      sync.Mutex
	release *sync.Mutex
}

func (t *lockTx) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.release != nil {
		t.release.Unlock()
		t.release = nil
	}
}

func (t *lockTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *lockTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *lockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockTx) Conn() *pgx.Conn { return nil }

// --- inventory ---

// memInventory records settlement-time inventory calls.
type memInventory struct {
	mu        sync.Mutex
	transfers []uuid.UUID // item ids transferred to a winner
	releases  []uuid.UUID // item ids returned to the seller
}

func (m *memInventory) TransferOwnership(ctx context.Context, itemID, from, to uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, itemID)
	return nil
}

func (m *memInventory) Release(ctx context.Context, itemID, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases = append(m.releases, itemID)
	return nil
}

func (m *memInventory) transferCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transfers)
}

func (m *memInventory) releaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.releases)
}
