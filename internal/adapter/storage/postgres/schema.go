package postgres

import (
	"context"
	"fmt"
)

// schema is the idempotent DDL for the auction engine. ledger_transactions is
// append-only: rows are never updated or deleted.
const schema = `
CREATE TABLE IF NOT EXISTS wallet_accounts (
	account_id  UUID PRIMARY KEY,
	balance     BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ledger_transactions (
	id            UUID PRIMARY KEY,
	account_id    UUID NOT NULL REFERENCES wallet_accounts(account_id),
	amount        BIGINT NOT NULL,
	balance_after BIGINT NOT NULL,
	entry_type    TEXT NOT NULL,
	source        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_transactions(account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS auctions (
	id             UUID PRIMARY KEY,
	item_id        UUID NOT NULL,
	seller_id      UUID NOT NULL,
	starting_price BIGINT NOT NULL CHECK (starting_price >= 1),
	current_bid    BIGINT,
	current_bidder UUID,
	buyout_price   BIGINT,
	bid_count      INT NOT NULL DEFAULT 0,
	featured       BOOLEAN NOT NULL DEFAULT FALSE,
	express        BOOLEAN NOT NULL DEFAULT FALSE,
	status         TEXT NOT NULL DEFAULT 'ACTIVE',
	version        BIGINT NOT NULL DEFAULT 0,
	start_time     TIMESTAMPTZ NOT NULL,
	close_time     TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_auctions_active_close ON auctions(status, close_time);
CREATE INDEX IF NOT EXISTS idx_auctions_seller ON auctions(seller_id);

CREATE TABLE IF NOT EXISTS bids (
	id         UUID PRIMARY KEY,
	auction_id UUID NOT NULL REFERENCES auctions(id),
	bidder_id  UUID NOT NULL,
	amount     BIGINT NOT NULL,
	snipe      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(auction_id, amount);
`

// Migrate bootstraps the schema. Safe to run on every startup.
func Migrate(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
