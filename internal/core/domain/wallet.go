package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletAccount holds a user's virtual currency balance. Balance is the
// authoritative running total, mutated only by the ledger inside the same
// database transaction that appends the Transaction row; it is never derived
// by summing history.
type WalletAccount struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionType classifies a ledger entry by direction and origin.
type TransactionType string

const (
	TransactionEarnSale        TransactionType = "EARN_AUCTION_SALE"
	TransactionSpendBid        TransactionType = "SPEND_AUCTION_BID"
	TransactionSpendBuyout     TransactionType = "SPEND_AUCTION_BUYOUT"
	TransactionSpendListingFee TransactionType = "SPEND_LISTING_FEE"
	TransactionSpendSuccessFee TransactionType = "SPEND_SUCCESS_FEE"
	TransactionAdminAdjustment TransactionType = "ADMIN_ADJUSTMENT"
)

// Transaction is an immutable, append-only ledger entry. Amount is signed
// (negative for debits); BalanceAfter is the account balance resulting from
// this entry. Source is a caller-supplied audit tag such as
// "AUCTION_BUYOUT:<auction id>".
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	Type         TransactionType `json:"type"`
	Source       string          `json:"source"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IsDebit reports whether this entry removed funds from the account.
func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}
