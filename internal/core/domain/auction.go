package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuctionStatus represents the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "ACTIVE"
	AuctionStatusCompleted AuctionStatus = "COMPLETED"
	AuctionStatusCancelled AuctionStatus = "CANCELLED"
)

// DurationClass selects the auction window at creation time.
type DurationClass string

const (
	DurationStandard DurationClass = "STANDARD"
	DurationExpress  DurationClass = "EXPRESS"
)

// Auction is a single-item, single-seller, ascending-price timed auction.
// Version backs the optimistic compare-and-swap on every state transition;
// CloseTime only ever moves forward (anti-snipe extension).
type Auction struct {
	ID            uuid.UUID     `json:"id"`
	ItemID        uuid.UUID     `json:"item_id"`
	SellerID      uuid.UUID     `json:"seller_id"`
	StartingPrice int64         `json:"starting_price"`
	CurrentBid    *int64        `json:"current_bid,omitempty"`
	CurrentBidder *uuid.UUID    `json:"current_bidder,omitempty"`
	BuyoutPrice   *int64        `json:"buyout_price,omitempty"`
	BidCount      int           `json:"bid_count"`
	Featured      bool          `json:"featured"`
	Express       bool          `json:"express"`
	Status        AuctionStatus `json:"status"`
	Version       int64         `json:"-"`
	StartTime     time.Time     `json:"start_time"`
	CloseTime     time.Time     `json:"close_time"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"-"`
}

// IsTerminal returns true once the auction can never change again.
func (a *Auction) IsTerminal() bool {
	return a.Status == AuctionStatusCompleted || a.Status == AuctionStatusCancelled
}

// Ended reports whether bidding is over at the given instant.
func (a *Auction) Ended(now time.Time) bool {
	return a.Status != AuctionStatusActive || !now.Before(a.CloseTime)
}

// MinAcceptableBid computes the lowest amount the next bid may carry:
// the starting price while no bid exists, otherwise the current high bid
// plus 5% rounded up, with an increment floor of 1 unit.
func (a *Auction) MinAcceptableBid() int64 {
	if a.CurrentBid == nil {
		return a.StartingPrice
	}
	high := *a.CurrentBid
	inc := (high*5 + 99) / 100
	if inc < 1 {
		inc = 1
	}
	return high + inc
}

// Cancellable reports whether the seller may still withdraw the auction.
// Once a bid exists the listing is committed to its bidders.
func (a *Auction) Cancellable() bool {
	return a.Status == AuctionStatusActive && a.BidCount == 0
}

// Bid is an accepted bid on an auction. Snipe marks bids that landed inside
// the anti-snipe window of the then-current close time.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	Snipe     bool      `json:"snipe"`
	CreatedAt time.Time `json:"created_at"`
}
