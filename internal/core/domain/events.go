package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the broadcast event kinds.
type EventType string

const (
	EventBidAccepted      EventType = "bid_accepted"
	EventAuctionCompleted EventType = "auction_completed"
	EventAuctionExtended  EventType = "auction_extended"
)

// Event is the payload pushed to marketplace viewers. Delivery is
// at-most-once and never on the critical path of a state mutation.
type Event struct {
	Type      EventType  `json:"type"`
	AuctionID uuid.UUID  `json:"auction_id"`
	Amount    int64      `json:"amount,omitempty"`
	BidderID  *uuid.UUID `json:"bidder_id,omitempty"`
	WinnerID  *uuid.UUID `json:"winner_id,omitempty"`
	CloseTime time.Time  `json:"close_time"`
	Timestamp time.Time  `json:"timestamp"`
}
