package dto

// CreateAuctionRequest is the request body for listing an item.
type CreateAuctionRequest struct {
	ItemID        string `json:"item_id" binding:"required,uuid"`
	StartingPrice int64  `json:"starting_price" binding:"required,gt=0"`
	BuyoutPrice   *int64 `json:"buyout_price,omitempty"`
	DurationClass string `json:"duration_class" binding:"omitempty,oneof=STANDARD EXPRESS"`
	Featured      bool   `json:"featured"`
}

// BidRequest is the request body for placing a bid.
type BidRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// AdjustRequest is the request body for an admin balance adjustment.
// Amount is signed; negative values remove funds.
type AdjustRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	Amount    int64  `json:"amount" binding:"required"`
	Reason    string `json:"reason" binding:"required,max=200"`
}

// AuctionResponse is the response body for a single auction.
type AuctionResponse struct {
	ID            string  `json:"id"`
	ItemID        string  `json:"item_id"`
	SellerID      string  `json:"seller_id"`
	StartingPrice int64   `json:"starting_price"`
	CurrentBid    *int64  `json:"current_bid,omitempty"`
	CurrentBidder *string `json:"current_bidder,omitempty"`
	BuyoutPrice   *int64  `json:"buyout_price,omitempty"`
	MinNextBid    int64   `json:"min_next_bid"`
	BidCount      int     `json:"bid_count"`
	Featured      bool    `json:"featured"`
	Express       bool    `json:"express"`
	Status        string  `json:"status"`
	StartTime     string  `json:"start_time"`
	CloseTime     string  `json:"close_time"`
	CreatedAt     string  `json:"created_at"`
}

// BidResponse is the response body for an accepted or listed bid.
type BidResponse struct {
	ID        string `json:"id"`
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    int64  `json:"amount"`
	Snipe     bool   `json:"snipe"`
	CreatedAt string `json:"created_at"`
}

// BidResultResponse reports an accepted bid and the resulting auction state.
type BidResultResponse struct {
	Bid      BidResponse     `json:"bid"`
	Auction  AuctionResponse `json:"auction"`
	Extended bool            `json:"extended"`
}

// SettlementResponse reports a completed buyout.
type SettlementResponse struct {
	Auction    AuctionResponse `json:"auction"`
	Amount     int64           `json:"amount"`
	SuccessFee int64           `json:"success_fee"`
	WinnerID   string          `json:"winner_id"`
}

// AuctionListResponse wraps the paginated marketplace view.
type AuctionListResponse struct {
	Items      []AuctionResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// BalanceResponse is the response for a wallet balance query.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// TransactionResponse is the response body for a ledger entry.
type TransactionResponse struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
	Type         string `json:"type"`
	Source       string `json:"source"`
	CreatedAt    string `json:"created_at"`
}

// TransactionListResponse wraps paginated ledger history.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}
