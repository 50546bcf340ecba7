package handler

import (
	"strconv"
	"time"

	"card-auction-engine/internal/adapter/http/dto"
	"card-auction-engine/internal/adapter/http/middleware"
	"card-auction-engine/internal/core/domain"
	"card-auction-engine/internal/core/ports"
	"card-auction-engine/pkg/apperror"
	"card-auction-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuctionHandler handles auction-related endpoints.
type AuctionHandler struct {
	auctionSvc ports.AuctionService
}

// NewAuctionHandler creates a new AuctionHandler.
func NewAuctionHandler(auctionSvc ports.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionSvc: auctionSvc}
}

// Create handles POST /api/v1/auctions.
func (h *AuctionHandler) Create(c *gin.Context) {
	sellerID, ok := accountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid item_id"))
		return
	}

	durationClass := domain.DurationStandard
	if req.DurationClass == string(domain.DurationExpress) {
		durationClass = domain.DurationExpress
	}

	auction, err := h.auctionSvc.CreateAuction(c.Request.Context(), ports.CreateAuctionRequest{
		ItemID:        itemID,
		SellerID:      sellerID,
		StartingPrice: req.StartingPrice,
		BuyoutPrice:   req.BuyoutPrice,
		DurationClass: durationClass,
		Featured:      req.Featured,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toAuctionResponse(auction))
}

// List handles GET /api/v1/auctions (the active marketplace view).
func (h *AuctionHandler) List(c *gin.Context) {
	params := ports.AuctionListParams{}
	params.Page, params.PageSize = parsePagination(c)

	if v := c.Query("featured"); v != "" {
		featured := v == "true"
		params.Featured = &featured
	}
	if v := c.Query("seller_id"); v != "" {
		sellerID, err := uuid.Parse(v)
		if err != nil {
			response.Error(c, apperror.Validation("invalid seller_id"))
			return
		}
		params.SellerID = &sellerID
	}
	if v := c.Query("max_price"); v != "" {
		maxPrice, err := strconv.ParseInt(v, 10, 64)
		if err != nil || maxPrice <= 0 {
			response.Error(c, apperror.Validation("invalid max_price"))
			return
		}
		params.MaxPrice = &maxPrice
	}

	auctions, total, err := h.auctionSvc.GetActiveAuctions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.AuctionResponse, 0, len(auctions))
	for i := range auctions {
		items = append(items, toAuctionResponse(&auctions[i]))
	}
	response.OK(c, dto.AuctionListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(total, params.PageSize),
	})
}

// Get handles GET /api/v1/auctions/:id.
func (h *AuctionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	auction, err := h.auctionSvc.GetAuctionByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toAuctionResponse(auction))
}

// PlaceBid handles POST /api/v1/auctions/:id/bids.
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	bidderID, ok := accountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	var req dto.BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.auctionSvc.PlaceBid(c.Request.Context(), auctionID, bidderID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BidResultResponse{
		Bid:      toBidResponse(result.Bid),
		Auction:  toAuctionResponse(&result.Auction),
		Extended: result.Extended,
	})
}

// Buyout handles POST /api/v1/auctions/:id/buyout.
func (h *AuctionHandler) Buyout(c *gin.Context) {
	buyerID, ok := accountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	result, err := h.auctionSvc.ExecuteBuyout(c.Request.Context(), auctionID, buyerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SettlementResponse{
		Auction:    toAuctionResponse(&result.Auction),
		Amount:     result.Amount,
		SuccessFee: result.SuccessFee,
		WinnerID:   result.WinnerID.String(),
	})
}

// Cancel handles DELETE /api/v1/auctions/:id.
func (h *AuctionHandler) Cancel(c *gin.Context) {
	requesterID, ok := accountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	if err := h.auctionSvc.CancelAuction(c.Request.Context(), auctionID, requesterID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListBids handles GET /api/v1/auctions/:id/bids.
func (h *AuctionHandler) ListBids(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	bids, err := h.auctionSvc.GetBidHistory(c.Request.Context(), auctionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.BidResponse, 0, len(bids))
	for _, bid := range bids {
		items = append(items, toBidResponse(bid))
	}
	response.OK(c, items)
}

// accountID pulls the authenticated account id from the request context.
func accountID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// parsePagination reads page/page_size query params with sane defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// toAuctionResponse converts domain.Auction to DTO.
func toAuctionResponse(a *domain.Auction) dto.AuctionResponse {
	resp := dto.AuctionResponse{
		ID:            a.ID.String(),
		ItemID:        a.ItemID.String(),
		SellerID:      a.SellerID.String(),
		StartingPrice: a.StartingPrice,
		CurrentBid:    a.CurrentBid,
		BuyoutPrice:   a.BuyoutPrice,
		MinNextBid:    a.MinAcceptableBid(),
		BidCount:      a.BidCount,
		Featured:      a.Featured,
		Express:       a.Express,
		Status:        string(a.Status),
		StartTime:     a.StartTime.Format(time.RFC3339),
		CloseTime:     a.CloseTime.Format(time.RFC3339),
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
	if a.CurrentBidder != nil {
		s := a.CurrentBidder.String()
		resp.CurrentBidder = &s
	}
	return resp
}

// toBidResponse converts domain.Bid to DTO.
func toBidResponse(b domain.Bid) dto.BidResponse {
	return dto.BidResponse{
		ID:        b.ID.String(),
		AuctionID: b.AuctionID.String(),
		BidderID:  b.BidderID.String(),
		Amount:    b.Amount,
		Snipe:     b.Snipe,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
}
